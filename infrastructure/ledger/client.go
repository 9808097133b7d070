// Package ledger implements the LedgerClient port against a Fabric-style
// REST peer: JSON-RPC envelopes posted to /chaincode, with optional
// membership enrollment through /registrar.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// Client is a long-lived handle to one peer. Safe for concurrent use; the
// only mutable field is the chaincode name, written once during startup
// when the deployment gate deploys fresh.
type Client struct {
	baseURL       string
	chaincodePath string
	secureContext string

	mu            sync.RWMutex
	chaincodeName string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient builds a peer client from config.
func NewClient(cfg config.LedgerConfig, logger *zap.Logger) *Client {
	c := &Client{
		baseURL:       cfg.PeerURL,
		chaincodePath: cfg.ChaincodePath,
		chaincodeName: cfg.ChaincodeName,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:        logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "ledger",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Ledger circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// ChaincodeName returns the chaincode id currently in use. Empty until a
// prior deployment is known or Deploy has completed.
func (c *Client) ChaincodeName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chaincodeName
}

// Enroll registers the membership user with the peer. Called once at
// startup when the service binding supplies credentials; a no-op otherwise.
func (c *Client) Enroll(ctx context.Context, enrollID, enrollSecret string) error {
	if enrollID == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{
		"enrollId":     enrollID,
		"enrollSecret": enrollSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/registrar", bytes.NewReader(body))
	if err != nil {
		return apperrors.NewConfigurationError("bad peer URL").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewUnavailableError("ledger", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewConfigurationError(fmt.Sprintf("enrollment rejected with status %d", resp.StatusCode))
	}
	c.secureContext = enrollID
	c.logger.Info("Enrolled with membership services", zap.String("enroll_id", enrollID))
	return nil
}

// Invoke submits a state-changing transaction; the returned string is the
// transaction id assigned by the peer.
func (c *Client) Invoke(ctx context.Context, fn string, args []string) (string, error) {
	result, err := c.rpc(ctx, "invoke", c.ChaincodeName(), fn, args)
	if err != nil {
		return "", err
	}
	return result, nil
}

// Query reads chaincode state. The result is the chaincode's raw payload,
// which for missing keys is the literal string "null".
func (c *Client) Query(ctx context.Context, fn string, args []string) ([]byte, error) {
	result, err := c.rpc(ctx, "query", c.ChaincodeName(), fn, args)
	if err != nil {
		return nil, err
	}
	return []byte(result), nil
}

// Deploy issues the one-time chaincode deployment and records the name the
// peer assigned. Only the deployment gate calls this, before traffic starts.
func (c *Client) Deploy(ctx context.Context, fn string, args []string) (string, error) {
	name, err := c.rpc(ctx, "deploy", c.chaincodePath, fn, args)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.chaincodeName = name
	c.mu.Unlock()
	c.logger.Info("Chaincode deployed", zap.String("name", name))
	return name, nil
}

// Fabric 0.6 REST wire format.

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      string    `json:"id"`
}

type rpcParams struct {
	Type          int         `json:"type"`
	ChaincodeID   chaincodeID `json:"chaincodeID"`
	CtorMsg       ctorMsg     `json:"ctorMsg"`
	SecureContext string      `json:"secureContext,omitempty"`
}

type chaincodeID struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

type ctorMsg struct {
	Function string   `json:"function"`
	Args     []string `json:"args"`
}

type rpcResponse struct {
	Result *rpcResult `json:"result"`
	Error  *rpcError  `json:"error"`
}

type rpcResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (c *Client) rpc(ctx context.Context, method, target, fn string, args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	ccID := chaincodeID{Name: target}
	if method == "deploy" {
		ccID = chaincodeID{Path: target}
	}
	envelope := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params: rpcParams{
			Type:          1,
			ChaincodeID:   ccID,
			CtorMsg:       ctorMsg{Function: fn, Args: args},
			SecureContext: c.secureContext,
		},
		ID: uuid.New().String(),
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, envelope)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", apperrors.NewUnavailableError("ledger", err)
		}
		return "", err
	}
	return out.(string), nil
}

func (c *Client) post(ctx context.Context, envelope rpcRequest) (string, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return "", apperrors.NewInternalError("encoding ledger request").WithCause(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chaincode", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("building ledger request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUnavailableError("ledger", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewUnavailableError("ledger", err)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", apperrors.NewBackendError("ledger", "peer returned a non-JSON-RPC response", err)
	}
	if decoded.Error != nil {
		msg := decoded.Error.Message
		if decoded.Error.Data != "" {
			msg = fmt.Sprintf("%s (%s)", msg, decoded.Error.Data)
		}
		return "", apperrors.NewBackendError("ledger", msg, nil)
	}
	if decoded.Result == nil {
		return "", apperrors.NewBackendError("ledger", "peer response missing result", nil)
	}
	return decoded.Result.Message, nil
}
