// Package graph implements the GraphClient port against a Gremlin-over-HTTP
// property graph service: session-token auth, scripts with bindings posted
// to /gremlin, and schema documents posted to /schema.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/ports"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// Client is a long-lived handle to the graph service. Connection config is
// immutable after construction; only the session token rotates.
type Client struct {
	instanceURL string
	graphURL    string
	username    string
	password    string

	mu    sync.RWMutex
	token string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient builds a graph client from config. The bound apiURL points at
// the instance's default graph; the named graph from config replaces its
// last path segment.
func NewClient(cfg config.GraphConfig, logger *zap.Logger) *Client {
	instance := strings.TrimSuffix(cfg.APIURL, "/")
	if i := strings.LastIndex(instance, "/"); i > 0 {
		instance = instance[:i]
	}
	c := &Client{
		instanceURL: instance,
		graphURL:    instance + "/" + cfg.GraphName,
		username:    cfg.Username,
		password:    cfg.Password,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		logger:      logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "graph",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Graph circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// OpenSession exchanges the basic-auth credentials for a session token.
// Called at startup; also retried once internally when a request comes back
// 401 after token expiry.
func (c *Client) OpenSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.instanceURL+"/_session", nil)
	if err != nil {
		return apperrors.NewConfigurationError("bad graph URL").WithCause(err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewUnavailableError("graph", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewUnavailableError("graph", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewBackendError("graph", fmt.Sprintf("session request failed with status %d", resp.StatusCode), nil)
	}

	var decoded struct {
		Token string `json:"gds-token"`
	}
	token := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Token != "" {
		token = decoded.Token
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.logger.Info("Graph session opened")
	return nil
}

// Gremlin executes a script with bindings against the active graph.
func (c *Client) Gremlin(ctx context.Context, q ports.GremlinQuery) (*ports.GremlinResult, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, apperrors.NewInternalError("encoding gremlin query").WithCause(err)
	}

	raw, err := c.post(ctx, c.graphURL+"/gremlin", body)
	if err != nil {
		return nil, err
	}
	return decodeResult(raw)
}

// SetSchema submits the schema document and returns the backend's response
// verbatim. Idempotency is the backend's business.
func (c *Client) SetSchema(ctx context.Context, schema []byte) ([]byte, error) {
	return c.post(ctx, c.graphURL+"/schema", schema)
}

// post sends JSON through the circuit breaker, re-opening the session once
// on 401.
func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		raw, status, err := c.roundTrip(ctx, url, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			if err := c.OpenSession(ctx); err != nil {
				return nil, err
			}
			raw, status, err = c.roundTrip(ctx, url, body)
			if err != nil {
				return nil, err
			}
		}
		if status < 200 || status >= 300 {
			return nil, apperrors.NewBackendError("graph", fmt.Sprintf("request failed with status %d", status), nil)
		}
		return raw, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.NewUnavailableError("graph", err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, apperrors.NewInternalError("building graph request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "gds-token "+token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, apperrors.NewUnavailableError("graph", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, apperrors.NewUnavailableError("graph", err)
	}
	return raw, resp.StatusCode, nil
}

// Wire shapes for traversal results: result.data is a list of vertices
// whose properties map each key to a list of {id, value} pairs.

type wireResponse struct {
	Result wireResult `json:"result"`
}

type wireResult struct {
	Data []wireVertex `json:"data"`
}

type wireVertex struct {
	ID         interface{}               `json:"id"`
	Label      string                    `json:"label"`
	Properties map[string][]wireProperty `json:"properties"`
}

type wireProperty struct {
	Value interface{} `json:"value"`
}

func decodeResult(raw []byte) (*ports.GremlinResult, error) {
	var decoded wireResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperrors.NewBackendError("graph", "unparseable gremlin response", err)
	}

	result := &ports.GremlinResult{}
	for _, v := range decoded.Result.Data {
		vertex := ports.Vertex{
			ID:         v.ID,
			Label:      v.Label,
			Properties: make(map[string]string, len(v.Properties)),
		}
		for key, values := range v.Properties {
			if len(values) == 0 {
				continue
			}
			switch val := values[0].Value.(type) {
			case string:
				vertex.Properties[key] = val
			default:
				vertex.Properties[key] = fmt.Sprintf("%v", val)
			}
		}
		result.Vertices = append(result.Vertices, vertex)
	}
	return result, nil
}
