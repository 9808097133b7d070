// Package deploygate holds the one-time startup state machine that keeps
// traffic off the orchestrator until the ledger chaincode is confirmed
// queryable.
package deploygate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/ports"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// State of the gate. Transitions are Loading → Probing → Ready, or to
// Failed from either of the first two. Failed is terminal; recovery is an
// operator restart.
type State int32

const (
	StateLoading State = iota
	StateProbing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateProbing:
		return "probing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// indexKey is the chaincode key holding the set of all contract names.
const indexKey = "_contractindex"

// Gate is the deployment gate. Construct once, call Run from a goroutine at
// startup, and consult Ready on the request path.
type Gate struct {
	ledger     ports.LedgerClient
	cfg        config.GateConfig
	needDeploy bool
	// bootstrap performs the Loading-phase work: enrollment and graph
	// session setup. A failure here is a configuration problem.
	bootstrap func(ctx context.Context) error
	logger    *zap.Logger

	state atomic.Int32

	mu  sync.RWMutex
	err error
}

// New builds a gate. needDeploy is true when no prior chaincode deployment
// is recorded, in which case Run issues the genesis deploy before probing.
func New(ledger ports.LedgerClient, cfg config.GateConfig, needDeploy bool, bootstrap func(ctx context.Context) error, logger *zap.Logger) *Gate {
	return &Gate{
		ledger:     ledger,
		cfg:        cfg,
		needDeploy: needDeploy,
		bootstrap:  bootstrap,
		logger:     logger,
	}
}

// State returns the current gate state.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// Ready reports whether traffic-affecting operations may proceed.
func (g *Gate) Ready() bool {
	return g.State() == StateReady
}

// Err returns the failure recorded when the gate entered StateFailed.
func (g *Gate) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Run drives the state machine to Ready or Failed. It blocks for up to
// settle delay + max attempts * probe interval and is meant to run in its
// own goroutine while the HTTP server rejects requests with 503.
func (g *Gate) Run(ctx context.Context) error {
	if g.bootstrap != nil {
		if err := g.bootstrap(ctx); err != nil {
			return g.fail(apperrors.NewConfigurationError("startup bootstrap failed").WithCause(err))
		}
	}

	if g.needDeploy {
		g.logger.Info("No prior chaincode deployment, deploying",
			zap.Duration("settle_delay", g.cfg.SettleDelay))
		if _, err := g.ledger.Deploy(ctx, "init", []string{"99"}); err != nil {
			return g.fail(apperrors.NewDeploymentTimeoutError("chaincode deploy failed").WithCause(err))
		}
		// The chaincode container needs tens of seconds before it answers
		// queries; probing earlier just burns attempts.
		select {
		case <-time.After(g.cfg.SettleDelay):
		case <-ctx.Done():
			return g.fail(apperrors.NewDeploymentTimeoutError("startup cancelled").WithCause(ctx.Err()))
		}
	} else {
		g.logger.Info("Chaincode previously deployed, skipping deploy")
	}

	g.state.Store(int32(StateProbing))
	if err := g.probe(ctx); err != nil {
		return g.fail(err)
	}

	g.state.Store(int32(StateReady))
	g.logger.Info("Chaincode confirmed queryable, gate open")
	return nil
}

// probe polls the contract index until the chaincode answers sensibly.
// Fixed-interval backoff, bounded attempt count, hard giveup.
func (g *Gate) probe(ctx context.Context) error {
	attempt := 0
	var lastErr error

	operation := func() error {
		attempt++
		g.logger.Info("Probing chaincode", zap.Int("attempt", attempt), zap.Int("max_attempts", g.cfg.MaxAttempts))

		resp, err := g.ledger.Query(ctx, "read", []string{indexKey})
		if err != nil {
			lastErr = err
			return err
		}
		if chaincodeAnswered(resp) {
			return nil
		}
		lastErr = fmt.Errorf("unexpected index payload: %.60s", string(resp))
		return lastErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.cfg.ProbeInterval), uint64(g.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return apperrors.NewDeploymentTimeoutError(diagnose(lastErr)).WithCause(err)
	}
	return nil
}

// chaincodeAnswered interprets the index payload. A literal "null" means a
// fresh ledger with no contracts; a JSON array means contracts exist. Both
// prove the chaincode is up. Anything else counts as not ready.
func chaincodeAnswered(resp []byte) bool {
	if string(resp) == "null" {
		return true
	}
	var names []string
	return json.Unmarshal(resp, &names) == nil
}

// diagnose distinguishes "the network is broken" from "the chaincode is
// slow" in the giveup message.
func diagnose(lastErr error) string {
	if apperrors.IsUnavailable(lastErr) {
		return "chaincode never became queryable: network error talking to the peer, check peer logs"
	}
	return "chaincode is taking an unusually long time to start, check peer logs"
}

func (g *Gate) fail(err error) error {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
	g.state.Store(int32(StateFailed))
	g.logger.Error("Deployment gate failed", zap.Error(err))
	return err
}
