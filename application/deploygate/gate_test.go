package deploygate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// fakeLedger drives the gate with canned probe behavior.
type fakeLedger struct {
	queryFn  func(attempt int) ([]byte, error)
	deployFn func(fn string, args []string) (string, error)

	queries atomic.Int32
	deploys atomic.Int32
}

func (f *fakeLedger) Invoke(ctx context.Context, fn string, args []string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLedger) Query(ctx context.Context, fn string, args []string) ([]byte, error) {
	n := int(f.queries.Add(1))
	return f.queryFn(n)
}

func (f *fakeLedger) Deploy(ctx context.Context, fn string, args []string) (string, error) {
	f.deploys.Add(1)
	if f.deployFn != nil {
		return f.deployFn(fn, args)
	}
	return "cc-name", nil
}

func fastConfig(maxAttempts int) config.GateConfig {
	return config.GateConfig{
		SettleDelay:   time.Millisecond,
		ProbeInterval: time.Millisecond,
		MaxAttempts:   maxAttempts,
	}
}

func TestGate_ReadyOnFreshLedger(t *testing.T) {
	// "null" from the index key means a brand new ledger with no contracts
	// yet; that still proves the chaincode is answering.
	ledger := &fakeLedger{queryFn: func(int) ([]byte, error) { return []byte("null"), nil }}
	gate := New(ledger, fastConfig(15), false, nil, zap.NewNop())

	require.NoError(t, gate.Run(context.Background()))
	assert.Equal(t, StateReady, gate.State())
	assert.True(t, gate.Ready())
	assert.Equal(t, int32(1), ledger.queries.Load())
	assert.Equal(t, int32(0), ledger.deploys.Load(), "no deploy when one is already recorded")
}

func TestGate_ReadyOnPopulatedLedger(t *testing.T) {
	ledger := &fakeLedger{queryFn: func(int) ([]byte, error) { return []byte(`["C1","C2"]`), nil }}
	gate := New(ledger, fastConfig(15), false, nil, zap.NewNop())

	require.NoError(t, gate.Run(context.Background()))
	assert.True(t, gate.Ready())
}

func TestGate_DeploysWhenNeeded(t *testing.T) {
	var deployedFn string
	var deployedArgs []string
	ledger := &fakeLedger{
		queryFn: func(int) ([]byte, error) { return []byte("null"), nil },
		deployFn: func(fn string, args []string) (string, error) {
			deployedFn = fn
			deployedArgs = args
			return "cc-name", nil
		},
	}
	gate := New(ledger, fastConfig(15), true, nil, zap.NewNop())

	require.NoError(t, gate.Run(context.Background()))
	assert.Equal(t, int32(1), ledger.deploys.Load())
	assert.Equal(t, "init", deployedFn)
	assert.Equal(t, []string{"99"}, deployedArgs)
	assert.True(t, gate.Ready())
}

func TestGate_FailsAfterExactlyMaxAttempts(t *testing.T) {
	// The probe bound is a hard giveup: exactly MaxAttempts probes, never
	// more, never fewer.
	ledger := &fakeLedger{queryFn: func(int) ([]byte, error) { return []byte("starting up"), nil }}
	gate := New(ledger, fastConfig(5), false, nil, zap.NewNop())

	err := gate.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, gate.State())
	assert.False(t, gate.Ready())
	assert.Equal(t, int32(5), ledger.queries.Load())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDeploymentTimeout))
	assert.True(t, apperrors.IsType(gate.Err(), apperrors.ErrorTypeDeploymentTimeout))
}

func TestGate_RecoversMidProbe(t *testing.T) {
	ledger := &fakeLedger{queryFn: func(attempt int) ([]byte, error) {
		if attempt < 3 {
			return nil, apperrors.NewUnavailableError("ledger", errors.New("refused"))
		}
		return []byte("null"), nil
	}}
	gate := New(ledger, fastConfig(5), false, nil, zap.NewNop())

	require.NoError(t, gate.Run(context.Background()))
	assert.True(t, gate.Ready())
	assert.Equal(t, int32(3), ledger.queries.Load())
}

func TestGate_DiagnosticDistinguishesNetworkError(t *testing.T) {
	network := &fakeLedger{queryFn: func(int) ([]byte, error) {
		return nil, apperrors.NewUnavailableError("ledger", errors.New("refused"))
	}}
	gate := New(network, fastConfig(2), false, nil, zap.NewNop())
	err := gate.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network error")

	slow := &fakeLedger{queryFn: func(int) ([]byte, error) { return []byte("starting"), nil }}
	gate = New(slow, fastConfig(2), false, nil, zap.NewNop())
	err = gate.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unusually long time")
}

func TestGate_BootstrapFailureIsConfigurationError(t *testing.T) {
	ledger := &fakeLedger{queryFn: func(int) ([]byte, error) { return []byte("null"), nil }}
	bootstrap := func(ctx context.Context) error { return errors.New("no credentials") }
	gate := New(ledger, fastConfig(5), false, bootstrap, zap.NewNop())

	err := gate.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, gate.State())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
	assert.Equal(t, int32(0), ledger.queries.Load(), "no probing after a failed bootstrap")
}

func TestGate_DeployFailure(t *testing.T) {
	ledger := &fakeLedger{
		queryFn:  func(int) ([]byte, error) { return []byte("null"), nil },
		deployFn: func(string, []string) (string, error) { return "", errors.New("zip unreachable") },
	}
	gate := New(ledger, fastConfig(5), true, nil, zap.NewNop())

	err := gate.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, gate.State())
}

func TestGate_ContextCancellationStopsProbing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ledger := &fakeLedger{queryFn: func(attempt int) ([]byte, error) {
		if attempt == 2 {
			cancel()
		}
		return []byte("starting"), nil
	}}
	gate := New(ledger, config.GateConfig{
		SettleDelay:   time.Millisecond,
		ProbeInterval: 10 * time.Millisecond,
		MaxAttempts:   100,
	}, false, nil, zap.NewNop())

	err := gate.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StateFailed, gate.State())
	assert.Less(t, int(ledger.queries.Load()), 100)
}
