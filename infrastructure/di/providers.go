package di

import (
	"context"

	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/deploygate"
	"github.com/garrettrowe/contracts-blockchain/application/orchestrator"
	"github.com/garrettrowe/contracts-blockchain/application/ports"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/graph"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/ledger"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideLedgerClient creates the peer client.
func ProvideLedgerClient(cfg *config.Config, logger *zap.Logger) *ledger.Client {
	return ledger.NewClient(cfg.Ledger, logger)
}

// ProvideGraphClient creates the graph client.
func ProvideGraphClient(cfg *config.Config, logger *zap.Logger) *graph.Client {
	return graph.NewClient(cfg.Graph, logger)
}

// ProvideGate creates the deployment gate. Its bootstrap step performs the
// loading-phase handshakes: membership enrollment when the binding supplies
// users, and the graph session.
func ProvideGate(ledgerClient *ledger.Client, graphClient *graph.Client, cfg *config.Config, logger *zap.Logger) *deploygate.Gate {
	bootstrap := func(ctx context.Context) error {
		if err := ledgerClient.Enroll(ctx, cfg.Ledger.EnrollID, cfg.Ledger.EnrollSecret); err != nil {
			return err
		}
		return graphClient.OpenSession(ctx)
	}
	needDeploy := cfg.Ledger.ChaincodeName == ""
	return deploygate.New(ledgerClient, cfg.Gate, needDeploy, bootstrap, logger)
}

// ProvideOrchestrator creates the contract orchestrator.
func ProvideOrchestrator(ledgerClient ports.LedgerClient, graphClient ports.GraphClient, logger *zap.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(ledgerClient, graphClient, logger)
}

// ProvideErrorHandler creates the HTTP error handler. Debug detail only
// outside production.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}
