//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/deploygate"
	"github.com/garrettrowe/contracts-blockchain/application/orchestrator"
	"github.com/garrettrowe/contracts-blockchain/application/ports"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/graph"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/ledger"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// Container holds all application dependencies.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Ledger       *ledger.Client
	Graph        *graph.Client
	Gate         *deploygate.Gate
	Orchestrator *orchestrator.Orchestrator
	ErrorHandler *apperrors.ErrorHandler
}

// SuperSet is the main provider set.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideLedgerClient,
	ProvideGraphClient,
	ProvideGate,
	ProvideOrchestrator,
	ProvideErrorHandler,
	wire.Bind(new(ports.LedgerClient), new(*ledger.Client)),
	wire.Bind(new(ports.GraphClient), new(*graph.Client)),
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
