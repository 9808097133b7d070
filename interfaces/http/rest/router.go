package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/deploygate"
	"github.com/garrettrowe/contracts-blockchain/application/orchestrator"
	"github.com/garrettrowe/contracts-blockchain/interfaces/http/rest/handlers"
	"github.com/garrettrowe/contracts-blockchain/interfaces/http/rest/middleware"
	"github.com/garrettrowe/contracts-blockchain/pkg/common"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// Router creates and configures the HTTP router.
type Router struct {
	orch       *orchestrator.Orchestrator
	gate       *deploygate.Gate
	errHandler *apperrors.ErrorHandler
	enableCORS bool
	logger     *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	orch *orchestrator.Orchestrator,
	gate *deploygate.Gate,
	errHandler *apperrors.ErrorHandler,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		orch:       orch,
		gate:       gate,
		errHandler: errHandler,
		enableCORS: enableCORS,
		logger:     logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Compress(5))
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		// The web client is served from anywhere; the API is open.
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/", rt.info)
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	contractHandler := handlers.NewContractHandler(rt.orch, rt.errHandler, rt.logger)

	router.Route("/api", func(r chi.Router) {
		r.Get("/", apiInfo)
		r.Post("/", apiInfo)

		// Everything below touches the backends; gated until the chaincode
		// is confirmed queryable.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Readiness(rt.gate, rt.errHandler))
			r.Post("/create", contractHandler.Create)
			r.Post("/index", contractHandler.Index)
			r.Post("/delete", contractHandler.Delete)
			r.Post("/query", contractHandler.Query)
			r.Get("/graphinit", contractHandler.GraphInit)
		})
	})

	return router
}

func (rt *Router) info(w http.ResponseWriter, r *http.Request) {
	common.RespondMessage(w, http.StatusOK, "This is a webapp, so nothing to see here.")
}

func apiInfo(w http.ResponseWriter, r *http.Request) {
	common.RespondMessage(w, http.StatusOK, "Available commands are create, delete, query, and graphinit")
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports the deployment gate's view; load balancers keep
// traffic away until this flips to ready.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.gate.Ready() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Write([]byte(`{"status":"` + rt.gate.State().String() + `"}`))
}
