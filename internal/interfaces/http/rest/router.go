// Package rest exposes a FlowGraphStore as a JSON API for the flow editor.
package rest

import (
	"net/http"

	"github.com/flowgraph/chatflow/internal/app/dto"
	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/flowgraph/chatflow/internal/infrastructure/metrics"
	"github.com/flowgraph/chatflow/internal/interfaces/http/rest/middleware"
	"github.com/flowgraph/chatflow/pkg/validation"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultAllowedOrigins is used when the router is built without origins.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Router wires the flow handlers, health and metrics endpoints.
type Router struct {
	store          *services.FlowGraphStore
	archive        *services.VersionArchive
	logger         *zap.Logger
	allowedOrigins []string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithArchive writes every saved version through to archive.
func WithArchive(archive *services.VersionArchive) RouterOption {
	return func(rt *Router) { rt.archive = archive }
}

// WithAllowedOrigins sets the CORS origins allowed to call the API.
func WithAllowedOrigins(origins []string) RouterOption {
	return func(rt *Router) {
		if len(origins) > 0 {
			rt.allowedOrigins = origins
		}
	}
}

// NewRouter creates a new router instance
func NewRouter(store *services.FlowGraphStore, logger *zap.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Router{
		store:          store,
		logger:         logger,
		allowedOrigins: DefaultAllowedOrigins,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", rt.healthCheck)
	router.Get("/metrics", metrics.Handler().ServeHTTP)
	router.Mount("/debug", chimiddleware.Profiler())

	h := NewFlowHandler(rt.store, rt.archive, rt.logger)
	v := validation.NewMiddleware(nil)

	router.Route("/api", func(r chi.Router) {
		r.Get("/node-types", h.NodeTypes)

		r.Route("/flow", func(r chi.Router) {
			r.Get("/", h.GetFlow)
			r.Get("/stats", h.GetStats)

			r.Route("/nodes", func(r chi.Router) {
				r.With(v.ValidateJSON(dto.AddNodeRequest{})).Post("/", h.AddNode)
				r.Get("/{nodeID}", h.GetNode)
				r.Patch("/{nodeID}", h.UpdateNodeData)
				r.With(v.ValidateJSON(dto.MoveNodeRequest{})).Put("/{nodeID}/position", h.MoveNode)
				r.Delete("/{nodeID}", h.RemoveNode)
				r.Get("/{nodeID}/comments", h.NodeComments)
			})

			r.Route("/edges", func(r chi.Router) {
				r.With(v.ValidateJSON(dto.ConnectRequest{})).Post("/", h.Connect)
				r.Delete("/{edgeID}", h.RemoveEdge)
			})

			r.Route("/versions", func(r chi.Router) {
				r.Post("/", h.SaveVersion)
				r.Get("/", h.ListVersions)
				r.Get("/export", h.ExportHistory)
				r.With(v.ValidateJSON(dto.HistoryResponse{})).Post("/import", h.ImportHistory)
				r.Get("/{version}", h.GetVersion)
				r.Post("/{version}/load", h.LoadVersion)
			})

			r.Route("/comments", func(r chi.Router) {
				r.With(v.ValidateJSON(dto.CommentRequest{})).Post("/", h.AddComment)
				r.Get("/", h.ListComments)
			})

			r.Route("/collaborators", func(r chi.Router) {
				r.With(v.ValidateJSON(dto.CollaboratorRequest{})).Post("/", h.AddCollaborator)
				r.Get("/", h.ListCollaborators)
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, rt.logger, http.StatusOK, map[string]string{"status": "ok"})
}
