package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"topomap/internal/editor"
	"topomap/internal/hub"
	"topomap/internal/metrics"
	"topomap/internal/service"
)

// RouterConfig holds everything the router serves
type RouterConfig struct {
	Service        *service.TopologyService
	Editor         *editor.Editor
	Hub            *hub.Hub
	Metrics        *metrics.Registry
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter builds the HTTP handler tree
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := NewTopologyHandler(cfg.Service, cfg.Editor, logger)

	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(logger))
	router.Use(Metrics(cfg.Metrics))

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		nodes, links := cfg.Service.Counts()
		h.writeJSON(w, map[string]interface{}{
			"status":  "ok",
			"nodes":   nodes,
			"links":   links,
			"clients": cfg.Hub.ClientCount(),
		}, http.StatusOK)
	})
	router.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Prometheus(), promhttp.HandlerOpts{}))
	router.Handle("/events", cfg.Hub)
	router.Handle("/ws", hub.NewWebSocketHandler(cfg.Hub, originChecker(cfg.AllowedOrigins)))

	router.Route("/api", func(r chi.Router) {
		r.Get("/device-types", h.ListDeviceTypes)
		r.Get("/topology", h.GetTopology)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", h.CreateNode)
			r.Get("/{nodeID}", h.GetNode)
			r.Patch("/{nodeID}", h.UpdateNode)
			r.Delete("/{nodeID}", h.DeleteNode)
			r.Put("/{nodeID}/position", h.MoveNode)
			r.Put("/{nodeID}/parent", h.SetParent)
			r.Get("/{nodeID}/children", h.ListChildren)
			r.Put("/{nodeID}/metrics", h.UpdateNodeMetrics)
			r.Get("/{nodeID}/ports", h.ListPorts)
			r.Put("/{nodeID}/ports/{port}", h.SetPortStatus)
		})
		r.Put("/positions", h.SavePositions)

		r.Route("/links", func(r chi.Router) {
			r.Get("/{linkID}", h.GetLink)
			r.Patch("/{linkID}", h.UpdateLink)
			r.Delete("/{linkID}", h.DeleteLink)
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", h.GetSelection)
			r.Delete("/", h.CancelSelection)
			r.Post("/source", h.SelectSource)
			r.Post("/hover", h.HoverTarget)
			r.Delete("/hover", h.ClearHover)
			r.Post("/target", h.SelectTarget)
		})

		r.Post("/import", h.Import)
		r.Get("/export", h.Export)
		r.Get("/viewport", h.GetViewport)
		r.Put("/viewport", h.SetViewport)

		r.Route("/editor", func(r chi.Router) {
			r.Get("/", h.GetEditorState)
			r.Post("/placement", h.StartPlacement)
			r.Delete("/placement", h.CancelPlacement)
			r.Post("/commit", h.CommitPlacement)
			r.Post("/click", h.ClickPort)
			r.Post("/pointer", h.PointerMove)
			r.Post("/escape", h.Escape)
			r.Post("/pan", h.Pan)
			r.Post("/zoom", h.Zoom)
		})
	})

	return router
}

// originChecker accepts WebSocket handshakes from the configured origins.
// With none configured the upgrader's same-origin check applies.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		return set["*"] || set[r.Header.Get("Origin")]
	}
}
