// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"membitpulse/internal/config"
	"membitpulse/internal/domain/trend"
	"membitpulse/internal/server/handlers"
	"membitpulse/internal/telemetry"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server. feed and metrics may be nil, which
// disables the live feed and the /metrics endpoint.
func NewServer(
	cfg config.ServerConfig,
	trendDetector trend.Detector,
	searcher handlers.Searcher,
	agentRunner handlers.AgentRunner,
	chatProxy handlers.ChatProxy,
	feed handlers.TrendFeed,
	metrics *telemetry.Recorder,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	var recorder RequestRecorder
	if metrics != nil {
		recorder = metrics
	}
	router.Use(requestLogger(recorder))
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create handler dependencies
	trendHandler := handlers.NewTrendHandler(trendDetector)
	searchHandler := handlers.NewSearchHandler(searcher)
	agentHandler := handlers.NewAgentHandler(agentRunner)
	flowiseHandler := handlers.NewFlowiseHandler(chatProxy)

	pingMessage := cfg.PingMessage
	if pingMessage == "" {
		pingMessage = "ping"
	}

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, "{\"message\":%q}", pingMessage)
		})

		// Membit API
		r.Route("/membit", func(r chi.Router) {
			r.Get("/trends", trendHandler.GetTrends)
			r.Post("/search-posts", searchHandler.SearchPosts)
			r.Post("/search-clusters", searchHandler.SearchClusters)
		})

		// Agent API
		r.Post("/agent/run", agentHandler.Run)

		// Flowise API
		r.Route("/flowise", func(r chi.Router) {
			r.Post("/chat", flowiseHandler.Chat)
			r.Get("/config", flowiseHandler.Config)
		})
	})

	// WebSocket endpoint for the live trend feed
	router.Get("/ws/trends", handlers.TrendWebSocketHandler(feed))

	if metrics != nil {
		router.Handle("/metrics", metrics.Handler())
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
