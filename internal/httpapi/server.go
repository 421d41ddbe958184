package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/johnrirwin/devicedeck/internal/auth"
	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/chat"
	"github.com/johnrirwin/devicedeck/internal/compare"
	"github.com/johnrirwin/devicedeck/internal/facets"
	"github.com/johnrirwin/devicedeck/internal/history"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/wishlist"
)

// Services are the handlers' collaborators. Auth is nil when sign-in is
// unavailable; shopper routes then answer 503.
type Services struct {
	Catalog  *catalog.Service
	Facets   *facets.Catalog
	Compare  *compare.Service
	Wishlist *wishlist.Service
	History  *history.Service
	Chat     *chat.Service
	Auth     *auth.Service
	Frontend string
}

type Server struct {
	services       Services
	authMiddleware *auth.Middleware
	allowedOrigins map[string]bool
	allowAll       bool
	logger         *logging.Logger
	server         *http.Server
}

func New(services Services, allowedOrigins []string, logger *logging.Logger) *Server {
	s := &Server{
		services:       services,
		authMiddleware: auth.NewMiddleware(services.Auth),
		allowedOrigins: make(map[string]bool),
		logger:         logger,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			s.allowAll = true
		}
		s.allowedOrigins[origin] = true
	}
	return s
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	catalogAPI := NewCatalogAPI(s.services.Catalog, s.services.Facets, s.services.Compare, s.services.History, s.services.Wishlist, s.authMiddleware, s.logger)
	catalogAPI.RegisterRoutes(mux, s.corsMiddleware)

	shopperAPI := NewShopperAPI(s.services.Wishlist, s.services.History, s.authMiddleware, s.logger)
	shopperAPI.RegisterRoutes(mux, s.corsMiddleware)

	chatAPI := NewChatAPI(s.services.Chat, s.logger)
	chatAPI.RegisterRoutes(mux, s.corsMiddleware)

	authAPI := NewAuthAPI(s.services.Auth, s.authMiddleware, s.services.Frontend, s.logger)
	authAPI.RegisterRoutes(mux, s.corsMiddleware)

	profileAPI := NewProfileAPI(s.services.Auth, s.authMiddleware, s.logger)
	profileAPI.RegisterRoutes(mux, s.corsMiddleware)

	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case s.allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.allowedOrigins[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"catalogSource": s.services.Catalog.SourceName(),
		"auth":          s.services.Auth != nil,
	})
}
