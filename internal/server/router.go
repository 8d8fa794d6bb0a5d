package server

import (
	"net/http"

	"github.com/agentstation/tasklink/internal/server/handlers"
	"github.com/agentstation/tasklink/internal/server/middleware"
	"github.com/agentstation/tasklink/internal/server/response"
)

func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	h := handlers.New(s.client, s.cache, s.broker, s.wsHub, s.upgrader, s.logger)
	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	p := s.config.PathPrefix

	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+p+"/health", h.HandleHealth)

	mux.HandleFunc("GET "+p+"/pairs", h.HandleListPairs)
	mux.HandleFunc("POST "+p+"/pairs", h.HandleCreatePair)
	mux.HandleFunc("GET "+p+"/pairs/{id}", h.HandleGetPair)
	mux.HandleFunc("DELETE "+p+"/pairs/{id}", h.HandleDeletePair)
	mux.HandleFunc("POST "+p+"/pairs/{id}/snapshot", h.HandleSnapshot)

	mux.HandleFunc("GET "+p+"/suggestions/{sourceID}", h.HandleSuggest)
	mux.HandleFunc("POST "+p+"/match/auto", h.HandleAutoMatch)
	mux.HandleFunc("POST "+p+"/match/accept", h.HandleAccept)

	mux.HandleFunc("POST "+p+"/detect", h.HandleDetect)
	mux.HandleFunc("GET "+p+"/changes", h.HandleChanges)

	mux.HandleFunc("GET "+p+"/updates/ws", h.HandleWebSocket)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found", r.Method+" "+r.URL.Path)
	})
}

// applyMiddleware wraps handler so recovery runs outermost and rate
// limiting runs last.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
		middleware.CORS(middleware.DefaultCORSConfig(s.config.CORSOrigins)),
		middleware.Auth(middleware.DefaultAuthConfig(s.config.AuthToken, s.config.PathPrefix), s.logger),
	}
	if s.limiter != nil {
		chain = append(chain, middleware.RateLimit(s.limiter))
	}
	return middleware.Chain(chain...)(handler)
}
