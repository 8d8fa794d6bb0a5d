// Package server provides the HTTP API of tasklink.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/server/cache"
	"github.com/agentstation/tasklink/internal/server/events"
	"github.com/agentstation/tasklink/internal/server/events/adapters"
	"github.com/agentstation/tasklink/internal/server/middleware"
	ws "github.com/agentstation/tasklink/internal/server/websocket"
	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/records"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client   tasklink.Client
	cache    *cache.Cache
	broker   *events.Broker
	wsHub    *ws.Hub
	limiter  *middleware.RateLimiter
	upgrader websocket.Upgrader
	logger   *zerolog.Logger
	config   Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server for client and connects the client's hooks to the
// event broker.
func New(client tasklink.Client, cfg Config, logger *zerolog.Logger) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/v1"
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))

	s := &Server{
		client: client,
		cache:  cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		broker: broker,
		wsHub:  wsHub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origins are checked by the CORS config, not per upgrade
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger: logger,
		config: cfg,
	}
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}
	s.connectHooks()
	return s
}

// connectHooks publishes client events to the broker. Any link or drift
// invalidates cached listings.
func (s *Server) connectHooks() {
	s.client.OnPairLinked(func(pair records.LinkedPair) {
		s.cache.Flush()
		s.broker.Publish(events.PairLinked, pair)
		s.logger.Debug().Str("pair_id", pair.ID).Msg("Pair linked event published")
	})

	s.client.OnDriftDetected(func(pair records.PairRef, changes []records.ChangeRecord) {
		s.cache.Flush()
		s.broker.Publish(events.DriftDetected, map[string]any{
			"pair":    pair,
			"changes": changes,
		})
		s.logger.Debug().
			Str("pair_id", pair.PairID).
			Int("changes", len(changes)).
			Msg("Drift detected event published")
	})
}

// Start runs the background services until ctx is done or Shutdown is
// called.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() { defer s.wg.Done(); s.broker.Run(ctx) }()
	go func() { defer s.wg.Done(); s.wsHub.Run(ctx) }()
	if s.limiter != nil {
		s.wg.Add(1)
		go func() { defer s.wg.Done(); s.limiter.Run(ctx, time.Minute) }()
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops the background services, waiting until they exit or ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Broker returns the event broker.
func (s *Server) Broker() *events.Broker {
	return s.broker
}
