package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/gateway/config"
	"github.com/answerline/answerline/pkg/gateway/feed"
	"github.com/answerline/answerline/pkg/gateway/handlers"
	"github.com/answerline/answerline/pkg/gateway/lifecycle"
	"github.com/answerline/answerline/pkg/gateway/mw"
	"github.com/answerline/answerline/pkg/gateway/ratelimit"
	"github.com/answerline/answerline/pkg/voice"
)

// Deps carries everything the HTTP surface needs. The store interfaces
// are all satisfied by *store.DB; they are split so tests can fake each
// slice independently.
type Deps struct {
	Accounts   handlers.AccountStore
	Calls      handlers.CallStore
	Orders     handlers.OrderStore
	Businesses handlers.BusinessStore
	Export     handlers.ExportStore
	Pinger     handlers.Pinger

	Orch *voice.Orchestrator
	Hub  *feed.Hub
	Auth *auth.Manager

	Lifecycle *lifecycle.Lifecycle
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	deps    Deps
	limiter *ratelimit.Limiter
}

func New(cfg config.Config, logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = feed.NewHub(logger)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		deps:   deps,
		limiter: ratelimit.New(ratelimit.Config{
			RPS:   cfg.LimitRPS,
			Burst: cfg.LimitBurst,
		}),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{DB: s.deps.Pinger, Lifecycle: s.deps.Lifecycle})

	vh := handlers.VoiceHandler{
		Orch:    s.deps.Orch,
		Feed:    s.deps.Hub,
		Logger:  s.logger,
		BaseURL: s.cfg.PublicBaseURL,
	}
	s.mux.Handle("POST /voice/answer", s.webhook(vh.Answer))
	s.mux.Handle("POST /voice/process", s.webhook(vh.Process))
	s.mux.Handle("POST /voice/hangup", s.webhook(vh.Hangup))

	ah := handlers.AccountsHandler{DB: s.deps.Accounts, Auth: s.deps.Auth, Logger: s.logger}
	s.mux.Handle("POST /api/auth/signup", s.bounded(http.HandlerFunc(ah.Signup)))
	s.mux.Handle("POST /api/auth/login", s.bounded(http.HandlerFunc(ah.Login)))
	s.mux.Handle("GET /api/auth/me", s.authed(ah.Me))

	ch := handlers.CallsHandler{DB: s.deps.Calls}
	s.mux.Handle("GET /api/calls", s.authed(ch.List))
	s.mux.Handle("GET /api/calls/{sid}", s.authed(ch.Details))
	s.mux.Handle("GET /api/stats", s.authed(ch.Stats))
	s.mux.Handle("GET /api/charts", s.authed(ch.Charts))

	oh := handlers.OrdersHandler{DB: s.deps.Orders}
	s.mux.Handle("GET /api/orders", s.authed(oh.List))
	s.mux.Handle("GET /api/orders/stats", s.authed(oh.Stats))
	s.mux.Handle("GET /api/orders/{id}", s.authed(oh.Get))
	s.mux.Handle("PUT /api/orders/{id}/status", s.authed(oh.UpdateStatus))

	bh := handlers.BusinessesHandler{DB: s.deps.Businesses}
	s.mux.Handle("GET /api/businesses", s.authed(bh.List))
	s.mux.Handle("POST /api/businesses", s.authed(bh.Create))
	s.mux.Handle("GET /api/businesses/{id}", s.authed(bh.Get))
	s.mux.Handle("PUT /api/businesses/{id}", s.authed(bh.Update))
	s.mux.Handle("POST /api/businesses/{id}/activate", s.authed(bh.Activate))

	eh := handlers.ExportHandler{DB: s.deps.Export}
	s.mux.Handle("GET /api/export/calls", s.authed(eh.Calls))
	s.mux.Handle("GET /api/export/orders", s.authed(eh.Orders))

	s.mux.Handle("GET /api/live", handlers.LiveHandler{
		Hub:            s.deps.Hub,
		Auth:           s.deps.Auth,
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		Logger:         s.logger,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.bounded(mw.RequireAuth(s.deps.Auth, h))
}

func (s *Server) webhook(h http.HandlerFunc) http.Handler {
	return s.bounded(mw.WebhookToken(s.cfg.WebhookAuthToken, h))
}

// bounded applies the handler deadline. The live feed route stays
// unbounded on purpose: its websocket outlives any request deadline.
func (s *Server) bounded(h http.Handler) http.Handler {
	return mw.Deadline(s.cfg.HandlerTimeout, h)
}

// SetDraining flips readiness so load balancers stop sending new calls
// while in-flight requests finish.
func (s *Server) SetDraining() {
	s.deps.Lifecycle.SetDraining(true)
}

// ShutdownFeed closes dashboard feed sockets, bounded by ctx.
func (s *Server) ShutdownFeed(ctx context.Context) {
	if s.deps.Hub != nil {
		s.deps.Hub.Shutdown(ctx)
	}
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.RateLimit(s.limiter, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
