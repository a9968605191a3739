package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"saku/internal/cache"
	"saku/internal/log"
	"saku/internal/middleware/ratelimit"
	"saku/internal/middleware/security"
	"saku/internal/middleware/trace"
	"saku/internal/services"
)

// Options configures the API server. Zero values take defaults.
type Options struct {
	Logger             *log.Logger
	Currency           string
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration
	IdempotencyEntries int
	// Clock is overridable for tests.
	Clock func() time.Time
}

// Server is the JSON API over a services.Engine.
type Server struct {
	http.Server
	engine *services.Engine
	logger *log.Logger
	view   presenter
	now    func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	idempotency      *cache.Idempotency
	cacheManager     *cache.Manager
	appMetrics       *appMetrics

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

type appMetrics struct {
	entriesAppended   int64
	transfers         int64
	fundings          int64
	idempotentReplays int64
	uptime            time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// Background cleanup runs until Shutdown.
func NewServer(addr string, engine *services.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 10 * time.Minute
	}
	if opts.IdempotencyEntries <= 0 {
		opts.IdempotencyEntries = 10000
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		engine:           engine,
		logger:           logger,
		view:             presenter{currency: opts.Currency},
		now:              opts.Clock,
		securityDetector: security.NewDetector(logger),
		idempotency:      cache.NewIdempotency(opts.IdempotencyEntries, opts.IdempotencyTTL),
		cacheManager:     cache.NewManager(logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	rlConfig := ratelimit.DefaultConfig()
	rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	s.rateLimiter = ratelimit.NewLimiter(rlConfig)
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(s.idempotency)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.rateLimiter.Run(ctx)
	go s.cacheManager.Run(ctx, time.Minute)

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /v1/entries", s.owned(s.idempotent(s.handleAppendEntry)))
	mux.HandleFunc("GET /v1/entries", s.owned(s.handleQueryEntries))
	mux.HandleFunc("DELETE /v1/entries/{id}", s.owned(s.handleRemoveEntry))

	mux.HandleFunc("POST /v1/pockets", s.owned(s.handleCreatePocket))
	mux.HandleFunc("GET /v1/pockets", s.owned(s.handleListPockets))
	mux.HandleFunc("GET /v1/pockets/{id}", s.owned(s.handleGetPocket))
	mux.HandleFunc("DELETE /v1/pockets/{id}", s.owned(s.handleDeletePocket))

	mux.HandleFunc("POST /v1/categories", s.owned(s.handleCreateCategory))
	mux.HandleFunc("GET /v1/categories", s.owned(s.handleListCategories))
	mux.HandleFunc("DELETE /v1/categories/{id}", s.owned(s.handleDeleteCategory))
	mux.HandleFunc("GET /v1/categories/{id}/spend", s.owned(s.handleCategorySpend))

	mux.HandleFunc("POST /v1/transfers", s.owned(s.idempotent(s.handleTransfer)))

	mux.HandleFunc("POST /v1/goals", s.owned(s.handleCreateGoal))
	mux.HandleFunc("GET /v1/goals", s.owned(s.handleListGoals))
	mux.HandleFunc("GET /v1/goals/{id}", s.owned(s.handleGetGoal))
	mux.HandleFunc("DELETE /v1/goals/{id}", s.owned(s.handleDeleteGoal))
	mux.HandleFunc("POST /v1/goals/{id}/fund", s.owned(s.idempotent(s.handleFundGoal)))

	mux.HandleFunc("PUT /v1/budgets", s.owned(s.handleSetBudget))
	mux.HandleFunc("GET /v1/budgets", s.owned(s.handleBudgetStatus))
	mux.HandleFunc("DELETE /v1/budgets/{id}", s.owned(s.handleDeleteBudget))

	mux.HandleFunc("GET /v1/balance", s.owned(s.handleBalance))
	mux.HandleFunc("GET /v1/reports/summary", s.owned(s.handleReport))
	mux.HandleFunc("GET /v1/dashboard", s.owned(s.handleDashboard))

	mux.HandleFunc("POST /v1/rules", s.owned(s.handleCreateRule))
	mux.HandleFunc("GET /v1/rules", s.owned(s.handleListRules))
	mux.HandleFunc("DELETE /v1/rules/{id}", s.owned(s.handleDeleteRule))
}

// ownerHandler is a handler that runs for an identified owner.
type ownerHandler func(w http.ResponseWriter, r *http.Request, owner string)

// owned rejects requests without an owner id.
func (s *Server) owned(h ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := ownerFromRequest(r)
		if owner == "" {
			MessageResponse(http.StatusUnauthorized, codeUnauthorized, "missing or invalid "+HeaderOwnerID+" header").Write(w)
			return
		}
		h(w, r, owner)
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	MessageResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
}

// writeError logs server-side failures and sends the mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, _ := statusFor(err)
	if status >= 500 || status == http.StatusConflict {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithOwner(ownerFromRequest(r)))
	}
	ErrorResponse(err).Write(w)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Data(v).Write(w)
}

func (s *Server) countCreated(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
