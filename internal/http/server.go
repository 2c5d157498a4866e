// Package http exposes the ledger operations as a JSON API. This is the
// interface boundary the UI consumes; nothing here touches wallet balances
// except through the ledger engine.
package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"portafoglio/internal/cache"
	"portafoglio/internal/currency"
	"portafoglio/internal/ledger"
	applog "portafoglio/internal/log"
	"portafoglio/internal/middleware/ratelimit"
	"portafoglio/internal/middleware/security"
	"portafoglio/internal/middleware/trace"
)

// Options tunes the server middleware and caches.
type Options struct {
	RequestsPerMinute int
	ReportCacheTTL    time.Duration
	ReportCacheSize   int
}

// DefaultOptions returns the defaults used when an Options field is zero.
func DefaultOptions() Options {
	return Options{
		RequestsPerMinute: 120,
		ReportCacheTTL:    30 * time.Second,
		ReportCacheSize:   256,
	}
}

// Server wires the ledger behind HTTP handlers with the middleware chain
// trace -> ratelimit -> security headers -> metrics.
type Server struct {
	*http.Server

	ledger      *ledger.Ledger
	rates       *currency.Table
	reportCache *cache.LRU[decimal.Decimal]
	limiter     *ratelimit.Limiter
	cacheMgr    *cache.Manager
}

// NewServer builds the full handler chain listening on addr.
func NewServer(addr string, lgr *ledger.Ledger, rates *currency.Table, opts Options) *Server {
	def := DefaultOptions()
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = def.RequestsPerMinute
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = def.ReportCacheTTL
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = def.ReportCacheSize
	}

	s := &Server{
		ledger:      lgr,
		rates:       rates,
		reportCache: cache.NewLRU[decimal.Decimal](opts.ReportCacheSize, opts.ReportCacheTTL),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		cacheMgr: cache.NewManager(),
	}
	s.cacheMgr.Register(s.reportCache)
	s.cacheMgr.StartCleanup(opts.ReportCacheTTL)

	mux := http.NewServeMux()
	s.routes(mux)

	traceMW := trace.NewMiddleware(clientIP)
	securityMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	reqLogger := applog.New(applog.Config{
		Handler:   slog.Default().Handler(),
		Component: applog.ComponentHTTP,
	})

	var handler http.Handler = mux
	handler = s.metricsMiddleware(mux, handler)
	handler = securityMW.Middleware(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = traceMW.Middleware(handler)
	handler = applog.Middleware(reqLogger)(handler)

	s.Server = &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/wallets", s.handleCreateWallet)
	mux.HandleFunc("GET /api/wallets", s.handleListWallets)
	mux.HandleFunc("GET /api/wallets/{id}", s.handleGetWallet)
	mux.HandleFunc("PUT /api/wallets/{id}", s.handleUpdateWallet)
	mux.HandleFunc("DELETE /api/wallets/{id}", s.handleDeleteWallet)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/reports/daily", s.handleDailyTotal)
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthlyTotal)
	mux.HandleFunc("GET /api/currencies", s.handleListCurrencies)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Stop releases the limiter and cache goroutines. Call after Shutdown.
func (s *Server) Stop() {
	s.limiter.Stop()
	s.cacheMgr.Stop()
}

func (s *Server) referenceCurrency() string {
	return currency.Reference
}

// invalidateReports drops cached totals after any committed mutation.
func (s *Server) invalidateReports() {
	s.reportCache.Purge()
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.Allow(ip) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldPath, r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, errorBody("rate_limited", "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
