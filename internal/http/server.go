package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/blob"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/report"
)

// Options wires the server's collaborators. Publisher and Blobs may be nil
// in tests; Blobs is required for attachment routes to work.
type Options struct {
	Addr      string
	Store     Store
	Reports   *report.Service
	HTML      *report.HTMLRenderer
	Blobs     blob.Backend
	Publisher CleanupPublisher

	RateLimitPerMinute int
	StatsCacheTTL      time.Duration
}

type Server struct {
	http.Server

	store     Store
	reports   *report.Service
	html      *report.HTMLRenderer
	blobs     blob.Backend
	publisher CleanupPublisher

	limiter      *ratelimit.Limiter
	statsCache   *cache.LRUCache[core.Statistics]
	statsTTL     time.Duration
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = 3 * time.Minute
	}

	s := &Server{
		store:     opts.Store,
		reports:   opts.Reports,
		html:      opts.HTML,
		blobs:     opts.Blobs,
		publisher: opts.Publisher,

		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		statsCache:   cache.NewLRUCache[core.Statistics](200, opts.StatsCacheTTL),
		statsTTL:     opts.StatsCacheTTL,
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/transactions", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/statistics", s.requireUser(s.handleStatistics))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireUser(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireUser(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireUser(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/transactions/{id}/attachments", s.requireUser(s.handleListAttachments))

	mux.HandleFunc("POST /api/categories", s.requireUser(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.HandleFunc("GET /api/categories/{id}", s.requireUser(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.requireUser(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.requireUser(s.handleDeleteCategory))
	mux.HandleFunc("GET /api/categories/{id}/statistics", s.requireUser(s.handleCategoryStatistics))

	mux.HandleFunc("GET /api/tags", s.requireUser(s.handleListTags))

	mux.HandleFunc("GET /api/reports", s.requireUser(s.handleReport))
	mux.HandleFunc("GET /api/reports/export/csv", s.requireUser(s.handleExportCSV))
	mux.HandleFunc("GET /api/reports/export/html", s.requireUser(s.handleExportHTML))
	mux.HandleFunc("GET /api/reports/chart", s.requireUser(s.handleTrendChart))

	mux.HandleFunc("POST /api/attachments", s.requireUser(s.handleCreateAttachment))
	mux.HandleFunc("DELETE /api/attachments/{id}", s.requireUser(s.handleDeleteAttachment))
	mux.HandleFunc("GET /files/{id}", s.requireUser(s.handleServeFile))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(extractClientIP)
	limited := s.limiter.Middleware(extractClientIP, nil)(mux)

	// Writes are rate limited; reads pass through.
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			mux.ServeHTTP(w, r)
		}
	})

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: tracer.Middleware(headers.Middleware(root)),
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type contextKey string

const userIDKey contextKey = "user_id"

// requireUser resolves the owner from the X-User-ID header. Authentication
// itself happens upstream; the app only scopes data per user.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func ownerID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// extractClientIP considers proxy headers before the socket address.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
