// Package http exposes the lesson ledger as a JSON API: session auth,
// course and record CRUD, the monthly aggregation view, and CSV export.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/sessions"

	"keshi/internal/services"
)

const sessionName = "keshi_session"

// cacheCleanupInterval paces the periodic sweep of expired stats cache
// entries.
const cacheCleanupInterval = 10 * time.Minute

type Server struct {
	http.Server

	sessions *sessions.CookieStore

	records *services.RecordService
	courses *services.CourseService
	stats   *services.StatsService
	export  *services.ExportService
	users   *services.UserService

	readyCheck func(ctx context.Context) error

	loginLimiter *rateLimiter

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Services bundles the use-case layer the server fronts.
type Services struct {
	Records *services.RecordService
	Courses *services.CourseService
	Stats   *services.StatsService
	Export  *services.ExportService
	Users   *services.UserService
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// readyCheck backs /readyz; nil means always ready.
func NewServer(addr, sessionSecret string, svcs Services, readyCheck func(ctx context.Context) error) *Server {
	mux := http.NewServeMux()

	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		sessions:         store,
		records:          svcs.Records,
		courses:          svcs.Courses,
		stats:            svcs.Stats,
		export:           svcs.Export,
		users:            svcs.Users,
		readyCheck:       readyCheck,
		loginLimiter:     newRateLimiter(),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/login", s.withRequestLog(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.withRequestLog(s.handleLogout))
	mux.HandleFunc("GET /api/auth/me", s.withRequestLog(s.requireAuth(s.handleMe)))

	mux.HandleFunc("GET /api/courses", s.withRequestLog(s.requireAuth(s.handleListCourses)))
	mux.HandleFunc("POST /api/courses", s.withRequestLog(s.requireAuth(s.handleCreateCourse)))
	mux.HandleFunc("GET /api/courses/{id}", s.withRequestLog(s.requireAuth(s.handleGetCourse)))
	mux.HandleFunc("PUT /api/courses/{id}", s.withRequestLog(s.requireAuth(s.handleRenameCourse)))
	mux.HandleFunc("DELETE /api/courses/{id}", s.withRequestLog(s.requireAuth(s.handleDeleteCourse)))

	mux.HandleFunc("GET /api/records", s.withRequestLog(s.requireAuth(s.handleListRecords)))
	mux.HandleFunc("POST /api/records", s.withRequestLog(s.requireAuth(s.handleCreateRecord)))
	mux.HandleFunc("GET /api/records/{id}", s.withRequestLog(s.requireAuth(s.handleGetRecord)))
	mux.HandleFunc("DELETE /api/records/{id}", s.withRequestLog(s.requireAuth(s.handleDeleteRecord)))

	mux.HandleFunc("GET /api/stats", s.withRequestLog(s.requireAuth(s.handleStats)))
	mux.HandleFunc("GET /api/export", s.withRequestLog(s.requireAuth(s.handleExport)))

	mux.HandleFunc("GET /api/admin/users", s.withRequestLog(s.requireAdmin(s.handleListUsers)))
	mux.HandleFunc("POST /api/admin/users", s.withRequestLog(s.requireAdmin(s.handleCreateUser)))
	mux.HandleFunc("PUT /api/admin/users/{id}", s.withRequestLog(s.requireAdmin(s.handleUpdateUser)))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.withRequestLog(s.requireAdmin(s.handleDeleteUser)))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.stats != nil {
				if n := s.stats.CleanExpired(); n > 0 {
					slog.Debug("Stats cache cleanup completed", "entries_removed", n)
				}
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.loginLimiter != nil {
			s.loginLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestLog tags each request with an id, logs start and completion,
// and sets the security headers.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter captures the status code for the completion log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		if err := s.readyCheck(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
