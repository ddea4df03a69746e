// Package http is the REST boundary of the service: routing, auth,
// rate limiting and JSON encoding around the service layer.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"equilo/internal/auth"
	applog "equilo/internal/log"
	"equilo/internal/metrics"
	"equilo/internal/service"
)

// Services groups the application services the server dispatches to.
type Services struct {
	Auth      *service.AuthService
	Places    *service.PlaceService
	Invites   *service.InviteService
	Expenses  *service.ExpenseService
	Summaries *service.SummaryService
	Tokens    *auth.JWTManager
}

type Server struct {
	http.Server
	svc         Services
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services) *Server {
	mux := http.NewServeMux()

	httpLog := applog.Default().WithComponent(applog.ComponentHTTP)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           applog.Middleware(httpLog)(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	// Auth
	mux.HandleFunc("POST /api/auth/register/{$}", s.secure(s.handleRegister))
	mux.HandleFunc("POST /api/auth/token/{$}", s.secure(s.handleToken))
	mux.HandleFunc("POST /api/auth/token/refresh/{$}", s.secure(s.handleTokenRefresh))
	mux.HandleFunc("GET /api/auth/me/{$}", s.authed(s.handleMe))

	// Places
	mux.HandleFunc("GET /api/places/{$}", s.authed(s.handleListPlaces))
	mux.HandleFunc("POST /api/places/{$}", s.authed(s.handleCreatePlace))
	mux.HandleFunc("GET /api/places/{id}/{$}", s.authed(s.handleGetPlace))
	mux.HandleFunc("GET /api/places/{id}/members/{$}", s.authed(s.handleListMembers))
	mux.HandleFunc("GET /api/places/{id}/summary/{$}", s.authed(s.handleSummary))

	// Categories
	mux.HandleFunc("GET /api/places/{id}/categories/{$}", s.authed(s.handleListCategories))
	mux.HandleFunc("POST /api/places/{id}/categories/{$}", s.authed(s.handleCreateCategory))
	mux.HandleFunc("GET /api/places/{id}/categories/{cid}/{$}", s.authed(s.handleGetCategory))
	mux.HandleFunc("PUT /api/places/{id}/categories/{cid}/{$}", s.authed(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/places/{id}/categories/{cid}/{$}", s.authed(s.handleDeleteCategory))

	// Expenses
	mux.HandleFunc("GET /api/places/{id}/expenses/{$}", s.authed(s.handleListExpenses))
	mux.HandleFunc("POST /api/places/{id}/expenses/{$}", s.authed(s.handleCreateExpense))
	mux.HandleFunc("GET /api/places/{id}/expenses/{eid}/{$}", s.authed(s.handleGetExpense))
	mux.HandleFunc("PATCH /api/places/{id}/expenses/{eid}/{$}", s.authed(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/places/{id}/expenses/{eid}/{$}", s.authed(s.handleDeleteExpense))

	// Invites
	mux.HandleFunc("GET /api/places/{id}/invites/{$}", s.authed(s.handleListInvites))
	mux.HandleFunc("POST /api/places/{id}/invites/{$}", s.authed(s.handleCreateInvite))
	mux.HandleFunc("DELETE /api/places/{id}/invites/{iid}/{$}", s.authed(s.handleRevokeInvite))
	mux.HandleFunc("GET /api/invite/{token}/{$}", s.secure(s.handleInvitePreview))
	mux.HandleFunc("POST /api/join/{token}/{$}", s.authed(s.handleJoin))

	return s
}

// secure adds security headers, rate limiting, request IDs and request
// logging. Every route goes through it.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		logger := applog.FromContext(ctx).With(applog.FieldRequestID, requestID)
		httpLog := applog.NewStructuredLogger(logger)
		httpLog.LogHTTPStart(ctx, r, clientIP)

		// Rate limit mutating requests per client IP.
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !s.rateLimiter.allow(clientIP) {
				logger.WarnContext(ctx, "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		httpLog.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// authed is secure plus bearer-token authentication.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return s.secure(s.requireUser(next))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
