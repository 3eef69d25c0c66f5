// ABOUTME: HTTP server wiring routes, middleware and handlers for the wellness API.
// ABOUTME: Public routes cover health, metrics and sign-in; everything else needs a bearer token.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/biometrics"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/metrics"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/sirupsen/logrus"
)

// GoogleVerifier checks Google ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleIdentity, error)
}

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins []string
	// AuthRatePerMinute limits sign-in attempts per client address.
	AuthRatePerMinute int
	Clock             clock.Clock
}

// Server serves the wellness API.
type Server struct {
	repo       storage.Repository
	biometrics *biometrics.Service
	issuer     *auth.Issuer
	google     GoogleVerifier
	log        *logrus.Logger
	clock      clock.Clock
	started    time.Time
	limiter    *rateLimiter
	handler    http.Handler
}

// NewServer creates a Server. google may be nil, which disables Google sign-in.
func NewServer(repo storage.Repository, svc *biometrics.Service, issuer *auth.Issuer, google GoogleVerifier, log *logrus.Logger, opts Options) *Server {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	perMinute := opts.AuthRatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	s := &Server{
		repo:       repo,
		biometrics: svc,
		issuer:     issuer,
		google:     google,
		log:        log,
		clock:      clk,
		started:    clk.Now(),
		limiter:    newRateLimiter(perMinute, clk, log),
	}

	var h http.Handler = s.routes()
	h = newCORSMiddleware(opts.CORSOrigins).Handler(h)
	h = securityHeaders(h)
	h = metrics.InstrumentHandler(h)
	h = accessLog(log)(h)
	h = recoverer(log)(h)
	h = requestID(h)
	s.handler = h
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	signin := r.PathPrefix("/users").Subrouter()
	signin.Use(s.limiter.Handler)
	signin.HandleFunc("/google", s.handleGoogleLogin).Methods(http.MethodPost)
	signin.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	signin.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := &authMiddleware{issuer: s.issuer, log: s.log}
	protected := r.NewRoute().Subrouter()
	protected.Use(authed.Handler)

	protected.HandleFunc("/users/me", s.handleGetMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", s.handleUpdateMe).Methods(http.MethodPut)
	protected.HandleFunc("/users/me/profile", s.handleUpdateProfile).Methods(http.MethodPost)

	protected.HandleFunc("/data", s.handleGetBiometrics).Methods(http.MethodGet)
	protected.HandleFunc("/data/receive", s.handleReceiveArrays).Methods(http.MethodPost)
	protected.HandleFunc("/data/batch", s.handleReceiveBatch).Methods(http.MethodPost)
	protected.HandleFunc("/data/wide", s.handleReceiveWide).Methods(http.MethodPost)

	protected.HandleFunc("/routines/confirm", s.handleConfirmRoutine).Methods(http.MethodPost)
	protected.HandleFunc("/routines", s.handleListRoutines).Methods(http.MethodGet)
	protected.HandleFunc("/routines/{id}/status", s.handleUpdateRoutineStatus).Methods(http.MethodPatch)

	protected.HandleFunc("/reports", s.handleCreateReport).Methods(http.MethodPost)
	protected.HandleFunc("/reports", s.handleListReports).Methods(http.MethodGet)
	protected.HandleFunc("/reports/feedback", s.handleCreateFeedback).Methods(http.MethodPost)
	protected.HandleFunc("/reports/feedback", s.handleListFeedback).Methods(http.MethodGet)

	protected.HandleFunc("/emotions", s.handleCreateEmotion).Methods(http.MethodPost)
	protected.HandleFunc("/emotions", s.handleListEmotions).Methods(http.MethodGet)
	protected.HandleFunc("/emotions/stats", s.handleEmotionStats).Methods(http.MethodGet)

	return r
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go s.limiter.run(limiterCtx, 10*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("wellness API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
