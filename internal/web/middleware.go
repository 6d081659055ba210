// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/gatehouse/internal/logging"
	"github.com/holomush/gatehouse/internal/session"
	"github.com/holomush/gatehouse/pkg/errutil"
)

type identityKey struct{}

// identityFrom returns the identity resolved for the request, if any.
func identityFrom(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(session.Identity)
	return id, ok
}

// withIdentity resolves the session cookie once per request. Requests
// without a valid session pass through anonymously.
func (a *App) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := session.OptionalAuthenticated(a.sessions, sessionToken(r)); ok {
			r = r.WithContext(context.WithValue(r.Context(), identityKey{}, identity))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests without a valid session with 401 and the
// login form. The resolved identity is placed on the request context.
func (a *App) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := session.RequireAuthenticated(a.sessions, sessionToken(r))
		if err != nil {
			a.logger.InfoContext(r.Context(), "authentication required",
				"route", r.Pattern,
				"code", errutil.Code(err))
			a.render(w, r, http.StatusUnauthorized, "login", &pageData{
				Title:      "Sign in",
				Notice:     "Please sign in to continue.",
				NoticeKind: noticeError,
			})
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, identity)))
	}
}

func (a *App) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// observe records the access log line and request metrics. It must wrap
// the mux directly so the matched pattern is visible on r afterwards.
func (a *App) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		a.metrics.ObserveRequest(r.Pattern, rec.status, elapsed)
		a.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	//nolint:wrapcheck // ResponseWriter passthrough
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
