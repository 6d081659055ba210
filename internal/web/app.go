// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web serves the server-rendered account pages: landing, login,
// registration, logout, dashboard and profile.
package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets
var assetsFS embed.FS

// maxFormBytes caps form bodies.
const maxFormBytes = 64 << 10

// AuthService is the slice of auth.Service the handlers use.
type AuthService interface {
	Register(ctx context.Context, req auth.RegistrationRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.User, error)
	GetUser(ctx context.Context, id string) (*auth.User, error)
}

// SessionCodec issues, reads and revokes session tokens.
type SessionCodec interface {
	session.Decoder
	Encode(identity session.Identity) (string, error)
	Revoke(token string)
	TTL() time.Duration
}

// Options wires an App.
type Options struct {
	Auth     AuthService
	Sessions SessionCodec
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default.
	Logger       *slog.Logger
	CookieSecure bool
}

// App holds the handlers and their dependencies.
type App struct {
	auth     AuthService
	sessions SessionCodec
	metrics  *observability.Metrics
	logger   *slog.Logger
	cookies  cookieJar
	pages    map[string]*template.Template
}

var pageNames = []string{"index", "login", "register", "dashboard", "profile"}

// New parses the page templates and returns an App.
func New(opts Options) (*App, error) {
	if opts.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if opts.Sessions == nil {
		return nil, oops.Errorf("session codec is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &App{
		auth:     opts.Auth,
		sessions: opts.Sessions,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		cookies:  cookieJar{secure: opts.CookieSecure, ttl: opts.Sessions.TTL()},
		pages:    pages,
	}, nil
}

func parsePages() (map[string]*template.Template, error) {
	base := template.New("layout.html").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.UTC().Format("January 2, 2006") },
	})

	pages := make(map[string]*template.Template, len(pageNames))
	for _, page := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, oops.With("page", page).Wrap(err)
		}
		// each page overrides the title and content blocks of the layout
		if _, err := t.ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html"); err != nil {
			return nil, oops.With("page", page).Wrapf(err, "parse templates")
		}
		pages[page] = t
	}
	return pages, nil
}

// Handler returns the routed, instrumented application handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", a.handleIndex)

	mux.HandleFunc("GET /login", a.handleLoginPage)
	mux.HandleFunc("POST /login", a.handleLoginSubmit)
	mux.HandleFunc("GET /register", a.handleRegisterPage)
	mux.HandleFunc("POST /register", a.handleRegisterSubmit)
	mux.HandleFunc("POST /logout", a.handleLogout)

	mux.HandleFunc("GET /dashboard", a.requireAuth(a.handleDashboard))
	mux.HandleFunc("GET /profile", a.requireAuth(a.handleProfile))

	assets, _ := fs.Sub(assetsFS, "assets")
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(assets)))

	var h http.Handler = a.observe(mux)
	h = a.withIdentity(h)
	h = a.withRequestID(h)
	h = securityHeaders(h)
	return otelhttp.NewHandler(h, "gatehouse")
}
