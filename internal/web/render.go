// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"bytes"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/session"
	"github.com/holomush/gatehouse/pkg/errutil"
)

const (
	noticeOK    = "ok"
	noticeError = "err"
)

// formValues echoes submitted fields back into a re-rendered form.
// Passwords are never echoed.
type formValues struct {
	Email      string
	Username   string
	FirstName  string
	LastName   string
	RememberMe bool
}

type pageData struct {
	Title  string
	Active string

	Identity *session.Identity

	Notice     string
	NoticeKind string
	Errors     []string

	Form formValues
	User *auth.User
}

// render executes page into a buffer first so a template failure never
// leaves a half-written response.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	if data == nil {
		data = &pageData{}
	}
	if identity, ok := identityFrom(r.Context()); ok {
		data.Identity = &identity
	}

	t := a.pages[page]
	if t == nil {
		errutil.LogErrorContext(r.Context(), a.logger, "render failed", oops.With("page", page).Errorf("unknown page"))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		errutil.LogErrorContext(r.Context(), a.logger, "render failed", oops.With("page", page).Wrap(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	buf.WriteTo(w)
}
