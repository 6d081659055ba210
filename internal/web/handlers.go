// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/session"
	"github.com/holomush/gatehouse/pkg/errutil"
)

// User-facing messages.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgLoginFailed        = "Login failed, please try again"
	msgEmailTaken         = "Email address is already registered"
	msgUsernameTaken      = "Username is already taken"
	msgRegisterFailed     = "Registration failed, please try again"
	msgProfileFailed      = "Your profile could not be loaded, please try again"
	msgBadForm            = "The form could not be read, please try again"
)

// loginNotices maps the ?msg= values set by our own redirects.
var loginNotices = map[string]string{
	"logged_out":           "You have been signed out.",
	"registration_success": "Registration successful. Please sign in.",
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "index", &pageData{Title: "Welcome", Active: "home"})
}

func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &pageData{Title: "Sign in"}
	if notice, ok := loginNotices[r.URL.Query().Get("msg")]; ok {
		data.Notice = notice
		data.NoticeKind = noticeOK
	}
	a.render(w, r, http.StatusOK, "login", data)
}

func (a *App) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Sign in"}
	if err := parseForm(w, r); err != nil {
		data.Errors = []string{msgBadForm}
		a.render(w, r, http.StatusBadRequest, "login", data)
		return
	}

	req := auth.LoginRequest{
		Email:      strings.TrimSpace(r.PostForm.Get("email")),
		Password:   r.PostForm.Get("password"),
		RememberMe: checked(r.PostForm.Get("remember_me")),
	}
	data.Form = formValues{Email: req.Email, RememberMe: req.RememberMe}

	user, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if violations, ok := auth.AsViolations(err); ok {
			a.metrics.RecordLogin(observability.OutcomeInvalid)
			data.Errors = violations.Messages()
		} else if auth.IsCode(err, auth.CodeInvalidCredentials) {
			a.metrics.RecordLogin(observability.OutcomeInvalid)
			data.Errors = []string{msgInvalidCredentials}
		} else {
			a.metrics.RecordLogin(observability.OutcomeError)
			errutil.LogErrorContext(r.Context(), a.logger, "login failed", err)
			data.Errors = []string{msgLoginFailed}
		}
		a.render(w, r, http.StatusOK, "login", data)
		return
	}

	token, err := a.sessions.Encode(session.FromUser(user))
	if err != nil {
		a.metrics.RecordLogin(observability.OutcomeError)
		errutil.LogErrorContext(r.Context(), a.logger, "issue session failed", err)
		data.Errors = []string{msgLoginFailed}
		a.render(w, r, http.StatusOK, "login", data)
		return
	}

	a.metrics.RecordLogin(observability.OutcomeSuccess)
	a.cookies.issue(w, token, req.RememberMe)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (a *App) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.render(w, r, http.StatusOK, "register", &pageData{Title: "Create account"})
}

// handleRegisterSubmit creates the account and sends the user to sign in.
// Registration never signs the user in by itself.
func (a *App) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &pageData{Title: "Create account"}
	if err := parseForm(w, r); err != nil {
		data.Errors = []string{msgBadForm}
		a.render(w, r, http.StatusBadRequest, "register", data)
		return
	}

	req := auth.RegistrationRequest{
		Email:           strings.TrimSpace(r.PostForm.Get("email")),
		Username:        strings.TrimSpace(r.PostForm.Get("username")),
		Password:        r.PostForm.Get("password"),
		PasswordConfirm: r.PostForm.Get("password_confirm"),
		FirstName:       strings.TrimSpace(r.PostForm.Get("first_name")),
		LastName:        strings.TrimSpace(r.PostForm.Get("last_name")),
	}
	data.Form = formValues{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	if _, err := a.auth.Register(r.Context(), req); err != nil {
		data.Errors = a.registrationErrors(r, err)
		a.render(w, r, http.StatusOK, "register", data)
		return
	}

	a.metrics.RecordRegistration(observability.OutcomeSuccess)
	http.Redirect(w, r, "/login?msg=registration_success", http.StatusSeeOther)
}

func (a *App) registrationErrors(r *http.Request, err error) []string {
	if violations, ok := auth.AsViolations(err); ok {
		a.metrics.RecordRegistration(observability.OutcomeInvalid)
		return violations.Messages()
	}
	if auth.IsCode(err, auth.CodeConflict) {
		a.metrics.RecordRegistration(observability.OutcomeConflict)
		if auth.ConflictField(err) == "username" {
			return []string{msgUsernameTaken}
		}
		return []string{msgEmailTaken}
	}
	a.metrics.RecordRegistration(observability.OutcomeError)
	errutil.LogErrorContext(r.Context(), a.logger, "registration failed", err)
	return []string{msgRegisterFailed}
}

// handleLogout always succeeds, with or without a live session.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		a.sessions.Revoke(token)
	}
	if identity, ok := identityFrom(r.Context()); ok {
		a.logger.InfoContext(r.Context(), "user signed out", "user_id", identity.ID)
	}
	a.cookies.clear(w)
	http.Redirect(w, r, "/login?msg=logged_out", http.StatusSeeOther)
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "dashboard", &pageData{Title: "Dashboard", Active: "dashboard"})
}

// handleProfile shows the stored account record rather than the token
// claims, so edits made elsewhere are visible.
func (a *App) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	data := &pageData{Title: "Profile", Active: "profile"}

	user, err := a.auth.GetUser(r.Context(), identity.ID)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		// account vanished after the token was issued
		a.sessions.Revoke(sessionToken(r))
		a.cookies.clear(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case err != nil:
		errutil.LogErrorContext(r.Context(), a.logger, "load profile failed", err)
		data.Errors = []string{msgProfileFailed}
		a.render(w, r, http.StatusInternalServerError, "profile", data)
		return
	}

	data.User = user
	a.render(w, r, http.StatusOK, "profile", data)
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	//nolint:wrapcheck // callers only report that parsing failed
	return r.ParseForm()
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
