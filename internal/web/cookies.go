// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"time"
)

// CookieName names the cookie carrying the session token.
const CookieName = "gatehouse_session"

type cookieJar struct {
	secure bool
	ttl    time.Duration
}

// issue sets the session cookie. A persistent cookie lives as long as the
// token; otherwise it ends with the browser session.
func (j cookieJar) issue(w http.ResponseWriter, token string, persistent bool) {
	c := j.base()
	c.Value = token
	if persistent {
		c.MaxAge = int(j.ttl.Seconds())
		c.Expires = time.Now().Add(j.ttl)
	}
	http.SetCookie(w, c)
}

func (j cookieJar) clear(w http.ResponseWriter) {
	c := j.base()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (j cookieJar) base() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   j.secure,
	}
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
