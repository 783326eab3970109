// Package guard decides whether a route may render for the current session.
// The decision depends only on whether a session is present, and it is made
// again on every request.
package guard

import (
	"net/http"
	"strings"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Decision is the outcome of Evaluate.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// rule matches a protected route. Segments equal to "*" match any single
// path segment; a trailing "**" matches the rest of the path.
type rule []string

var protected = []rule{
	{"properties", "create"},
	{"properties", "*", "rent"},
	{"properties", "*", "edit"},
	{"properties", "*", "delete"},
	{"transactions", "**"},
}

// ProtectedRoutes lists example paths for every protected rule.
func ProtectedRoutes() []string {
	return []string{
		"/properties/create",
		"/properties/{id}/rent",
		"/properties/{id}/edit",
		"/properties/{id}/delete",
		"/transactions",
		"/transactions/{id}/approve",
	}
}

// Evaluate allows public routes unconditionally and protected routes only
// when a session is present.
func Evaluate(sessionPresent bool, route string) Decision {
	if sessionPresent || !IsProtected(route) {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: LoginPath}
}

// IsProtected reports whether route needs an authenticated session.
func IsProtected(route string) bool {
	segs := split(route)
	for _, r := range protected {
		if r.match(segs) {
			return true
		}
	}
	return false
}

func (r rule) match(segs []string) bool {
	for i, want := range r {
		if want == "**" {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if want != "*" && want != segs[i] {
			return false
		}
	}
	return len(segs) == len(r)
}

func split(route string) []string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = strings.Trim(route, "/")
	if route == "" {
		return nil
	}
	return strings.Split(route, "/")
}

// Middleware runs Evaluate before every handler. present reports whether the
// request carries a session. Denied HTMX requests get an HX-Redirect so the
// whole page navigates; other requests get a 303.
//
// Routes are split on the escaped path, the same form the router matches
// wildcards against, so an encoded slash inside an id stays one segment.
func Middleware(present func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(present(r), r.URL.EscapedPath())
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}
			Redirect(w, r, d.RedirectTo)
		})
	}
}

// Require wraps a handler that is only ever registered on a protected
// route. It checks the session after routing, whatever path reached it.
func Require(present func(*http.Request) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !present(r) {
			Redirect(w, r, LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Redirect sends the browser to target, using HX-Redirect for HTMX requests.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
