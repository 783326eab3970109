package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"rentals/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports whether templates are loaded and the session store
// answers. The rental API is not checked: an unreachable API is shown to
// users inline and does not make this process unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if len(s.pages) == 0 || s.partials == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.sessions.Get(r.Context(), "readiness-check"); err != nil {
		checks["sessions"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["sessions"] = "ok"
	}

	checks["rental_api"] = s.api.BaseURL()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	m := s.appMetrics

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("logins_total", "counter", "Successful logins", atomic.LoadInt64(&m.logins))
	metric("login_failures_total", "counter", "Rejected login attempts", atomic.LoadInt64(&m.loginFailures))
	metric("registrations_total", "counter", "Accounts registered", atomic.LoadInt64(&m.registrations))
	metric("rental_requests_total", "counter", "Rental requests accepted by the API", atomic.LoadInt64(&m.rentalRequests))
	metric("properties_created_total", "counter", "Listings created", atomic.LoadInt64(&m.propertiesCreated))
	metric("properties_updated_total", "counter", "Listings edited", atomic.LoadInt64(&m.propertiesUpdated))
	metric("properties_deleted_total", "counter", "Listings deleted", atomic.LoadInt64(&m.propertiesDeleted))
	metric("approvals_total", "counter", "Transactions approved", atomic.LoadInt64(&m.approvals))
	metric("api_failures_total", "counter", "Failed rental API calls", atomic.LoadInt64(&m.apiFailures))
	metric("sessions_invalidated_total", "counter", "Sessions cleared after the API rejected their token", atomic.LoadInt64(&m.sessionsInvalidated))
	metric("rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("scanner_requests_total", "counter", "Scanner requests rejected", s.securityDetector.Scans())
	metric("session_cache_entries", "gauge", "Sessions held in memory", s.sessions.Cached())
	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n# TYPE uptime_seconds gauge\nuptime_seconds %.0f\n", time.Since(m.uptime).Seconds())
}

type homeView struct {
	Types []core.PropertyType
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", s.page(r, "Find your next home", homeView{Types: core.PropertyTypes()}))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found.")
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.log(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", "path", r.URL.Path)
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.").Write(w)
		return
	}
	s.renderError(w, r, http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.")
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	v := s.page(r, http.StatusText(status), nil)
	v.Error = message
	s.render(w, r, status, "error.html", v)
}
