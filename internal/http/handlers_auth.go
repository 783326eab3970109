package http

import (
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	"rentals/internal/core"
	"rentals/internal/events"
	rlog "rentals/internal/log"
	"rentals/internal/session"
)

type loginView struct {
	Email string
}

type registerView struct {
	Profile core.Profile
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", s.page(r, "Login", loginView{}))
}

// handleLogin authenticates into a fresh browser session so an id planted
// before login is never promoted to an authenticated one.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	ctx := detach(r)
	email := sanitizeInput(r.PostForm.Get("email"))

	id := uuid.NewString()
	res := s.auth.Login(ctx, s.sessions.Handle(id), email, r.PostForm.Get("password"))
	s.audit.LogAuth(ctx, rlog.OpLogin, id, res.User.ID.String(), res.OK)

	if !res.OK {
		atomic.AddInt64(&s.appMetrics.loginFailures, 1)
		v := s.page(r, "Login", loginView{Email: email})
		v.Error = res.Message
		s.render(w, r, formStatus(r), "login.html", v)
		return
	}

	atomic.AddInt64(&s.appMetrics.logins, 1)
	s.rotateSession(w, r, id)
	s.publish(ctx, events.New(events.AuthLogin, res.User.ID, ""))
	s.redirect(w, r, "/")
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", s.page(r, "Register", registerView{}))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	ctx := detach(r)
	profile := ParseProfile(r.PostForm)

	id := uuid.NewString()
	res := s.auth.Register(ctx, s.sessions.Handle(id), profile)
	s.audit.LogAuth(ctx, rlog.OpRegister, id, res.User.ID.String(), res.OK)

	if !res.OK {
		profile.Password = ""
		v := s.page(r, "Register", registerView{Profile: profile})
		v.Error = res.Message
		s.render(w, r, formStatus(r), "register.html", v)
		return
	}

	atomic.AddInt64(&s.appMetrics.registrations, 1)
	s.rotateSession(w, r, id)
	s.publish(ctx, events.New(events.AuthRegister, res.User.ID, res.User.Email))
	s.redirect(w, r, "/")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	h := session.FromContext(r.Context())
	userID := h.Session(ctx).User.ID

	res := s.auth.Logout(ctx, h)
	s.audit.LogAuth(ctx, rlog.OpLogout, h.ID(), userID.String(), res.OK)
	if !res.OK {
		s.renderError(w, r, http.StatusInternalServerError, res.Message)
		return
	}

	s.clearSessionCookie(w)
	if !userID.IsZero() {
		s.publish(ctx, events.New(events.AuthLogout, userID, ""))
	}
	s.redirect(w, r, "/")
}

// rotateSession drops whatever session the browser held and points its
// cookie at id.
func (s *Server) rotateSession(w http.ResponseWriter, r *http.Request, id string) {
	if old := session.FromContext(r.Context()); old != nil && old.ID() != "" && old.ID() != id {
		if err := old.Clear(detach(r)); err != nil {
			s.log(r.Context()).WarnContext(r.Context(), "Failed to clear previous session", rlog.FieldError, err)
		}
	}
	s.setSessionCookie(w, id)
}
