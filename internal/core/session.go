package core

import (
	"errors"
	"strings"
	"time"
)

type (
	User struct {
		ID          ID     `json:"id"`
		Email       string `json:"email"`
		FirstName   string `json:"firstName,omitempty"`
		LastName    string `json:"lastName,omitempty"`
		PhoneNumber string `json:"phoneNumber,omitempty"`
	}

	// Profile is what a visitor submits to create an account.
	Profile struct {
		Email       string `json:"email" validate:"required,email"`
		Password    string `json:"password" validate:"required,min=1"`
		FirstName   string `json:"firstName" validate:"required"`
		LastName    string `json:"lastName" validate:"required"`
		PhoneNumber string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	}

	// Session is the client-held proof of authentication. Either both Token
	// and User are set or neither is; use NewSession to build one.
	Session struct {
		Token     string    `json:"token"`
		User      User      `json:"user"`
		ExpiresAt time.Time `json:"expiresAt,omitempty"`
	}
)

var (
	ErrPartialSession = errors.New("session requires both token and user")
	ErrEmptyEmail     = errors.New("email is required")
	ErrEmptyPassword  = errors.New("password is required")
)

// NewSession builds a present session, refusing partial ones.
func NewSession(token string, user User) (Session, error) {
	if strings.TrimSpace(token) == "" || user.ID.IsZero() {
		return Session{}, ErrPartialSession
	}
	return Session{Token: token, User: user}, nil
}

// Present reports whether the session authenticates its holder.
func (s Session) Present() bool {
	return s.Token != "" && !s.User.ID.IsZero()
}

// Expired reports whether the session outlived its deadline at now.
// Sessions without a deadline never expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// DisplayName prefers the full name and falls back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidateCredentials checks a login form before it is sent.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// ErrSessionNotFound is returned by session backends for unknown ids.
var ErrSessionNotFound = errors.New("session not found")
