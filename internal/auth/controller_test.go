package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/apiclient"
	"rentals/internal/core"
	"rentals/internal/guard"
	"rentals/internal/session"
)

type fakeAPI struct {
	resp  apiclient.AuthResponse
	err   error
	calls int
	last  core.Profile
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (apiclient.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeAPI) Register(_ context.Context, p core.Profile) (apiclient.AuthResponse, error) {
	f.calls++
	f.last = p
	return f.resp, f.err
}

func newHandle() *session.Handle {
	return session.NewStore(session.NewMemoryBackend(), session.Options{}).Handle("browser-1")
}

func TestLoginStoresExactPair(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{resp: apiclient.AuthResponse{Token: "t1", User: core.User{ID: "1", Email: "a@b.com"}}}
	h := newHandle()

	res := NewController(api, nil).Login(ctx, h, "a@b.com", "x")

	require.True(t, res.OK, res.Message)
	sess := h.Session(ctx)
	assert.Equal(t, "t1", sess.Token)
	assert.Equal(t, core.User{ID: "1", Email: "a@b.com"}, sess.User)
	assert.Equal(t, 1, api.calls)
}

func TestLoginBadCredentialsLeavesSessionEmpty(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindClient, StatusCode: http.StatusUnauthorized, Message: "Bad credentials"}}
	h := newHandle()

	res := NewController(api, nil).Login(ctx, h, "a@b.com", "x")

	assert.False(t, res.OK)
	assert.Equal(t, "Bad credentials", res.Message)
	assert.False(t, h.Present(ctx))
}

func TestLoginNetworkErrorIsGeneric(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindNetwork, Err: errors.New("connection refused")}}
	h := newHandle()

	res := NewController(api, nil).Login(ctx, h, "a@b.com", "x")

	assert.False(t, res.OK)
	assert.Equal(t, MsgLoginFailed, res.Message)
	assert.Equal(t, 1, api.calls, "no retry")
}

func TestLoginFailureWithoutServerMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty server error", http.StatusInternalServerError, ""},
		{"empty unauthorized", http.StatusUnauthorized, ""},
		{"spring default body", http.StatusBadRequest, `{"status":400,"error":"Bad Request","message":"","path":"/api/auth/login"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			ctx := context.Background()
			h := newHandle()
			api := apiclient.New(srv.URL+"/api", srv.Client(), nil)

			res := NewController(api, nil).Login(ctx, h, "a@b.com", "x")

			assert.False(t, res.OK)
			assert.Equal(t, MsgLoginFailed, res.Message)
			assert.False(t, h.Present(ctx))
		})
	}
}

func TestRegisterFailureWithoutServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	profile := core.Profile{Email: "a@b.com", Password: "pw", FirstName: "A", LastName: "B"}
	api := apiclient.New(srv.URL+"/api", srv.Client(), nil)

	res := NewController(api, nil).Register(context.Background(), newHandle(), profile)

	assert.Equal(t, MsgRegistrationFailed, res.Message)
}

func TestLoginIncompleteResponse(t *testing.T) {
	ctx := context.Background()
	h := newHandle()
	require.NoError(t, h.Set(ctx, "old", core.User{ID: "9"}))

	for _, resp := range []apiclient.AuthResponse{
		{Token: "t1"},
		{User: core.User{ID: "1"}},
	} {
		res := NewController(&fakeAPI{resp: resp}, nil).Login(ctx, h, "a@b.com", "x")
		assert.False(t, res.OK)
		assert.Equal(t, MsgIncompleteResponse, res.Message)
		assert.Equal(t, "old", h.Session(ctx).Token, "previous session untouched")
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api, nil)

	assert.Equal(t, "Please enter your email.", c.Login(context.Background(), newHandle(), " ", "x").Message)
	assert.Equal(t, "Please enter your password.", c.Login(context.Background(), newHandle(), "a@b.com", "").Message)
	assert.Zero(t, api.calls)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	profile := core.Profile{Email: "a@b.com", Password: "pw", FirstName: "Ada", LastName: "Lovelace"}
	api := &fakeAPI{resp: apiclient.AuthResponse{Token: "t2", User: core.User{ID: "2", Email: "a@b.com"}}}
	h := newHandle()

	res := NewController(api, nil).Register(ctx, h, profile)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, profile, api.last)
	assert.Equal(t, "t2", h.Session(ctx).Token)
}

func TestRegisterInvalidProfileMakesNoCall(t *testing.T) {
	api := &fakeAPI{}
	h := newHandle()

	res := NewController(api, nil).Register(context.Background(), h, core.Profile{Email: "nope", Password: "pw"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "Email")
	assert.Zero(t, api.calls)
	assert.False(t, h.Present(context.Background()))
}

func TestRegisterServerMessage(t *testing.T) {
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindClient, StatusCode: 400, Message: "Email already registered"}}
	profile := core.Profile{Email: "a@b.com", Password: "pw", FirstName: "A", LastName: "B"}

	res := NewController(api, nil).Register(context.Background(), newHandle(), profile)

	assert.Equal(t, "Email already registered", res.Message)
}

func TestLogoutEmptiesSessionAndGuardDenies(t *testing.T) {
	ctx := context.Background()
	h := newHandle()
	require.NoError(t, h.Set(ctx, "t1", core.User{ID: "1"}))

	res := NewController(&fakeAPI{}, nil).Logout(ctx, h)

	require.True(t, res.OK)
	assert.False(t, h.Present(ctx))
	for _, route := range guard.ProtectedRoutes() {
		d := guard.Evaluate(h.Present(ctx), route)
		assert.False(t, d.Allow, route)
		assert.Equal(t, guard.LoginPath, d.RedirectTo)
	}
}
