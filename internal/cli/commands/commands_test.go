package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/apiclient"
	"rentals/internal/core"
	rlog "rentals/internal/log"
	"rentals/internal/session"
)

func newTestApp(t *testing.T, api http.HandlerFunc) *App {
	t.Helper()
	if api == nil {
		api = func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected API call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := rlog.New(rlog.Config{Level: slog.LevelError, Output: io.Discard})
	return &App{
		Sessions: session.NewStore(session.NewMemoryBackend(), session.Options{TTL: time.Hour, Logger: logger.Slog()}),
		API:      apiclient.New(srv.URL+"/api", srv.Client(), logger.Slog()),
		Logger:   logger,
	}
}

func run(app *App, args ...string) (string, error) {
	var buf bytes.Buffer
	root := NewRootCmd(app)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func seedSession(t *testing.T, app *App) {
	t.Helper()
	require.NoError(t, app.Sessions.Set(context.Background(), SessionID, "t1", core.User{ID: "1", Email: "a@b.com", FirstName: "Ada"}))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestLoginThenWhoami(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"token":"t1","user":{"id":1,"email":"a@b.com","firstName":"Ada"}}`)
	})

	out, err := run(app, "login", "--email", "a@b.com", "--password", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")

	out, err = run(app, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "a@b.com")
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Bad credentials"}`)
	})

	_, err := run(app, "login", "--email", "a@b.com", "--password", "wrong")
	require.EqualError(t, err, "Bad credentials")

	_, err = run(app, "whoami")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProtectedCommandsNeedSession(t *testing.T) {
	app := newTestApp(t, nil)

	for _, args := range [][]string{
		{"transactions", "list"},
		{"transactions", "approve", "9"},
		{"rent", "7", "--start", "2025-01-01", "--end", "2025-02-01"},
		{"properties", "create", "--title", "x"},
		{"properties", "update", "7", "--price", "900"},
		{"properties", "delete", "7"},
	} {
		_, err := run(app, args...)
		assert.ErrorIs(t, err, ErrNotLoggedIn, args)
	}
}

func TestLogoutForgetsSession(t *testing.T) {
	app := newTestApp(t, nil)
	seedSession(t, app)

	_, err := run(app, "logout")
	require.NoError(t, err)

	_, err = run(app, "transactions", "list")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRentNeedsDates(t *testing.T) {
	app := newTestApp(t, nil)
	seedSession(t, app)

	_, err := run(app, "rent", "7", "--start", "2025-01-01")
	require.EqualError(t, err, "Please select start and end dates")
}

func TestRentSurfacesServerMessage(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusBadRequest, `{"message":"End date must be after start date"}`)
	})
	seedSession(t, app)

	_, err := run(app, "rent", "7", "--start", "2025-02-01", "--end", "2025-01-01")
	require.EqualError(t, err, "End date must be after start date")
}

func TestRejectedTokenEndsSession(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Token expired"}`)
	})
	seedSession(t, app)

	_, err := run(app, "transactions", "list", "--owner")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, app.Sessions.Handle(SessionID).Present(context.Background()))
}

func TestPropertiesList(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties", r.URL.Path)
		assert.Equal(t, "HOUSE", r.URL.Query().Get("type"))
		writeJSON(w, http.StatusOK, `{"properties":[{"id":3,"title":"Cabin","city":"Boulder","type":"HOUSE","price":2100,"status":"AVAILABLE"}],"currentPage":0,"totalItems":1,"totalPages":1}`)
	})

	out, err := run(app, "properties", "list", "--type", "house")
	require.NoError(t, err)
	assert.Contains(t, out, "Cabin")
	assert.Contains(t, out, "2100.00")
	assert.Contains(t, out, "page 1 of 1")
}

func TestPropertiesNearby(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties/search", r.URL.Path)
		assert.Equal(t, "40.01", r.URL.Query().Get("lat"))
		writeJSON(w, http.StatusOK, `{"properties":[],"currentPage":0,"totalItems":0,"totalPages":0}`)
	})

	_, err := run(app, "properties", "list", "--lat", "40.01", "--lng", "-105.27")
	require.NoError(t, err)
}

func TestApprove(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/transactions/9/approve", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id":9,"status":"APPROVED"}`)
	})
	seedSession(t, app)

	out, err := run(app, "transactions", "approve", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "APPROVED")
}

func TestPropertiesUpdateKeepsUnchangedFields(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties/55", r.URL.Path)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, `{"id":55,"title":"Cabin","address":"1 Pine Rd","city":"Boulder","country":"USA",`+
				`"location":{"type":"Point","coordinates":[-105.27,40.01]},"type":"HOUSE","price":2100,"ownerId":1,"status":"AVAILABLE"}`)
		case http.MethodPut:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cabin", body["title"])
			assert.Equal(t, "Boulder", body["city"])
			assert.Equal(t, 40.01, body["latitude"])
			assert.Equal(t, 2300.0, body["price"])
			writeJSON(w, http.StatusOK, `{"id":55,"title":"Cabin","status":"AVAILABLE"}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	seedSession(t, app)

	out, err := run(app, "properties", "update", "55", "--price", "2300")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated property 55")
}

func TestPropertiesDelete(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/api/properties/55" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusInternalServerError, `{"error":"Internal Server Error","message":""}`)
	})
	seedSession(t, app)

	out, err := run(app, "properties", "delete", "55")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted property 55")

	_, err = run(app, "properties", "delete", "56")
	require.Error(t, err)
	assert.Equal(t, "Failed to delete property", err.Error())
}
