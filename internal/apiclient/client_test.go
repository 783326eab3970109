package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", srv.Client(), nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestLoginSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body.Email)
		assert.Equal(t, "x", body.Password)

		writeJSON(w, http.StatusOK, `{"token":"t1","user":{"id":1,"email":"a@b.com"}}`)
	})

	got, err := c.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, core.ID("1"), got.User.ID)
	assert.Equal(t, "a@b.com", got.User.Email)
}

func TestLoginBadCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Bad credentials"}`)
	})

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindClient, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Bad credentials", apiErr.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestErrorMessageExtraction(t *testing.T) {
	const fallback = "Something went wrong"
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"message field", 400, `{"message":"End date must be after start date"}`, KindClient, "End date must be after start date"},
		{"message wins over error", 500, `{"error":"Internal Server Error","message":"db down"}`, KindServer, "db down"},
		{"plain text", 502, "upstream gone\n", KindServer, "upstream gone"},
		{"error field only", 403, `{"error":"Forbidden"}`, KindClient, ""},
		{"spring default body", 400, `{"timestamp":"2024-01-01T00:00:00Z","status":400,"error":"Bad Request","message":"","path":"/api/auth/login"}`, KindClient, ""},
		{"empty body", 503, ``, KindServer, ""},
		{"empty unauthorized", 401, ``, KindClient, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.GetProperty(context.Background(), "p1")
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)

			want := tt.message
			if want == "" {
				want = fallback
			}
			assert.Equal(t, want, Message(err, fallback))
			if tt.message == "" {
				assert.Contains(t, err.Error(), http.StatusText(tt.status))
			}
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, nil, nil)
	_, err := c.Login(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, "try again", Message(err, "try again"))
}

func TestTokenIsAttached(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"transactions":[],"currentPage":0,"totalItems":0,"totalPages":0}`)
	})

	_, err := c.WithToken("t1").ListTransactions(context.Background(), core.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer t1", got)

	// WithToken must not leak into the original client.
	_, err = c.ListTransactions(context.Background(), core.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListProperties(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Rome", q.Get("city"))
		assert.Equal(t, "HOUSE", q.Get("type"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "20", q.Get("size"))
		assert.False(t, q.Has("minPrice"))

		writeJSON(w, http.StatusOK, `{
			"properties":[{"id":"p1","title":"Loft","price":1500.50,"status":"AVAILABLE","type":"HOUSE"}],
			"currentPage":1,"totalItems":21,"totalPages":2}`)
	})

	page, err := c.ListProperties(context.Background(), core.PropertyFilter{
		City:        "Rome",
		Type:        core.House,
		PageRequest: core.PageRequest{Page: 1},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Loft", page.Items[0].Title)
	assert.True(t, page.Items[0].Price.Equal(decimal.RequireFromString("1500.5")))
	assert.True(t, page.HasPrev())
	assert.False(t, page.HasNext())
	assert.Equal(t, int64(21), page.TotalItems)
}

func TestListPropertiesRejectsBadFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.ListProperties(context.Background(), core.PropertyFilter{PageRequest: core.PageRequest{Page: -1}})
	assert.ErrorIs(t, err, core.ErrInvalidPage)
}

func TestSearchNearby(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties/search", r.URL.Path)
		assert.Equal(t, "41.9", r.URL.Query().Get("lat"))
		assert.Equal(t, "12.5", r.URL.Query().Get("lng"))
		assert.Equal(t, "5000", r.URL.Query().Get("radius"))
		writeJSON(w, http.StatusOK, `{"properties":[],"currentPage":0,"totalItems":0,"totalPages":0}`)
	})
	_, err := c.SearchNearby(context.Background(), core.NearbyFilter{Latitude: 41.9, Longitude: 12.5})
	require.NoError(t, err)
}

func TestCreateProperty(t *testing.T) {
	lat, lng := 41.9, 12.5
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/properties", r.URL.Path)
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, 1200.0, raw["price"], "price must be sent as a number")
		writeJSON(w, http.StatusCreated, `{"id":"p9","title":"Flat","status":"AVAILABLE"}`)
	})

	got, err := c.WithToken("t1").CreateProperty(context.Background(), core.PropertyDraft{
		Title: "Flat", Address: "Via Roma 1", City: "Rome",
		Latitude: &lat, Longitude: &lng,
		Type: core.Apartment, Price: decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	assert.Equal(t, core.ID("p9"), got.ID)
}

func TestUpdateProperty(t *testing.T) {
	lat, lng := 41.9, 12.5
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/properties/p9", r.URL.Path)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "Bigger flat", raw["title"])
		writeJSON(w, http.StatusOK, `{"id":"p9","title":"Bigger flat","status":"AVAILABLE"}`)
	})

	draft := core.PropertyDraft{
		Title: "Bigger flat", Address: "Via Roma 1", City: "Rome",
		Latitude: &lat, Longitude: &lng,
		Type: core.Apartment, Price: decimal.NewFromInt(1300),
	}
	got, err := c.WithToken("t1").UpdateProperty(context.Background(), "p9", draft)
	require.NoError(t, err)
	assert.Equal(t, "Bigger flat", got.Title)

	_, err = c.UpdateProperty(context.Background(), "", draft)
	assert.ErrorIs(t, err, core.ErrMissingPropertyID)
	_, err = c.UpdateProperty(context.Background(), "p9", core.PropertyDraft{})
	assert.Error(t, err)
}

func TestDeleteProperty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path != "/api/properties/p9" {
			writeJSON(w, http.StatusBadRequest, `{"message":"Unauthorized to delete this property"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteProperty(context.Background(), "p9"))

	err := c.DeleteProperty(context.Background(), "other")
	require.Error(t, err)
	assert.Equal(t, "Unauthorized to delete this property", Message(err, "generic"))

	assert.ErrorIs(t, c.DeleteProperty(context.Background(), ""), core.ErrMissingPropertyID)
}

func TestCreateTransaction(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "p1", q.Get("propertyId"))
		assert.Equal(t, "1772323200000", q.Get("startDate"))
		if q.Get("endDate") < q.Get("startDate") {
			writeJSON(w, http.StatusBadRequest, `{"message":"End date must be after start date"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"t1","propertyId":"p1","amount":1200,"status":"PENDING","startDate":1772323200000,"endDate":"2026-03-10T00:00:00.000+00:00"}`)
	})

	tx, err := c.CreateTransaction(context.Background(), core.RentalRequest{PropertyID: "p1", StartDate: start, EndDate: end})
	require.NoError(t, err)
	assert.True(t, tx.IsPending())
	assert.True(t, tx.StartDate.Equal(start))
	assert.True(t, tx.EndDate.Equal(end))

	_, err = c.CreateTransaction(context.Background(), core.RentalRequest{PropertyID: "p1", StartDate: end, EndDate: start})
	require.Error(t, err)
	assert.Equal(t, "End date must be after start date", Message(err, "generic"))
}

func TestCreateTransactionNeedsDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.CreateTransaction(context.Background(), core.RentalRequest{PropertyID: "p1"})
	assert.ErrorIs(t, err, core.ErrMissingRentalDates)
}

func TestOwnerTransactionsAndApprove(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/transactions/owner":
			writeJSON(w, http.StatusOK, `{"transactions":[{"id":"abc","status":"PENDING"}],"currentPage":0,"totalItems":1,"totalPages":1}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/transactions/abc/approve":
			writeJSON(w, http.StatusOK, `{"id":"abc","status":"APPROVED"}`)
		default:
			http.NotFound(w, r)
		}
	})

	page, err := c.ListOwnerTransactions(context.Background(), core.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	tx, err := c.ApproveTransaction(context.Background(), page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, core.Approved, tx.Status)

	_, err = c.ApproveTransaction(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrMissingTransactionID)
}

func TestMalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `<html>`)
	})
	_, err := c.GetProperty(context.Background(), "p1")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindServer, apiErr.Kind)
}
