package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTMXResponseBuilderTriggers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerTransactionApproved("abc").
		TriggerSuccessNotification("Approved").
		Write(rec)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if _, ok := triggers["transaction:approved"]; !ok {
		t.Error("missing transaction:approved trigger")
	}
	var note struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(triggers["show-notification"], &note); err != nil {
		t.Fatalf("notification: %v", err)
	}
	if note.Type != "success" || note.Message != "Approved" {
		t.Errorf("notification = %+v", note)
	}
}

func TestErrorFragmentEscapes(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorFragment(`<script>alert(1)</script>`).Write(rec)

	if rec.Code != http.StatusOK {
		t.Fatalf("fragments must keep 200 for htmx, got %d", rec.Code)
	}
	want := `<div class="error" role="alert">&lt;script&gt;alert(1)&lt;/script&gt;</div>`
	if rec.Body.String() != want {
		t.Fatalf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NotFoundError("gone").Write(rec)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRedirectHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/login").Write(rec)
	if rec.Header().Get("HX-Redirect") != "/login" {
		t.Fatalf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}
}
