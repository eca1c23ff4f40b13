package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONStrict(t *testing.T) {
	type payload struct {
		Username string `json:"username"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"alice"}`))
	var p payload
	if err := DecodeJSONStrict(r, &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Username != "alice" {
		t.Errorf("username = %q", p.Username)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"alice","extra":1}`))
	if err := DecodeJSONStrict(r, &p); err == nil {
		t.Error("expected unknown field error")
	}
}

func TestQueryParamInt64(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/events?after=17&limit=abc", nil)

	if got := QueryParamInt64(r, "after", 0); got != 17 {
		t.Errorf("after = %d, want 17", got)
	}
	if got := QueryParamInt64(r, "limit", 100); got != 100 {
		t.Errorf("limit fallback = %d, want 100", got)
	}
	if got := QueryParamInt64(r, "missing", -1); got != -1 {
		t.Errorf("missing fallback = %d, want -1", got)
	}
}

func TestQueryParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/?topic=entries", nil)
	if got := QueryParam(r, "topic", "all"); got != "entries" {
		t.Errorf("topic = %q", got)
	}
	if got := QueryParam(r, "other", "all"); got != "all" {
		t.Errorf("default = %q", got)
	}
}
