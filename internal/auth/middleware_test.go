package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func call(h http.Handler, path, header, key string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	h := APIKey("none", "X-API-Key", "secret", okHandler)
	if code := call(h, "/api/v1/runs", "", ""); code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
}

func TestAPIKey_EmptyKey_PassesThrough(t *testing.T) {
	// key="" means auth is not configured → allow all.
	h := APIKey("apikey", "X-API-Key", "", okHandler)
	if code := call(h, "/api/v1/runs", "", ""); code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
}

func TestAPIKey_CorrectKey_Passes(t *testing.T) {
	h := APIKey("apikey", "X-API-Key", "supersecret", okHandler)
	if code := call(h, "/api/v1/runs", "X-API-Key", "supersecret"); code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
}

func TestAPIKey_WrongKey_Rejected(t *testing.T) {
	h := APIKey("apikey", "X-API-Key", "supersecret", okHandler)
	if code := call(h, "/api/v1/runs", "X-API-Key", "wrong"); code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", code)
	}
}

func TestAPIKey_MissingKey_Rejected(t *testing.T) {
	h := APIKey("apikey", "X-API-Key", "supersecret", okHandler)
	if code := call(h, "/api/v1/runs", "", ""); code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", code)
	}
}

func TestAPIKey_WrongHeader_Rejected(t *testing.T) {
	h := APIKey("apikey", "X-API-Key", "supersecret", okHandler)
	if code := call(h, "/api/v1/runs", "X-Other", "supersecret"); code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", code)
	}
}

func TestAPIKey_HealthIsOpen(t *testing.T) {
	h := APIKey("apikey", "X-API-Key", "supersecret", okHandler)
	if code := call(h, HealthPath, "", ""); code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
}
