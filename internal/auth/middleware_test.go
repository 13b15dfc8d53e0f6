package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequireAuth(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	validToken, err := tokens.CreateForUser("user-1", "Alice")
	if err != nil {
		t.Fatalf("CreateForUser() returned error: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Error("Expected identity in context")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(identity.UserID))
		if err != nil {
			t.Errorf("Failed to write response: %v", err)
			return
		}
	})

	authHandler := RequireAuth(tokens)(handler)

	t.Run("allows request with valid Bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
		if rr.Body.String() != "user-1" {
			t.Errorf("Expected user-1 in body, got %q", rr.Body.String())
		}
	})

	t.Run("accepts case-insensitive scheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "bearer   "+validToken)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
	})

	t.Run("accepts token query parameter", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test?token="+validToken, nil)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
	})

	t.Run("rejects request without Authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects request with wrong auth scheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Basic abcd_abcd_abcd")

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other, err := NewTokenService("other-secret", time.Hour).CreateForUser("user-1", "Alice")
		if err != nil {
			t.Fatalf("CreateForUser() returned error: %v", err)
		}
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer "+other)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired, err := tokens.CreateWithTTL("user-1", "Alice", -time.Minute)
		if err != nil {
			t.Fatalf("CreateWithTTL() returned error: %v", err)
		}
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer "+expired)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		want      string
		shouldErr bool
	}{
		{name: "standard", header: "Bearer abc", want: "abc"},
		{name: "extra whitespace", header: "  Bearer    abc  ", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing token", header: "Bearer ", shouldErr: true},
		{name: "no scheme", header: "abc", shouldErr: true},
		{name: "basic scheme", header: "Basic abc", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.shouldErr {
				if err == nil {
					t.Errorf("expected error, got token %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIdentityFromContext(t *testing.T) {
	t.Run("returns false when not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)

		identity, ok := IdentityFromContext(req.Context())
		if ok {
			t.Error("Expected ok to be false")
		}
		if identity.UserID != "" {
			t.Error("Expected empty identity")
		}
	})
}
