package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenManager(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager("test-secret", time.Hour)
	m.now = func() time.Time { return now }

	t.Run("Issue then Verify returns claims", func(t *testing.T) {
		token, expiresAt, err := m.Issue(42, "alice")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if !expiresAt.Equal(now.Add(time.Hour)) {
			t.Errorf("expiresAt = %v, want %v", expiresAt, now.Add(time.Hour))
		}

		claims, err := m.Verify(token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if claims.UserID != 42 || claims.Username != "alice" {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, _, err := m.Issue(1, "bob")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		later := NewTokenManager("test-secret", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }

		_, err = later.Verify(token)
		if !errors.Is(err, ErrExpiredToken) {
			t.Fatalf("expected ErrExpiredToken, got %v", err)
		}
		if !errors.Is(err, ErrUnauthenticated) {
			t.Error("expected error to wrap ErrUnauthenticated")
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		other.now = m.now
		token, _, err := other.Issue(1, "bob")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		if _, err := m.Verify(token); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		if _, err := m.Verify("not-a-jwt"); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("expected ErrMalformedToken, got %v", err)
		}
	})

	t.Run("empty token is missing", func(t *testing.T) {
		if _, err := m.Verify("  "); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("expected ErrMissingToken, got %v", err)
		}
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		d := NewTokenManager("s", 0)
		if d.ttl != DefaultTokenTTL {
			t.Errorf("ttl = %v, want %v", d.ttl, DefaultTokenTTL)
		}
	})
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "empty", header: "", wantErr: ErrMissingToken},
		{name: "wrong scheme", header: "Basic abc", wantErr: ErrMalformedToken},
		{name: "no token", header: "Bearer ", wantErr: ErrMalformedToken},
		{name: "no separator", header: "Bearer", wantErr: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
