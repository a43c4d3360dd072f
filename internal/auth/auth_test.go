package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPValidator_ValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Token == "valid-token" {
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: true, PlayerID: "p-123", Name: "alice"})
			return
		}
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: false})
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "")

	identity, err := validator.Validate(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.Equal(t, &Identity{PlayerID: "p-123", Name: "alice"}, identity)

	_, err = validator.Validate(context.Background(), "other-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidator_EmptyToken(t *testing.T) {
	_, err := NewHTTPValidator("http://localhost:9999", "").Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidator_ValidWithoutPlayer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: true})
	}))
	defer server.Close()

	_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidator_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidToken},
		{"forbidden", http.StatusForbidden, ErrInvalidToken},
		{"rate limited", http.StatusTooManyRequests, ErrUnavailable},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"service unavailable", http.StatusServiceUnavailable, ErrUnavailable},
		{"unexpected", http.StatusTeapot, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPValidator_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPValidator_AdminSecret(t *testing.T) {
	var receivedSecret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSecret = r.Header.Get("X-Admin-Secret")
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: true, PlayerID: "test"})
	}))
	defer server.Close()

	_, err := NewHTTPValidator(server.URL, "my-secret").Validate(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "my-secret", receivedSecret)

	_, err = NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	require.NoError(t, err)
	assert.Empty(t, receivedSecret)
}

func TestHTTPValidator_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPValidator_NetworkError(t *testing.T) {
	_, err := NewHTTPValidator("http://localhost:1", "").Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestJWTValidator_RoundTrip(t *testing.T) {
	v := NewJWTValidator("s3cret")
	token, err := v.Sign(Identity{PlayerID: "alice", Name: "Alice"}, time.Hour)
	require.NoError(t, err)

	identity, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{PlayerID: "alice", Name: "Alice"}, identity)

	_, err = NewJWTValidator("other").Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidator_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewJWTValidator("s3cret")
	v.now = func() time.Time { return now }

	token, err := v.Sign(Identity{PlayerID: "alice"}, time.Minute)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = v.Validate(context.Background(), token)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = v.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidator_RejectsOtherMethodsAndMissingSubject(t *testing.T) {
	v := NewJWTValidator("s3cret")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anon, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "ghost"}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), anon)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNoopValidator(t *testing.T) {
	v := NewNoopValidator()

	identity, err := v.Validate(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, &Identity{PlayerID: "alice", Name: "alice"}, identity)

	identity, err = v.Validate(context.Background(), "p1:Bob")
	require.NoError(t, err)
	assert.Equal(t, &Identity{PlayerID: "p1", Name: "Bob"}, identity)

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
