package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func serve(middleware func(http.Handler) http.Handler, authorization string) *httptest.ResponseRecorder {
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestBearerEmptySecretIsPassthrough(t *testing.T) {
	recorder := serve(Bearer(""), "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestBearerAcceptsValidToken(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub": "scheduler",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	recorder := serve(Bearer("s3cret"), "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestBearerAcceptsTokenWithoutExpiry(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{"sub": "scheduler"})
	recorder := serve(Bearer("s3cret"), "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestBearerRejectsMissingHeader(t *testing.T) {
	recorder := serve(Bearer("s3cret"), "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestBearerRejectsMalformedHeader(t *testing.T) {
	recorder := serve(Bearer("s3cret"), "Token abc")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestBearerRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "other", jwt.MapClaims{"sub": "scheduler"})
	recorder := serve(Bearer("s3cret"), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestBearerRejectsExpiredToken(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub": "scheduler",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	recorder := serve(Bearer("s3cret"), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
