package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, expires time.Time) string {
	t.Helper()
	claims := EventClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "firestore-trigger",
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func serve(secret, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events/users/created", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := EventAuthMiddleware(secret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c
}

func TestEventAuthMiddleware(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(time.Hour))
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), time.Now().Add(time.Hour))
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serve(testSecret, tt.header)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestEventAuthMiddleware_SetsPublisher(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(time.Hour))

	_, c := serve(testSecret, "Bearer "+token)

	assert.Equal(t, "firestore-trigger", c.Get("eventPublisher"))
}

func TestEventAuthMiddleware_NoSecret(t *testing.T) {
	rec, _ := serve("", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
