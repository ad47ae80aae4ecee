package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales/wedding-pass-api/internal/utils"
)

const testSecret = "unit-test-secret"

func runWithAuth(t *testing.T, header string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	require.NoError(t, h(c))
	return rec, reached
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec, reached := runWithAuth(t, "", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthInvalidToken(t *testing.T) {
	rec, reached := runWithAuth(t, "Bearer not-a-jwt", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, "STAFF", 5)
	require.NoError(t, err)

	rec, reached := runWithAuth(t, "Bearer "+at.Token, JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "ADMIN", 5)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth(testSecret)(func(c echo.Context) error {
		assert.Equal(t, uint64(7), c.Get("user_id"))
		assert.Equal(t, "ADMIN", c.Get("role"))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "STAFF", 5)
	require.NoError(t, err)

	rec, reached := runWithAuth(t, "Bearer "+at.Token, JWTAuth(testSecret), RequireRole("ADMIN"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)

	rec, reached = runWithAuth(t, "Bearer "+at.Token, JWTAuth(testSecret), RequireRole("ADMIN", "STAFF"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestCurrentUserID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", currentUserID(c))
	c.Set("user_id", uint64(12))
	assert.Equal(t, "12", currentUserID(c))
}
