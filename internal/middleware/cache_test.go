package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales/wedding-pass-api/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Thing": {"a", "b"}}
	body := []byte(`{"ok":true}`)

	bs, err := encodePayload(http.StatusCreated, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodePayload([]byte("short"))
	assert.False(t, ok)
	// Header length pointing past the buffer.
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, byte(0xff), byte(0xff), 1, 2})
	assert.False(t, ok)
}

func TestCacheKeyStrategies(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/tables")
		return c
	}

	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	withQuery := cacheKeyFrom(cfg, newCtx("/v1/tables?x=1"))
	withoutQuery := cacheKeyFrom(cfg, newCtx("/v1/tables"))
	assert.NotEqual(t, withQuery, withoutQuery)

	cfg.KeyStrategy = "route"
	assert.Equal(t,
		cacheKeyFrom(cfg, newCtx("/v1/tables?x=1")),
		cacheKeyFrom(cfg, newCtx("/v1/tables")))
}
