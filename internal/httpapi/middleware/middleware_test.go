package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/rag-chat/internal/auth"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":       c.GetString(UserIDKey),
			"privileged": c.GetBool(PrivilegedKey),
			"rid":        c.GetString(RequestIDKey),
		})
	})
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	return r
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratedOrEchoed(t *testing.T) {
	r := newEngine(RequestID())

	w := get(r, "/who", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = get(r, "/who", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"rid":"abc-123"`)
}

func TestIdentity(t *testing.T) {
	r := newEngine(Identity("k"))

	w := get(r, "/who", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":""`)

	tok, err := auth.SignJWT("alice", auth.RoleAdmin, "k", time.Hour)
	require.NoError(t, err)
	w = get(r, "/who", map[string]string{AuthorizationHdr: "Bearer " + tok})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"alice"`)
	assert.Contains(t, w.Body.String(), `"privileged":true`)

	w = get(r, "/who", map[string]string{AuthorizationHdr: "Basic Zm9vOmJhcg=="})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := auth.SignJWT("alice", "", "other-key", time.Hour)
	require.NoError(t, err)
	w = get(r, "/who", map[string]string{AuthorizationHdr: "Bearer " + other})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())

	w := get(r, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":50000`)
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(0.001, 2))

	assert.Equal(t, http.StatusOK, get(r, "/who", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/who", nil).Code)
	w := get(r, "/who", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":42901`)

	unlimited := newEngine(RateLimit(0, 0))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(unlimited, "/who", nil).Code)
	}
}
