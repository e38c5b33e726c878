// internal/api/middleware_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-a", 3, time.Minute), "request %d", i+1)
	}
	assert.False(t, rl.Allow("client-a", 3, time.Minute))

	// Other clients keep their own window.
	assert.True(t, rl.Allow("client-b", 3, time.Minute))
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter()

	assert.True(t, rl.Allow("client-a", 1, 10*time.Millisecond))
	assert.False(t, rl.Allow("client-a", 1, 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow("client-a", 1, 10*time.Millisecond))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rateLimitMiddleware(NewRateLimiter(), 2, time.Minute))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	// Generated when absent.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))

	// Honored when supplied.
	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	router.ServeHTTP(w, req)
	assert.Equal(t, "upstream-42", w.Body.String())
	assert.Equal(t, "upstream-42", w.Header().Get("X-Request-ID"))
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(corsMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCurrentUserIDDefaultsToAnonymous(t *testing.T) {
	c, _ := testContext()
	assert.Equal(t, "", currentUserID(c))

	c.Set(contextUserIDKey, "u1")
	assert.Equal(t, "u1", currentUserID(c))
}
