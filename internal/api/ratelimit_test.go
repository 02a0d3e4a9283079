package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiter_PerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	r.POST("/x", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	// 其他客户端不受影响
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))

	assert.Same(t, rl.GetLimiter("10.0.0.1"), rl.GetLimiter("10.0.0.1"))
}

func TestRateLimiter_PurgesIdleIPs(t *testing.T) {
	now := time.Date(2025, time.October, 31, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	rl.now = func() time.Time { return now }

	first := rl.GetLimiter("10.0.0.1")
	rl.GetLimiter("10.0.0.2")
	assert.Len(t, rl.ips, 2)

	// 回满之前仍保留原限流器
	now = now.Add(time.Hour)
	assert.Same(t, first, rl.GetLimiter("10.0.0.1"))

	now = now.Add(3 * time.Hour)
	rl.GetLimiter("10.0.0.3")
	assert.Len(t, rl.ips, 1)
	assert.NotSame(t, first, rl.GetLimiter("10.0.0.1"))
}
