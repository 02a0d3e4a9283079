package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"tpm/internal/api/apierr"
)

// 无法由速率推算空闲期时使用
const defaultLimiterIdle = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端 IP 限流
//
// 空闲超过 idle 的 IP 会被清理；idle 为令牌桶回满所需时间，清理后重建的限流器与原状态等价。
type RateLimiter struct {
	mu        sync.Mutex
	ips       map[string]*ipLimiter
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastPurge time.Time
	now       func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	idle := defaultLimiterIdle
	if r > 0 && r != rate.Inf {
		idle = max(time.Duration(float64(burst)/float64(r)*float64(time.Second)), time.Minute)
	}
	return &RateLimiter{
		ips:   make(map[string]*ipLimiter),
		rate:  r,
		burst: burst,
		idle:  idle,
		now:   time.Now,
	}
}

// GetLimiter 获取（或创建）某个 IP 的限流器
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.purgeIdleLocked(now)

	if entry, ok := rl.ips[ip]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.ips[ip] = &ipLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

// purgeIdleLocked 每个空闲周期最多扫描一次
func (rl *RateLimiter) purgeIdleLocked(now time.Time) {
	if now.Sub(rl.lastPurge) < rl.idle {
		return
	}
	rl.lastPurge = now
	for ip, entry := range rl.ips {
		if now.Sub(entry.lastSeen) >= rl.idle {
			delete(rl.ips, ip)
		}
	}
}

// Middleware gin 中间件
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.GetLimiter(c.ClientIP()).Allow() {
			respondError(c, apierr.TooManyRequests("too many import requests, try again later"))
			return
		}
		c.Next()
	}
}
