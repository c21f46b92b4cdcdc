package middleware

import (
	"sync"
	"time"
)

// RateLimiter implements a simple in-memory rate limiter keyed by caller id
// and by client IP.
type RateLimiter struct {
	userLimits map[string]*windowCount
	ipLimits   map[string]*windowCount
	mu         sync.RWMutex

	userMaxRequests int
	ipMaxRequests   int
	window          time.Duration
}

type windowCount struct {
	requests  int
	resetTime time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(userMaxRequests, ipMaxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		userLimits:      make(map[string]*windowCount),
		ipLimits:        make(map[string]*windowCount),
		userMaxRequests: userMaxRequests,
		ipMaxRequests:   ipMaxRequests,
		window:          window,
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// CheckUserLimit checks if the caller has exceeded their rate limit
func (rl *RateLimiter) CheckUserLimit(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return allow(rl.userLimits, userID, rl.userMaxRequests, rl.window)
}

// CheckIPLimit checks if the client IP has exceeded its rate limit
func (rl *RateLimiter) CheckIPLimit(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return allow(rl.ipLimits, ip, rl.ipMaxRequests, rl.window)
}

func allow(limits map[string]*windowCount, key string, max int, window time.Duration) bool {
	now := time.Now()

	limit, exists := limits[key]
	if !exists || now.After(limit.resetTime) {
		limits[key] = &windowCount{
			requests:  1,
			resetTime: now.Add(window),
		}
		return true
	}

	if limit.requests >= max {
		return false
	}

	limit.requests++
	return true
}

// GetUserRemaining returns remaining requests for a caller
func (rl *RateLimiter) GetUserRemaining(userID string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return remaining(rl.userLimits, userID, rl.userMaxRequests)
}

// GetIPRemaining returns remaining requests for an IP
func (rl *RateLimiter) GetIPRemaining(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return remaining(rl.ipLimits, ip, rl.ipMaxRequests)
}

func remaining(limits map[string]*windowCount, key string, max int) int {
	limit, exists := limits[key]
	if !exists || time.Now().After(limit.resetTime) {
		return max
	}

	left := max - limit.requests
	if left < 0 {
		return 0
	}
	return left
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, limit := range rl.userLimits {
			if now.After(limit.resetTime) {
				delete(rl.userLimits, key)
			}
		}
		for key, limit := range rl.ipLimits {
			if now.After(limit.resetTime) {
				delete(rl.ipLimits, key)
			}
		}
		rl.mu.Unlock()
	}
}
