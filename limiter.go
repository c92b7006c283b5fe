/*
File: limiter.go
Version: 1.2.0
Last Update: 2026-08-22
Description: Per-client QPS limiting using token buckets behind a sharded map,
             with a background sweep of idle clients.
*/

package main

import (
	"context"
	"hash/maphash"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limitShardCount = 64

// Global Limiter Instance
var GlobalLimiter *LimiterManager

// clientState holds the token bucket for one client IP.
type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterShard struct {
	sync.Mutex
	clients map[string]*clientState
}

type LimiterManager struct {
	shards  [limitShardCount]*limiterShard
	config  *RateLimitConfig
	enabled bool
	seed    maphash.Seed
}

func InitLimiter(cfg RateLimitConfig) {
	GlobalLimiter = &LimiterManager{
		config:  &cfg,
		enabled: cfg.Enabled,
		seed:    maphash.MakeSeed(),
	}
	for i := 0; i < limitShardCount; i++ {
		GlobalLimiter.shards[i] = &limiterShard{clients: make(map[string]*clientState)}
	}
}

func (lm *LimiterManager) getShard(key string) *limiterShard {
	hash := maphash.String(lm.seed, key)
	return lm.shards[hash&(limitShardCount-1)]
}

// Allow reports whether the client may issue one more request right now.
// Disabled limiter admits everything.
func (lm *LimiterManager) Allow(clientIP net.IP) bool {
	if !lm.enabled || clientIP == nil {
		return true
	}

	ipStr := clientIP.String()
	shard := lm.getShard(ipStr)

	shard.Lock()
	state, exists := shard.clients[ipStr]
	if !exists {
		state = &clientState{
			limiter: rate.NewLimiter(rate.Limit(lm.config.ClientQPS), lm.config.ClientBurst),
		}
		shard.clients[ipStr] = state
	}
	state.lastSeen = time.Now()
	shard.Unlock()

	return state.limiter.Allow()
}

// StartCleanupRoutine sweeps idle client buckets until ctx is canceled.
func (lm *LimiterManager) StartCleanupRoutine(ctx context.Context) {
	if !lm.enabled {
		return
	}

	interval := lm.config.parsedCleanupInterval
	if interval == 0 {
		interval = time.Minute
	}

	LogInfo("[LIMITER] Starting cleanup routine (Interval: %v)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			LogInfo("[LIMITER] Stopping cleanup routine")
			return
		case <-ticker.C:
			lm.cleanup()
		}
	}
}

func (lm *LimiterManager) cleanup() {
	expiration := lm.config.parsedClientExpiration
	if expiration == 0 {
		expiration = 5 * time.Minute
	}
	now := time.Now()
	removed := 0

	for _, shard := range lm.shards {
		shard.Lock()
		for ip, state := range shard.clients {
			if now.Sub(state.lastSeen) > expiration {
				delete(shard.clients, ip)
				removed++
			}
		}
		shard.Unlock()
	}

	if removed > 0 {
		LogDebug("[LIMITER] Cleaned up %d idle client limiters", removed)
	}
}
