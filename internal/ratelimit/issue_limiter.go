package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumamail/backend/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyVerificationIssue = "verification:issue:%s"

// IssueLimiter throttles verification-code issuance per email address so a
// single address cannot be flooded with codes.
type IssueLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewIssueLimiter(cfg config.Config) (*IssueLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.IssueRate <= 0 || limitCfg.IssueBurst <= 0 {
		return nil, errors.New("issue rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &IssueLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.IssueRate,
		burst:   limitCfg.IssueBurst,
	}, nil
}

// Allow reports whether another code may be issued to the address. A nil or
// disabled limiter always allows.
func (l *IssueLimiter) Allow(ctx context.Context, email string) (bool, error) {
	if l == nil || !l.enabled {
		return true, nil
	}
	key := fmt.Sprintf(keyVerificationIssue, strings.ToLower(strings.TrimSpace(email)))
	return l.bucket.Allow(ctx, key, l.rate, l.burst, time.Hour)
}
