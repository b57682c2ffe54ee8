// Package cache stores presigned download URLs so repeated reads of the
// same object reuse one signature until shortly before it expires.
package cache

import (
	"context"
	"time"
)

// Store is a string cache with per-entry TTL. A miss is ("", false, nil).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

const (
	keyPrefix               = "ct:presign:"
	errFailedParseRedisFmt  = "failed to parse redis url: %w"
	errFailedPingRedisFmt   = "failed to connect to redis: %w"
	errFailedCacheGetFmt    = "failed to read cache: %w"
	errFailedCacheSetFmt    = "failed to write cache: %w"
	errFailedEncodeEntryFmt = "failed to encode cache entry: %w"
	msgCacheReadFailed      = "presign cache read failed"
	msgCacheWriteFailed     = "presign cache write failed"
	msgCacheEntryCorrupt    = "presign cache entry corrupt"
)
