package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commonthread/internal/storage/s3"

	"github.com/rs/zerolog"
)

// Refresh margin so a cached URL is never handed out just before it lapses.
const minRemainingValidity = 30 * time.Second

type Presigner interface {
	Presign(ctx context.Context, in s3.PresignInput) (*s3.Presigned, error)
}

// CachedPresigner serves download presigns from a Store. Uploads always
// get a fresh signature. Cache failures degrade to presigning directly.
type CachedPresigner struct {
	next  Presigner
	store Store
	log   zerolog.Logger
}

func NewCachedPresigner(next Presigner, store Store, log zerolog.Logger) *CachedPresigner {
	return &CachedPresigner{next: next, store: store, log: log}
}

func (p *CachedPresigner) Presign(ctx context.Context, in s3.PresignInput) (*s3.Presigned, error) {
	if in.Op != s3.OpDownload || in.Expiration <= minRemainingValidity {
		return p.next.Presign(ctx, in)
	}

	key := cacheKey(in)
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg(msgCacheReadFailed)
	}
	if ok {
		var cached s3.Presigned
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
		p.log.Warn().Str("key", key).Msg(msgCacheEntryCorrupt)
	}

	out, err := p.next.Presign(ctx, in)
	if err != nil {
		return nil, err
	}

	if encoded, err := encode(out); err != nil {
		p.log.Warn().Err(err).Msg(msgCacheWriteFailed)
	} else if err := p.store.Set(ctx, key, encoded, in.Expiration-minRemainingValidity); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg(msgCacheWriteFailed)
	}
	return out, nil
}

func cacheKey(in s3.PresignInput) string {
	return fmt.Sprintf("%s/%s:%d", in.Bucket, in.Key, int64(in.Expiration/time.Second))
}

func encode(p *s3.Presigned) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf(errFailedEncodeEntryFmt, err)
	}
	return string(b), nil
}
