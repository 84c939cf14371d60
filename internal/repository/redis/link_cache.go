package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/redis/go-redis/v9"
)

type LinkCache struct {
	client *redis.Client
}

func NewLinkCache(client *redis.Client) *LinkCache {
	return &LinkCache{client: client}
}

func linkKey(code string) string {
	return fmt.Sprintf("link:%s", code)
}

// GetLink returns the cached link for code, or nil on a miss.
func (r *LinkCache) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	data, err := r.client.Get(ctx, linkKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, err
	}

	return &link, nil
}

// SetLink caches the link under code, the code it was resolved by.
func (r *LinkCache) SetLink(ctx context.Context, code string, link *domain.Link, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, linkKey(code), data, ttl).Err()
}

func (r *LinkCache) Invalidate(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = linkKey(code)
	}

	return r.client.Del(ctx, keys...).Err()
}
