package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"traflow/internal/model"
)

// ErrMiss is returned when a key is not in the cache
var ErrMiss = errors.New("cache miss")

// ContextCache persists the per-session turn context between turns
type ContextCache interface {
	Set(ctx context.Context, tc *model.TurnContext) error
	Get(ctx context.Context, sessionID string) (*model.TurnContext, error)
	Delete(ctx context.Context, sessionID string) error
}

type contextCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewContextCache(client *redis.Client) ContextCache {
	return &contextCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *contextCache) Set(ctx context.Context, tc *model.TurnContext) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "turnctx:"+tc.SessionID, data, c.ttl).Err()
}

func (c *contextCache) Get(ctx context.Context, sessionID string) (*model.TurnContext, error) {
	data, err := c.client.Get(ctx, "turnctx:"+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var tc model.TurnContext
	if err := json.Unmarshal([]byte(data), &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

func (c *contextCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "turnctx:"+sessionID).Err()
}
