package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/addu10/CareerBridge/internal/model"
)

var ErrNotFound = errors.New("cache: not found")

// Cache is a redis-backed cache for profile snapshots and AI analysis
// results. All methods are no-ops returning ErrNotFound when constructed
// with a nil client, so the server runs without redis configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) SetProfile(ctx context.Context, user model.User) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "profile:"+user.ID, data, c.ttl).Err()
}

func (c *Cache) GetProfile(ctx context.Context, userID string) (model.User, error) {
	if c == nil || c.client == nil {
		return model.User{}, ErrNotFound
	}
	data, err := c.client.Get(ctx, "profile:"+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (c *Cache) InvalidateProfile(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, "profile:"+userID).Err()
}

// SetAnalysis stores an opaque AI service response under the payload hash.
func (c *Cache) SetAnalysis(ctx context.Context, key string, payload []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, "analysis:"+key, payload, c.ttl).Err()
}

func (c *Cache) GetAnalysis(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, ErrNotFound
	}
	data, err := c.client.Get(ctx, "analysis:"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
