package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nortsur/pedidos/internal/config"
)

// New creates a Redis client and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return client, nil
}

const phoneKeyPrefix = "pedidos:phone:"

// PhoneIndex maps normalized phone digits to client ids.
type PhoneIndex struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewPhoneIndex(client redis.Cmdable, ttl time.Duration) *PhoneIndex {
	return &PhoneIndex{client: client, ttl: ttl}
}

func phoneKey(digits string) string {
	return phoneKeyPrefix + digits
}

func (p *PhoneIndex) Lookup(ctx context.Context, digits string) (int64, bool, error) {
	if digits == "" {
		return 0, false, nil
	}
	id, err := p.client.Get(ctx, phoneKey(digits)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache: get phone %s: %w", digits, err)
	}
	return id, true, nil
}

func (p *PhoneIndex) Store(ctx context.Context, digits string, clientID int64) error {
	if digits == "" {
		return nil
	}
	if err := p.client.Set(ctx, phoneKey(digits), clientID, p.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set phone %s: %w", digits, err)
	}
	return nil
}

func (p *PhoneIndex) Forget(ctx context.Context, digits ...string) error {
	keys := make([]string, 0, len(digits))
	for _, d := range digits {
		if d != "" {
			keys = append(keys, phoneKey(d))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := p.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete phone keys: %w", err)
	}
	return nil
}
