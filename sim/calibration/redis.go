package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// KeyPrefix namespaces cached tables in Redis.
const KeyPrefix = "qcloud:calibration:"

// RedisProvider serves tables from a Redis cache and falls back to an upstream
// provider on a miss, writing the result back with a TTL. Cache failures are
// logged and never fail calibration.
type RedisProvider struct {
	client   *redis.Client
	upstream Provider
	ttl      time.Duration
}

// NewRedisProvider connects to addr and verifies the connection.
func NewRedisProvider(addr, password string, db int, upstream Provider, ttl time.Duration) (*RedisProvider, error) {
	if upstream == nil {
		return nil, errors.New("redis calibration cache needs an upstream provider")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisProvider{client: client, upstream: upstream, ttl: ttl}, nil
}

// CacheKey returns the Redis key holding nodeID's table.
func CacheKey(nodeID string) string {
	return KeyPrefix + nodeID
}

// Calibrate implements Provider.
func (p *RedisProvider) Calibrate(ctx context.Context, nodeID string) (Table, error) {
	key := CacheKey(nodeID)
	data, err := p.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t Table
		decodeErr := json.Unmarshal(data, &t)
		if decodeErr == nil {
			logrus.Debugf("calibration cache hit for %s (%d entries)", nodeID, len(t))
			return t, nil
		}
		logrus.Warnf("calibration cache entry %s is corrupt, refreshing: %v", key, decodeErr)
	case errors.Is(err, redis.Nil):
		logrus.Debugf("calibration cache miss for %s", nodeID)
	default:
		logrus.Warnf("calibration cache read for %s failed: %v", nodeID, err)
	}

	t, err := p.upstream.Calibrate(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding calibration for %s: %w", nodeID, err)
	}
	if err := p.client.Set(ctx, key, encoded, p.ttl).Err(); err != nil {
		logrus.Warnf("calibration cache write for %s failed: %v", nodeID, err)
	}
	return t, nil
}

// Invalidate drops the cached table for nodeID.
func (p *RedisProvider) Invalidate(ctx context.Context, nodeID string) error {
	return p.client.Del(ctx, CacheKey(nodeID)).Err()
}

// Close closes the Redis client.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
