package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pos-checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

func stockKey(ref models.StockRef) string {
	return fmt.Sprintf("stock:%s:%s", ref.Kind, ref.ID)
}

// AcquireLock takes a named lock for ttl on behalf of owner.
// Returns false when somebody else holds it.
func (c *Client) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockKey(name), owner, ttl).Result()
}

// ReleaseLock drops the lock only if owner still holds it
func (c *Client) ReleaseLock(ctx context.Context, name, owner string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(name)}, owner).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// MirrorStock records the latest known stock level of a product or variant
func (c *Client) MirrorStock(ctx context.Context, ref models.StockRef, qty int) error {
	return c.rdb.Set(ctx, stockKey(ref), qty, 0).Err()
}

// GetMirroredStock reads a mirrored stock level. ok is false when nothing was mirrored yet.
func (c *Client) GetMirroredStock(ctx context.Context, ref models.StockRef) (qty int, ok bool, err error) {
	val, err := c.rdb.Get(ctx, stockKey(ref)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	qty, err = strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid mirrored stock %q: %w", val, err)
	}
	return qty, true, nil
}
