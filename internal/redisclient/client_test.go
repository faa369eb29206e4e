package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"pos-checkout-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("POS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires redis")
	}

	c, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLockIsExclusiveAndOwned(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	name := "checkout:" + uuid.NewString()

	ok, err := c.AcquireLock(ctx, name, "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, name, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner release is a no-op
	require.NoError(t, c.ReleaseLock(ctx, name, "owner-b"))
	ok, err = c.AcquireLock(ctx, name, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, name, "owner-a"))
	ok, err = c.AcquireLock(ctx, name, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMirrorStock(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	ref := models.StockRef{Kind: models.StockKindVariant, ID: uuid.NewString()}

	_, ok, err := c.GetMirroredStock(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.MirrorStock(ctx, ref, 4))
	qty, ok, err := c.GetMirroredStock(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, qty)
}
