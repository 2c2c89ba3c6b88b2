package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconnect/event-service/internal/cache"
)

func newTestCache(t *testing.T) (*cache.CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewCacheManager(client), mr
}

func TestRegistrationStatsInvalidatedAfterCommit(t *testing.T) {
	cm, mr := newTestCache(t)
	ctx := context.Background()

	tx := newTxRegistrationPostgreSQL(nil, cm)
	tx.invalidateStats(ctx, "e1")

	// a reader caches counts while the transaction is still open
	require.NoError(t, cm.Stats.Set(ctx, "event:e1:counts", map[string]int{"pending": 0}, time.Minute))

	tx.afterCommit(ctx)
	assert.False(t, mr.Exists("stats:event:e1:counts"))
}

func TestRegistrationStatsInvalidatedImmediatelyOutsideTransactions(t *testing.T) {
	cm, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, cm.Stats.Set(ctx, "event:e1:counts", map[string]int{"pending": 0}, time.Minute))

	newRegistrationPostgreSQL(nil, cm).invalidateStats(ctx, "e1")
	assert.False(t, mr.Exists("stats:event:e1:counts"))
}
