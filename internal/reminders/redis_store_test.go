package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	exerciseStore(t, store)
}

func TestNewRedisStore_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisStore(nil))
}

func TestRedisStore_ConcurrentClaimsDoNotOverlap(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		require.NoError(t, store.Enqueue(ctx, sampleReminder(id, now.Add(-time.Minute))))
	}

	var (
		mu      sync.Mutex
		claimed = map[string]int{}
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			due, err := store.ClaimDue(ctx, now, 10)
			assert.NoError(t, err)
			mu.Lock()
			for _, r := range due {
				claimed[r.ID]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, 6)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "reminder %s claimed more than once", id)
	}
}

func TestRedisStore_RecordPersistsFields(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	remindAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	r := sampleReminder("x1", remindAt)
	r.EmailAddress = "jane@example.com"
	require.NoError(t, store.Enqueue(ctx, r))

	assert.True(t, mr.Exists(redisRecordKey("x1")))
	score, err := mr.ZScore(redisDueKey, "x1")
	require.NoError(t, err)
	assert.Equal(t, float64(remindAt.UnixMilli()), score)

	list, err := store.List(ctx, StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "jane@example.com", list[0].EmailAddress)
	assert.True(t, remindAt.Equal(list[0].RemindAt))
}

func TestRedisStore_ExpiredClaimIsRedelivered(t *testing.T) {
	store, mr := newRedisStore(t)
	store.WithLease(time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.Enqueue(ctx, sampleReminder("r1", now.Add(-time.Minute))))

	due, err := store.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, mr.Exists(redisProcessingKey))

	// The claiming worker never reports back.
	again, err := store.ClaimDue(ctx, now.Add(30*time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, again, "lease still held")

	again, err = store.ClaimDue(ctx, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "r1", again[0].ID)

	require.NoError(t, store.MarkSent(ctx, "r1", now.Add(2*time.Minute)))
	members, err := store.redis.ZRange(ctx, redisProcessingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Empty(t, members)

	later, err := store.ClaimDue(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestRedisStore_RescheduleReleasesLease(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.Enqueue(ctx, sampleReminder("r1", now.Add(-time.Minute))))

	_, err := store.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.NoError(t, store.Reschedule(ctx, "r1", now.Add(time.Minute), 1, "twilio down"))

	score, err := store.redis.ZScore(ctx, redisDueKey, "r1").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(now.Add(time.Minute).UnixMilli()), score)
	_, err = store.redis.ZScore(ctx, redisProcessingKey, "r1").Result()
	assert.ErrorIs(t, err, redis.Nil)
}
