package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// ==========================
// Memory Store
// ==========================

func TestMemoryStore_CountSince(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "ip:1", "crisis", base, time.Minute))
	require.NoError(t, store.Record(ctx, "ip:1", "crisis", base.Add(30*time.Second), time.Minute))
	require.NoError(t, store.Record(ctx, "ip:1", "crisis", base.Add(90*time.Second), time.Minute))

	count, err := store.CountSince(ctx, "ip:1", "crisis", base.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountSince(ctx, "ip:1", "crisis", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

// ==========================
// Redis Store
// ==========================

func TestRedisStore_CountAndRecord(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, "user:u1", "coach-k", base.Add(time.Duration(i)*time.Minute), 10*time.Minute))
	}

	count, err := store.CountSince(ctx, "user:u1", "coach-k", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	key := "ai:ratelimit:coach-k:user:u1"
	members, err := mr.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 2, "records older than the window are pruned")
	assert.Equal(t, 10*time.Minute, mr.TTL(key))
}

func TestRedisStore_LimiterIntegration(t *testing.T) {
	_, client := setupRedis(t)
	clock := newFakeClock()
	limiter := newTestLimiter(t, NewRedisStore(client), clock)
	id := IdentityFromAddress("192.168.1.9")

	for i := 0; i < 5; i++ {
		require.False(t, limiter.Check(context.Background(), id, "ai-resource-discovery", 5, 1440).Limited)
		clock.Advance(time.Millisecond)
	}
	assert.True(t, limiter.Check(context.Background(), id, "ai-resource-discovery", 5, 1440).Limited)
}

func TestRedisStore_FailurePropagates(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	since := time.UnixMilli(1700000000000)

	mock.ExpectZRemRangeByScore("ai:ratelimit:crisis:ip:1", "-inf", "(1700000000000").SetErr(errors.New("READONLY"))

	_, err := store.CountSince(context.Background(), "ip:1", "crisis", since)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_FailOpenThroughLimiter(t *testing.T) {
	db, mock := redismock.NewClientMock()
	clock := newFakeClock()
	limiter := newTestLimiter(t, NewRedisStore(db), clock)
	since := strconv.FormatInt(clock.Now().Add(-5*time.Minute).UnixMilli(), 10)

	mock.ExpectZRemRangeByScore("ai:ratelimit:crisis-support-ai:ip:10.1.1.1", "-inf", "("+since).SetErr(errors.New("connection refused"))

	d := limiter.Check(context.Background(), IdentityFromAddress("10.1.1.1"), "crisis-support-ai", 10, 5)
	assert.False(t, d.Limited)
	assert.True(t, d.FailOpen)
	assert.Equal(t, 10, d.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Postgres Store
// ==========================

func TestPostgresStore_CountSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2025, 3, 1, 11, 55, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ai_rate_limits`).
		WithArgs("ip:1", "crisis-support-ai", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := NewPostgresStore(db).CountSince(context.Background(), "ip:1", "crisis-support-ai", since)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO ai_rate_limits`).
		WithArgs("user:u1", "coach-k", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM ai_rate_limits`).
		WithArgs("user:u1", "coach-k", at.Add(-5*time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewPostgresStore(db).Record(context.Background(), "user:u1", "coach-k", at, 5*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailOpenThroughLimiter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ai_rate_limits`).WillReturnError(errors.New("too many connections"))

	limiter := newTestLimiter(t, NewPostgresStore(db), newFakeClock())
	d := limiter.Check(context.Background(), IdentityFromAddress("10.0.0.7"), "crisis-support-ai", 10, 5)

	assert.False(t, d.Limited)
	assert.True(t, d.FailOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}
