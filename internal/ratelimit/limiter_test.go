package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCounter is an in-memory Counter for tests.
type memCounter struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	incrErr error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.counts[key]++
	if _, ok := m.ttls[key]; !ok {
		m.ttls[key] = ttl
	}
	return m.counts[key], nil
}

func (m *memCounter) TTL(_ context.Context, key string) (time.Duration, error) {
	return m.ttls[key], nil
}

func TestLimiter_Check(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	counter := newMemCounter()

	l := NewLimiter(counter, map[string]Rule{ActionSubmit: {Limit: 2, Window: time.Minute}})
	l.now = func() time.Time { return now }

	first, err := l.Check(ctx, "client-a", ActionSubmit)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, int64(1), first.Remaining)
	assert.Equal(t, now.Add(time.Minute).Unix(), first.ResetAt)

	second, err := l.Check(ctx, "client-a", ActionSubmit)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, int64(0), second.Remaining)

	third, err := l.Check(ctx, "client-a", ActionSubmit)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, int64(0), third.Remaining)

	other, err := l.Check(ctx, "client-b", ActionSubmit)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "clients are counted separately")
}

func TestLimiter_UnknownActionUsesDefault(t *testing.T) {
	l := NewLimiter(newMemCounter(), nil)

	res, err := l.Check(context.Background(), "c", "browse")
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Limit)
}

func TestLimiter_StorageError(t *testing.T) {
	counter := newMemCounter()
	counter.incrErr = errors.New("connection refused")
	l := NewLimiter(counter, nil)

	_, err := l.Check(context.Background(), "c", ActionSubmit)
	require.Error(t, err)
	assert.ErrorIs(t, err, counter.incrErr)
}
