package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
)

type payload struct {
	Price float64 `json:"price"`
	Name  string  `json:"name"`
}

func TestMemory_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.clock = func() time.Time { return now }

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("b"), 0))

	got, err := m.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	got, err = m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestRedis_RoundTripWithPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	r, err := NewRedis(ctx, &config.Redis{Addr: mr.Addr(), Prefix: "tj:"})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, SetJSON(ctx, r, "market:crypto", payload{Price: 64000.5, Name: "bitcoin"}, time.Hour))
	assert.True(t, mr.Exists("tj:market:crypto"))
	assert.Equal(t, time.Hour, mr.TTL("tj:market:crypto"))

	var got payload
	require.NoError(t, GetJSON(ctx, r, "market:crypto", &got))
	assert.Equal(t, payload{Price: 64000.5, Name: "bitcoin"}, got)

	mr.FastForward(2 * time.Hour)
	assert.ErrorIs(t, GetJSON(ctx, r, "market:crypto", &got), ErrMiss)
}

func TestNew_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()

	s := New(ctx, &config.Redis{Enabled: false}, zap.NewNop())
	assert.IsType(t, &Memory{}, s)

	s = New(ctx, &config.Redis{Enabled: true, Addr: "127.0.0.1:1"}, zap.NewNop())
	assert.IsType(t, &Memory{}, s)

	mr := miniredis.RunT(t)
	s = New(ctx, &config.Redis{Enabled: true, Addr: mr.Addr()}, zap.NewNop())
	assert.IsType(t, &Redis{}, s)
	_ = s.Close()
}

func TestGetJSON_CorruptValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("{not json"), 0))

	var got payload
	err := GetJSON(ctx, m, "k", &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
