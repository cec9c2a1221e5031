package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_GetSet(t *testing.T) {
	m := NewMemoryBackend(nil)
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte("hello")
	require.NoError(t, m.Set(ctx, "k", value, 0))
	value[0] = 'j'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got[0] = 'c'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), again)
}

func TestMemoryBackend_TTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewMemoryBackend(clock)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	clock.Advance(59 * time.Second)
	_, err := m.Get(ctx, "k")
	assert.NoError(t, err)

	clock.Advance(time.Second)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Zero(t, m.Len())
}

func TestMemoryBackend_Delete(t *testing.T) {
	m := NewMemoryBackend(nil)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "absent"))

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, "memory", m.Name())
}

func TestMemoryBackend_Concurrent(t *testing.T) {
	m := NewMemoryBackend(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			for j := 0; j < 100; j++ {
				_ = m.Set(ctx, key, []byte{byte(j)}, time.Hour)
				_, _ = m.Get(ctx, key)
				if j%10 == 0 {
					_ = m.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, m.Len(), 5)
}
