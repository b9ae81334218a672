package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()

	require.NoError(t, c.Register(ctx, Entry{Segment: "s1", Field: "vec", Dimension: 4, Count: 10}))
	require.NoError(t, c.Register(ctx, Entry{Segment: "s0", Field: "vec", Dimension: 4}))
	require.NoError(t, c.Register(ctx, Entry{Segment: "s1", Field: "alt"}))

	err := c.Register(ctx, Entry{Segment: "s1", Field: "vec"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	e, err := c.Get(ctx, "s1", "vec")
	require.NoError(t, err)
	assert.Equal(t, 10, e.Count)

	_, err = c.Get(ctx, "s9", "vec")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"s0/vec", "s1/alt", "s1/vec"}, []string{all[0].Key(), all[1].Key(), all[2].Key()})

	s1, err := c.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	assert.ErrorIs(t, c.Register(ctx, Entry{Field: "vec"}), ErrInvalidEntry)
}

func TestMemoryCatalog_RegisterOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Register(ctx, Entry{Segment: "s", Field: "f"}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
