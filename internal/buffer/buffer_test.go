package buffer_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlog/emberlog/internal/buffer"
	"github.com/emberlog/emberlog/internal/domain"
)

func entry(i int) domain.LogEntry {
	return domain.LogEntry{
		Level:   domain.LevelError,
		Event:   "unhandled_exception",
		Message: fmt.Sprintf("boom %d", i),
	}
}

func TestEnqueueDrainOrder(t *testing.T) {
	t.Parallel()

	buf := buffer.New(8)
	for i := 0; i < 5; i++ {
		require.True(t, buf.Enqueue(entry(i)))
	}
	assert.Equal(t, 5, buf.Len())

	batch := buf.DrainBatch(10)
	require.Len(t, batch, 5)
	for i, got := range batch {
		assert.Equal(t, fmt.Sprintf("boom %d", i), got.Message)
	}
	assert.Equal(t, 0, buf.Len())
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	buf := buffer.New(3)
	for i := 0; i < 5; i++ {
		buf.Enqueue(entry(i))
	}

	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, int64(2), buf.Dropped())
	assert.Equal(t, int64(5), buf.Enqueued())

	batch := buf.DrainBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, "boom 2", batch[0].Message)
	assert.Equal(t, "boom 4", batch[2].Message)
}

func TestDrainBatchRespectsMax(t *testing.T) {
	t.Parallel()

	buf := buffer.New(16)
	for i := 0; i < 10; i++ {
		buf.Enqueue(entry(i))
	}

	batch := buf.DrainBatch(4)
	require.Len(t, batch, 4)
	assert.Equal(t, 6, buf.Len())

	assert.Empty(t, buf.DrainBatch(0))
}

func TestDrainBatchEmpty(t *testing.T) {
	t.Parallel()

	buf := buffer.New(4)
	assert.Empty(t, buf.DrainBatch(8))
}
