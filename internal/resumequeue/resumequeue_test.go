package resumequeue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/internal/resumequeue"
)

func TestInMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := resumequeue.NewInMemoryQueue(4)
	ctx := context.Background()

	req := resumequeue.Request{ProcessID: "p1", NodeTokenID: 1, NodeID: 2, SetAttrs: map[string]any{"approved": true}}
	require.NoError(t, q.Enqueue(ctx, req))
	assert.Equal(t, 1, q.Len())

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, req, *got)
	assert.Equal(t, 0, q.Len())
}

func TestInMemoryQueue_DequeueRespectsContextCancellation(t *testing.T) {
	q := resumequeue.NewInMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueue_DefaultsCapacity(t *testing.T) {
	q := resumequeue.NewInMemoryQueue(0)
	require.NotNil(t, q)
	assert.Equal(t, 0, q.Len())
}

func TestInMemoryQueue_FIFOOrder(t *testing.T) {
	q := resumequeue.NewInMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, resumequeue.Request{NodeTokenID: 1}))
	require.NoError(t, q.Enqueue(ctx, resumequeue.Request{NodeTokenID: 2}))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	second, err := q.Dequeue(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.NodeTokenID)
	assert.Equal(t, 2, second.NodeTokenID)
}
