package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

type recordingHandler struct {
	mu    sync.Mutex
	seen  []uuid.UUID
	reqs  []string
	fail  bool
	block chan struct{}
}

func (h *recordingHandler) Process(ctx context.Context, id uuid.UUID) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, id)
	h.reqs = append(h.reqs, common.RequestIDFromContext(ctx))
	if h.fail {
		return errors.New("boom")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	h := &recordingHandler{}
	q := NewProcessorQueue(h, quiet(), WithWorkers(3), WithQueueSize(16), WithProcessTimeout(time.Second))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{InvoiceID: uuid.New(), RequestID: "req-1"}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, 10, h.count())
	for _, r := range h.reqs {
		assert.Equal(t, "req-1", r)
	}
}

func TestProcessorQueue_RejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingHandler{}, quiet(), WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{InvoiceID: uuid.New()})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestProcessorQueue_FailedJobsDoNotStopWorkers(t *testing.T) {
	h := &recordingHandler{fail: true}
	q := NewProcessorQueue(h, quiet(), WithWorkers(1))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{InvoiceID: uuid.New()}))
	}
	q.Shutdown(context.Background())
	assert.Equal(t, 3, h.count())
}

func TestProcessorQueue_BackpressureHonoursContext(t *testing.T) {
	h := &recordingHandler{block: make(chan struct{})}
	q := NewProcessorQueue(h, quiet(), WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{InvoiceID: uuid.New()}))
	// the worker holds the first job, the second fills the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{InvoiceID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{InvoiceID: uuid.New()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(h.block)
	q.Shutdown(context.Background())
}
