package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flagbot/internal/models"
)

type countingRunner struct {
	active int32
	max    int32
	delay  time.Duration
}

func (r *countingRunner) Run(ctx context.Context, msgs []models.RawMessage) (*Result, error) {
	n := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		m := atomic.LoadInt32(&r.max)
		if n <= m || atomic.CompareAndSwapInt32(&r.max, m, n) {
			break
		}
	}
	time.Sleep(r.delay)
	return &Result{Log: []string{"ran"}}, nil
}

func TestWorkerSerializesRuns(t *testing.T) {
	runner := &countingRunner{delay: 5 * time.Millisecond}
	w := NewWorker(runner, 8, zap.NewNop())
	defer w.Stop()

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := w.Submit(context.Background(), nil)
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.max))
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker(&countingRunner{}, 1, zap.NewNop())
	w.Stop()
	_, err := w.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrWorkerStopped)
}

func TestWorkerSubmitCancelled(t *testing.T) {
	w := NewWorker(&countingRunner{delay: 50 * time.Millisecond}, 1, zap.NewNop())
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := w.Submit(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
