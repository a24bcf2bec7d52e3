package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newIdleDispatcher builds a dispatcher without its worker, so jobs stay
// queued and the queue limits are observable.
func newIdleDispatcher(capacity int) *MailDispatcher {
	return &MailDispatcher{
		jobs: make(chan mailJob, capacity),
		stop: make(chan struct{}),
	}
}

func TestMailDispatcherQueueSemantics(t *testing.T) {
	request := EmailRequest{To: []string{"someone@example.com"}, Subject: "hi"}

	t.Run("enqueue rejects when the queue is full", func(t *testing.T) {
		d := newIdleDispatcher(1)

		assert.NoError(t, d.Enqueue(request))
		assert.ErrorIs(t, d.Enqueue(request), ErrQueueFull)
	})

	t.Run("enqueue-wait rejects when the queue is full", func(t *testing.T) {
		d := newIdleDispatcher(1)

		assert.NoError(t, d.Enqueue(request))
		assert.ErrorIs(t, d.EnqueueWait(request, 50*time.Millisecond), ErrQueueFull)
	})

	t.Run("enqueue-wait times out when nothing picks the job up", func(t *testing.T) {
		d := newIdleDispatcher(1)

		err := d.EnqueueWait(request, 50*time.Millisecond)
		assert.ErrorIs(t, err, ErrDispatchTimeout)

		// The job is still queued for delivery
		assert.Len(t, d.jobs, 1)
	})

	t.Run("waiting caller receives the worker's result", func(t *testing.T) {
		d := newIdleDispatcher(1)

		// Stand-in worker that reports success
		go func() {
			job := <-d.jobs
			job.done <- nil
		}()

		assert.NoError(t, d.EnqueueWait(request, time.Second))
	})
}
