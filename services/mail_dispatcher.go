package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"meallens-backend/shared/config"
)

// ErrDispatchTimeout is returned when a caller stops waiting for a queued
// email. The email itself is still delivered by the worker.
var ErrDispatchTimeout = errors.New("timed out waiting for email dispatch")

// ErrQueueFull is returned when the dispatch queue cannot take another job.
var ErrQueueFull = errors.New("email queue is full")

type mailJob struct {
	request EmailRequest
	done    chan error
}

// MailDispatcher delivers emails on a single background worker goroutine.
// Handlers enqueue jobs and either fire-and-forget or wait a bounded time
// for the send result.
type MailDispatcher struct {
	emailService *EmailService
	jobs         chan mailJob
	stop         chan struct{}
	wg           sync.WaitGroup
}

var (
	globalDispatcher *MailDispatcher
	dispatcherOnce   sync.Once
)

// NewMailDispatcher creates a dispatcher and starts its worker
func NewMailDispatcher(cfg *config.Config) *MailDispatcher {
	d := &MailDispatcher{
		emailService: NewEmailService(cfg),
		jobs:         make(chan mailJob, cfg.GetEmailQueueSize()),
		stop:         make(chan struct{}),
	}

	d.wg.Add(1)
	go d.worker()

	log.Printf("✅ Mail dispatcher started (queue size: %d)", cfg.GetEmailQueueSize())
	return d
}

// GetMailDispatcher returns the global dispatcher instance
func GetMailDispatcher() *MailDispatcher {
	dispatcherOnce.Do(func() {
		globalDispatcher = NewMailDispatcher(config.GetConfig())
	})
	return globalDispatcher
}

func (d *MailDispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobs:
			_, err := d.emailService.SendEmail(job.request)
			if job.done != nil {
				job.done <- err
			}
		case <-d.stop:
			// Drain remaining jobs before exiting
			for {
				select {
				case job := <-d.jobs:
					_, err := d.emailService.SendEmail(job.request)
					if job.done != nil {
						job.done <- err
					}
				default:
					return
				}
			}
		}
	}
}

// Enqueue queues an email without waiting for the result
func (d *MailDispatcher) Enqueue(request EmailRequest) error {
	select {
	case d.jobs <- mailJob{request: request}:
		return nil
	default:
		log.Printf("❌ Email queue full, dropping email to %v", request.To)
		return ErrQueueFull
	}
}

// EnqueueWait queues an email and waits up to timeout for the send result.
// On timeout the email stays queued and is still sent; the caller just
// stops waiting.
func (d *MailDispatcher) EnqueueWait(request EmailRequest, timeout time.Duration) error {
	done := make(chan error, 1)

	select {
	case d.jobs <- mailJob{request: request, done: done}:
	default:
		return ErrQueueFull
	}

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ErrDispatchTimeout
	}
}

// Shutdown stops the worker after draining queued jobs
func (d *MailDispatcher) Shutdown() {
	close(d.stop)
	d.wg.Wait()
}
