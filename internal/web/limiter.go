package web

// limiter.go bounds how many previews are analyzed at once.
//
// Each preview holds a whole file and its classification in memory, so
// parallel previews are capped. When all slots are occupied, requests wait
// up to maxWait before failing with ErrTooManyPreviews. Shutdown drains
// running previews through WaitForDrain.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyPreviews is returned when all preview slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyPreviews = errors.New("too many concurrent previews, please try again later")

// Defaults applied when the limiter is built with non-positive settings.
const (
	DefaultMaxConcurrentPreviews = 5
	DefaultMaxWaitTime           = 30 * time.Second
)

// PreviewLimiter is a counting semaphore for preview analysis.
type PreviewLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewPreviewLimiter creates a limiter that allows at most maxConcurrent
// simultaneous previews.
func NewPreviewLimiter(maxConcurrent int, maxWait time.Duration) *PreviewLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentPreviews
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &PreviewLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. It returns ErrTooManyPreviews when maxWait
// passes first, or the context error if ctx ends. The caller must call
// Release after a nil return.
func (l *PreviewLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyPreviews
	}
}

// Release frees a slot taken by Acquire.
func (l *PreviewLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of previews currently running.
func (l *PreviewLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *PreviewLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no previews are running or ctx ends.
func (l *PreviewLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
