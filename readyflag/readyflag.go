package readyflag

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrorClosed  = errors.New("ReadyFlag is closed")
	ErrorAborted = errors.New("Wait was aborted")
)

// Flag signals that data is ready to any number of waiting goroutines. The producer only
// moves it from idle to ready, a consumer moves it back after it has observed ready.
type Flag struct {
	sync.Mutex
	ready bool

	updateCount uint64
	updateChan  chan (struct{})

	closed bool
}

// Set marks the flag ready and wakes all waiters. It does not block on waiters and does not
// allocate, so it can be called from the interrupt path.
func (f *Flag) Set() {
	f.Lock()
	f.ready = true
	f.updateCount++
	c := f.updateChan
	f.updateChan = nil
	f.Unlock()

	if c != nil {
		close(c)
	}
}

// Close wakes all waiters with ErrorClosed. Later calls to Wait fail immediately.
func (f *Flag) Close() {
	f.Lock()
	f.closed = true
	c := f.updateChan
	f.updateChan = nil
	f.Unlock()

	if c != nil {
		close(c)
	}
}

// IsReady returns the current state without consuming it
func (f *Flag) IsReady() bool {
	f.Lock()
	defer f.Unlock()

	return f.ready
}

// Count returns how many times Set was called
func (f *Flag) Count() uint64 {
	f.Lock()
	defer f.Unlock()

	return f.updateCount
}

// Wait blocks until the flag is ready and then consumes it. If several goroutines are woken
// only one of them consumes the event, the others go back to waiting. The context error is
// returned if ctx is done first.
func (f *Flag) Wait(ctx context.Context) error {
	return f.WaitAbort(ctx, nil)
}

// WaitAbort is Wait that also returns ErrorAborted when abort is closed. The event is not
// consumed in that case.
func (f *Flag) WaitAbort(ctx context.Context, abort <-chan struct{}) error {
	for {
		f.Lock()

		if f.closed {
			f.Unlock()
			return ErrorClosed
		}

		if f.ready {
			f.ready = false
			f.Unlock()
			return nil
		}

		if f.updateChan == nil {
			f.updateChan = make(chan (struct{}))
		}
		c := f.updateChan
		f.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-abort:
			return ErrorAborted
		case <-c:
		}
	}
}
