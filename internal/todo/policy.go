package todo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type mode int

const (
	modeImmediate mode = iota
	modeDebounce
	modeManual
)

// Policy decides when a scheduled snapshot reaches the slot.
type Policy struct {
	mode  mode
	delay time.Duration
}

// Immediate writes each snapshot as soon as the writer is free.
func Immediate() Policy { return Policy{mode: modeImmediate} }

// Debounce writes once d has passed without another mutation.
func Debounce(d time.Duration) Policy { return Policy{mode: modeDebounce, delay: d} }

// Manual only writes on Flush or Close.
func Manual() Policy { return Policy{mode: modeManual} }

func (p Policy) String() string {
	switch p.mode {
	case modeDebounce:
		return fmt.Sprintf("debounce(%s)", p.delay)
	case modeManual:
		return "manual"
	}
	return "immediate"
}

var errWriterClosed = errors.New("writer closed")

// writer owns every write to the slot. It keeps at most one pending
// snapshot; a newer one replaces it, so writes land in mutation order and a
// stale list never overwrites a newer one.
type writer struct {
	policy Policy
	save   func([]byte) error

	mu      sync.Mutex
	pending []byte
	has     bool
	err     error // first failure since the last flush

	kick    chan struct{}
	flush   chan chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newWriter(p Policy, save func([]byte) error) *writer {
	w := &writer{
		policy:  p,
		save:    save,
		kick:    make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// schedule never blocks.
func (w *writer) schedule(b []byte) {
	w.mu.Lock()
	w.pending, w.has = b, true
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.stopped)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case <-w.kick:
			switch w.policy.mode {
			case modeImmediate:
				w.writePending()
			case modeDebounce:
				stopTimer()
				timer = time.NewTimer(w.policy.delay)
				timerC = timer.C
			}
		case <-timerC:
			timer, timerC = nil, nil
			w.writePending()
		case ack := <-w.flush:
			stopTimer()
			w.writePending()
			close(ack)
		case <-w.quit:
			stopTimer()
			w.writePending()
			return
		}
	}
}

func (w *writer) writePending() {
	w.mu.Lock()
	b, ok := w.pending, w.has
	w.pending, w.has = nil, false
	w.mu.Unlock()
	if !ok {
		return
	}

	if err := w.save(b); err != nil {
		w.mu.Lock()
		if w.err == nil {
			w.err = err
		}
		w.mu.Unlock()
	}
}

func (w *writer) takeErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	w.err = nil
	return err
}

// Flush writes any pending snapshot and returns the first write error seen
// since the previous Flush.
func (w *writer) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flush <- ack:
	case <-w.stopped:
		return errWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.takeErr()
}

// Close writes what is pending and stops the goroutine.
func (w *writer) Close(ctx context.Context) error {
	w.once.Do(func() { close(w.quit) })
	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.takeErr()
}
