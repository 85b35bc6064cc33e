package tracker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the idle window the UI uses for notes and cost inputs.
const DefaultDebounce = time.Second

// ErrCanceled resolves the handle of a pending write that was dropped by
// an explicit Cancel before it could flush.
var ErrCanceled = errors.New("tracker: pending write canceled")

// FlushFunc persists the latest value of one field of one report. It is
// called at most once per coalesced write and carries only the field it
// was scheduled for, never a snapshot of unrelated fields.
type FlushFunc func(reportID, field string, value interface{}) error

// Synchronizer coalesces rapid edits to long-lived report fields into
// single outbound writes. Each (report, field) pair owns its own timer and
// at most one in-flight write; edits to different fields never block each
// other.
//
// An edit arriving while a write for the same pair is in flight does not
// race it: the new value is parked and a fresh write is scheduled after
// the current one settles.
type Synchronizer struct {
	mu      sync.Mutex
	delay   time.Duration
	flush   FlushFunc
	entries map[syncKey]*syncEntry
}

type syncKey struct {
	reportID string
	field    string
}

// pendingWrite is one scheduled (or parked) write with its handle.
type pendingWrite struct {
	timer  *time.Timer
	value  interface{}
	handle *Handle
}

type syncEntry struct {
	pending  *pendingWrite // armed timer waiting out the idle window
	queued   *pendingWrite // edit that arrived while a write was in flight
	inFlight bool
}

// NewSynchronizer creates a synchronizer that persists coalesced edits via
// flush after delay of idle time. A non-positive delay falls back to
// DefaultDebounce.
func NewSynchronizer(flush FlushFunc, delay time.Duration) *Synchronizer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Synchronizer{
		delay:   delay,
		flush:   flush,
		entries: make(map[syncKey]*syncEntry),
	}
}

// Set records a keystroke-level edit. The caller keeps its optimistic
// local copy; Set only (re)schedules persistence: a previous pending timer
// for the same pair is replaced, never queued behind.
//
// The returned handle resolves when the write this edit was coalesced
// into settles (or is canceled). Edits coalesced into the same write share
// one handle.
func (s *Synchronizer) Set(reportID, field string, value interface{}) *Handle {
	key := syncKey{reportID: reportID, field: field}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil {
		entry = &syncEntry{}
		s.entries[key] = entry
	}

	if entry.inFlight {
		// A write is on the wire; park the value for a fresh write after
		// it settles rather than racing it
		if entry.queued == nil {
			entry.queued = &pendingWrite{value: value, handle: newHandle()}
		} else {
			entry.queued.value = value
		}
		return entry.queued.handle
	}

	if entry.pending != nil {
		// Replace the pending value and restart the idle window
		entry.pending.value = value
		entry.pending.timer.Stop()
		entry.pending.timer.Reset(s.delay)
		return entry.pending.handle
	}

	write := &pendingWrite{value: value, handle: newHandle()}
	write.timer = time.AfterFunc(s.delay, func() { s.fire(key) })
	entry.pending = write
	return write.handle
}

// Flush immediately persists the pending write for a (report, field) pair,
// bypassing the remaining idle window. It returns the settled handle, or
// nil when nothing was pending. A write already in flight is left to
// settle on its own.
func (s *Synchronizer) Flush(reportID, field string) *Handle {
	key := syncKey{reportID: reportID, field: field}

	s.mu.Lock()
	entry := s.entries[key]
	if entry == nil || entry.pending == nil {
		s.mu.Unlock()
		return nil
	}
	entry.pending.timer.Stop()
	handle := entry.pending.handle
	s.mu.Unlock()

	s.fire(key)
	return handle
}

// Cancel drops the pending write for a (report, field) pair without
// persisting it. Its handle resolves with ErrCanceled. A write already in
// flight is not interrupted.
func (s *Synchronizer) Cancel(reportID, field string) {
	key := syncKey{reportID: reportID, field: field}

	s.mu.Lock()
	entry := s.entries[key]
	var dropped []*pendingWrite
	if entry != nil {
		if entry.pending != nil {
			entry.pending.timer.Stop()
			dropped = append(dropped, entry.pending)
			entry.pending = nil
		}
		if entry.queued != nil {
			dropped = append(dropped, entry.queued)
			entry.queued = nil
		}
		if !entry.inFlight {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	for _, write := range dropped {
		write.handle.settle(ErrCanceled)
	}
}

// FlushAll synchronously persists every pending write. Used on teardown so
// no edit is silently lost.
func (s *Synchronizer) FlushAll() {
	s.mu.Lock()
	keys := make([]syncKey, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.pending != nil {
			entry.pending.timer.Stop()
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()

	for _, key := range keys {
		s.fire(key)
	}
}

// CancelAll drops every pending write without persisting.
func (s *Synchronizer) CancelAll() {
	s.mu.Lock()
	var dropped []*pendingWrite
	for key, entry := range s.entries {
		if entry.pending != nil {
			entry.pending.timer.Stop()
			dropped = append(dropped, entry.pending)
			entry.pending = nil
		}
		if entry.queued != nil {
			dropped = append(dropped, entry.queued)
			entry.queued = nil
		}
		if !entry.inFlight {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	for _, write := range dropped {
		write.handle.settle(ErrCanceled)
	}
}

// PendingCount returns how many writes are waiting out their idle window.
func (s *Synchronizer) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.entries {
		if entry.pending != nil {
			count++
		}
	}
	return count
}

// fire takes the pending write for key in flight and runs the flush. When
// an edit was parked during the flight, a fresh timer is armed for it.
func (s *Synchronizer) fire(key syncKey) {
	s.mu.Lock()
	entry := s.entries[key]
	if entry == nil || entry.pending == nil || entry.inFlight {
		s.mu.Unlock()
		return
	}
	write := entry.pending
	entry.pending = nil
	entry.inFlight = true
	s.mu.Unlock()

	err := s.flush(key.reportID, key.field, write.value)

	s.mu.Lock()
	entry.inFlight = false
	if entry.queued != nil {
		next := entry.queued
		entry.queued = nil
		next.timer = time.AfterFunc(s.delay, func() { s.fire(key) })
		entry.pending = next
	}
	if entry.pending == nil {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	write.handle.settle(err)
}

// Handle makes the completion (or failure) of a coalesced write observable
// so the caller can wire retries or error toasts. The synchronizer itself
// never retries: a failed write is reported exactly once and the decision
// is the caller's.
type Handle struct {
	done chan struct{}
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done is closed once the write has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the flush outcome. Only valid after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

// Wait blocks until the write settles or the context is canceled.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) settle(err error) {
	h.err = err
	close(h.done)
}
