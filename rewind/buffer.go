// Package rewind keeps a bounded history of snapshot records so emulated
// time can be stepped backwards. The buffer is a fixed-capacity ring:
// pushing over a full buffer evicts the oldest record, so capacity times the
// capture interval bounds the reachable rewind depth.
package rewind

import (
	"fmt"

	"meru/core"
	"meru/emu/log"
	"meru/snapshot"
)

// Buffer is an ordered ring of snapshot records, newest last. All methods
// are called from the scheduler tick context; the buffer needs no locking.
type Buffer struct {
	slots []*snapshot.Record
	head  int // next write position
	count int
}

// New returns a buffer holding at most capacity records.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("rewind: capacity %d", capacity))
	}
	return &Buffer{slots: make([]*snapshot.Record, capacity)}
}

// Push appends a record, overwriting the oldest one when full.
func (b *Buffer) Push(rec *snapshot.Record) {
	b.slots[b.head] = rec
	b.head = (b.head + 1) % len(b.slots)
	if b.count < len(b.slots) {
		b.count++
	}
}

// Latest returns the most recent record without removing it, or nil when
// the buffer is empty.
func (b *Buffer) Latest() *snapshot.Record {
	if b.count == 0 {
		return nil
	}
	return b.slots[(b.head-1+len(b.slots))%len(b.slots)]
}

// PeekBack returns the record n steps behind the newest one (n == 0 is the
// newest) without altering history. Returns core.ErrOutOfRange when n
// reaches past the buffered history.
func (b *Buffer) PeekBack(n int) (*snapshot.Record, error) {
	if n < 0 || n >= b.count {
		return nil, fmt.Errorf("peek back %d of %d buffered: %w", n, b.count, core.ErrOutOfRange)
	}
	return b.slots[(b.head-1-n+2*len(b.slots))%len(b.slots)], nil
}

// SeekBack returns the record n steps behind the newest one (n == 0 is the
// newest) and discards everything newer than it: history resumes from the
// restore point, as it would on real hardware. Returns core.ErrOutOfRange
// when n reaches past the buffered history, leaving the buffer untouched.
func (b *Buffer) SeekBack(n int) (*snapshot.Record, error) {
	if n < 0 || n >= b.count {
		return nil, fmt.Errorf("seek back %d of %d buffered: %w", n, b.count, core.ErrOutOfRange)
	}

	// Drop the n records newer than the target.
	for range n {
		b.head = (b.head - 1 + len(b.slots)) % len(b.slots)
		b.slots[b.head] = nil
		b.count--
	}

	rec := b.slots[(b.head-1+len(b.slots))%len(b.slots)]
	log.ModRewind.DebugZ("seek back").
		Int("steps", n).
		Uint64("frame", rec.FrameIndex).
		End()
	return rec, nil
}

// Clear drops all history. Called on core switch and ROM unload so that a
// record from another platform can never be restored: isolation is
// structural, not checked at read time.
func (b *Buffer) Clear() {
	for i := range b.slots {
		b.slots[i] = nil
	}
	b.head = 0
	b.count = 0
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int { return b.count }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.slots) }
