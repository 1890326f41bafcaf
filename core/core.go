// Package core defines the contract between the host layer and the
// emulation cores it drives. A core is a complete cycle-accurate machine
// simulation (CPU, video, audio, timers) living behind the Core interface;
// the host schedules it, drains its outputs and snapshots its state without
// any knowledge of its internals.
package core

// Info describes the fixed characteristics of a loaded core. All values are
// constant for the lifetime of the core instance.
type Info struct {
	Platform   Platform
	ClockRate  int64 // emulated master clock, in cycles per second
	SampleRate int   // native audio rate, in sample frames per second
	Width      int   // video resolution, in pixels
	Height     int
}

// Sample is one stereo sample frame at the core's native rate. Mono cores
// fill both channels with the same value.
type Sample struct {
	L, R int16
}

// Frame is a read-only view of the core's video output: RGBA pixels, 4 bytes
// per pixel, Width*Height*4 long. The core may overwrite Pix on its next
// Step, so the host must copy it out before stepping again.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Core is implemented by every emulation core. All methods are called from
// the scheduler tick context only; implementations need no internal locking.
type Core interface {
	// Reset performs a hardware reset, equivalent to the console's reset
	// button. ROM contents and battery-backed memory are preserved.
	Reset()

	// Step runs the machine for at most budget cycles and returns the
	// number of cycles actually consumed. A core may stop short of the
	// budget on a natural frame boundary; it must never exceed it. A
	// non-nil error is an unrecoverable internal fault: the machine state
	// is undefined afterwards and the host tears the core down.
	Step(budget int64) (consumed int64, err error)

	// SetInput installs the pad state the core will observe on its next
	// Step. The value is a snapshot: the core must not see input changes
	// mid-step.
	SetInput(in InputState)

	// ExportState serializes the complete resumable machine state. It is a
	// pure read: it consumes no cycles and has no observable effect on
	// subsequent execution. The returned blob layout is private to the
	// core; the host only ever stores and replays it.
	ExportState() ([]byte, error)

	// ImportState restores a blob previously produced by ExportState on a
	// core of the same platform. Import is atomic: on error (wrapping
	// ErrIncompatibleState for platform/version mismatches) the current
	// machine state is left untouched.
	ImportState(data []byte) error

	// AudioSamples returns the sample frames produced by the last Step, in
	// production order, at the native rate from Info. The slice is only
	// valid until the next Step call.
	AudioSamples() []Sample

	// VideoFrame returns the most recently completed video frame. The
	// backing pixels are only valid until the next Step call.
	VideoFrame() Frame

	// Info returns the core's fixed characteristics.
	Info() Info
}
