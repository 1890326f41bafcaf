// Package emu is the host layer driving one emulation core: it owns the
// session lifecycle, paces the core against wall-clock time, drains its
// audio and video output, and maintains the rewindable snapshot history.
package emu

import (
	"fmt"
	"sync/atomic"
	"time"

	"meru/audio"
	"meru/core"
	"meru/emu/log"
	"meru/rewind"
	"meru/snapshot"
)

// Output is the presentation surface video frames are forwarded to.
// BeginFrame hands out a w*h*4 RGBA buffer to fill; EndFrame publishes it.
// The returned buffer stays valid until the matching EndFrame.
type Output interface {
	BeginFrame(w, h int) []byte
	EndFrame(pix []byte)
	Close()
}

// Status is the session state: no core, ticking, or loaded-but-silent.
type Status uint8

const (
	Idle Status = iota
	Running
	Paused
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Session owns at most one live core and everything scheduled around it.
// Tick, Load, Unload, SaveState, RestoreState and Rewind must all be called
// from the same tick-driving context, never concurrently; Pause, Resume,
// SetInput and Status are safe from any goroutine.
type Session struct {
	cfg Config
	out Output

	core    core.Core
	info    core.Info
	bridge  *audio.Bridge
	history *rewind.Buffer

	budget    int64 // emulated cycles owed, carried across ticks
	maxBudget int64 // catch-up ceiling
	lastTick  time.Time
	anchored  bool // lastTick holds a valid baseline
	ticks     uint64
	frame     uint64 // monotonic frame index stamped into records

	paused  atomic.Bool
	pending atomic.Pointer[core.InputState]
	speed   atomic.Int64 // percent of real time, 100 = realtime
}

// NewSession creates an idle session presenting frames on out. A nil out is
// valid for headless use.
func NewSession(cfg Config, out Output) *Session {
	cfg.Check()
	return &Session{cfg: cfg, out: out}
}

// Status reports the current session state.
func (s *Session) Status() Status {
	if s.core == nil {
		return Idle
	}
	if s.paused.Load() {
		return Paused
	}
	return Running
}

// Load detects the ROM's platform, constructs the matching core and starts
// a running session. Any previously loaded core is fully torn down first,
// including its rewind history, before the new one becomes visible.
func (s *Session) Load(rom []byte) error {
	platform, err := core.Detect(rom)
	if err != nil {
		return err
	}
	factory, err := core.Resolve(platform)
	if err != nil {
		return err
	}
	c, err := factory(rom)
	if err != nil {
		return fmt.Errorf("%s core rejected rom: %w", platform.Abbrev(), err)
	}

	if s.core != nil {
		s.Unload()
	}

	info := c.Info()
	capacity := s.cfg.Audio.SampleRate * s.cfg.Audio.BufferMs / 1000
	s.core = c
	s.info = info
	s.bridge = audio.NewBridge(info.SampleRate, s.cfg.Audio.SampleRate, capacity)
	s.history = rewind.New(s.cfg.Emulation.RewindCapacity)
	s.maxBudget = int64(s.cfg.Emulation.CatchUpSeconds) * info.ClockRate
	s.budget = 0
	s.anchored = false
	s.ticks = 0
	s.frame = 0
	s.paused.Store(false)
	s.speed.Store(100)

	log.ModEmu.InfoZ("core loaded").
		Stringer("platform", platform).
		Int64("clock_rate", info.ClockRate).
		Int("sample_rate", info.SampleRate).
		Int("width", info.Width).
		Int("height", info.Height).
		End()
	return nil
}

// Unload tears the live core down and returns to Idle. Must be sequenced
// between ticks. The rewind history is cleared: stale records from the old
// core must never be restorable.
func (s *Session) Unload() {
	if s.core == nil {
		return
	}
	log.ModEmu.InfoZ("core unloaded").Stringer("platform", s.info.Platform).End()
	s.core = nil
	s.history.Clear()
	s.bridge.Flush()
	s.budget = 0
	s.anchored = false
	s.paused.Store(false)
}

// Pause stops ticking and silences audio. No-op when idle.
func (s *Session) Pause() {
	if s.core == nil || s.paused.Swap(true) {
		return
	}
	s.bridge.Flush()
	log.ModEmu.InfoZ("paused").End()
}

// Resume restarts ticking. Time spent paused never counts toward the cycle
// budget: the wall-clock baseline is re-anchored on the next tick.
func (s *Session) Resume() {
	if s.core == nil || !s.paused.Swap(false) {
		return
	}
	s.anchored = false
	log.ModEmu.InfoZ("resumed").End()
}

// Reset performs a hardware reset of the live core, like the console's
// reset button. Rewind history survives: it holds states from before the
// reset, all still restorable. No-op when idle.
func (s *Session) Reset() {
	if s.core == nil {
		return
	}
	s.core.Reset()
	s.bridge.Flush()
	s.budget = 0
	s.anchored = false
	log.ModEmu.InfoZ("reset").Stringer("platform", s.info.Platform).End()
}

// SetSpeed sets the emulation speed as a percentage of real time; 100 is
// realtime, 400 four times faster, 50 half speed. Values are clamped to
// [10, 1000]. Safe from any goroutine; the new speed takes effect on the
// next tick.
func (s *Session) SetSpeed(pct int) {
	pct = min(max(pct, 10), 1000)
	s.speed.Store(int64(pct))
	log.ModEmu.DebugZ("speed").Int("percent", pct).End()
}

// Speed returns the current emulation speed in percent of real time.
func (s *Session) Speed() int { return int(s.speed.Load()) }

// SetInput buffers the input snapshot the core will observe starting from
// its next step. Safe to call from the input-device context at any time.
func (s *Session) SetInput(in core.InputState) {
	s.pending.Store(&in)
}

// Bridge returns the audio bridge of the loaded core, nil when idle. The
// audio device callback reads from it.
func (s *Session) Bridge() *audio.Bridge { return s.bridge }

// Info returns the loaded core's characteristics. Zero value when idle.
func (s *Session) Info() core.Info { return s.info }

// SaveState captures the live core into a validated snapshot record.
func (s *Session) SaveState() (*snapshot.Record, error) {
	if s.core == nil {
		return nil, fmt.Errorf("no core loaded")
	}
	blob, err := s.core.ExportState()
	if err != nil {
		return nil, fmt.Errorf("state export: %w", err)
	}
	return snapshot.Encode(s.info.Platform, s.frame, blob), nil
}

// RestoreState replaces the live core's state with a previously captured
// record. All failures are recoverable: the session stays in its current
// state and the core is left untouched.
func (s *Session) RestoreState(rec *snapshot.Record) error {
	if s.core == nil {
		return fmt.Errorf("no core loaded")
	}
	if rec == nil || !rec.Valid() {
		return fmt.Errorf("record rejected: %w", snapshot.ErrCorrupt)
	}
	if rec.Platform != s.info.Platform {
		return fmt.Errorf("record is for %s, core is %s: %w",
			rec.Platform.Abbrev(), s.info.Platform.Abbrev(), core.ErrIncompatibleState)
	}
	if err := s.core.ImportState(rec.Blob); err != nil {
		return fmt.Errorf("state import: %w", err)
	}

	// Time jumped: drop queued audio and the cycle backlog.
	s.bridge.Flush()
	s.budget = 0
	s.anchored = false
	s.frame = rec.FrameIndex

	log.ModSnap.InfoZ("state restored").Uint64("frame", rec.FrameIndex).End()
	return nil
}

// Rewind steps n snapshots back through the history (0 = most recent
// capture) and restores that record. History newer than the restore point
// is discarded, but only once the restore succeeded: a failed restore
// leaves both the core and the history untouched. Returns
// core.ErrOutOfRange past the buffered depth.
func (s *Session) Rewind(n int) error {
	if s.core == nil {
		return fmt.Errorf("no core loaded")
	}
	rec, err := s.history.PeekBack(n)
	if err != nil {
		return err
	}
	if err := s.RestoreState(rec); err != nil {
		return err
	}
	s.history.SeekBack(n)
	return nil
}

// History returns the rewind buffer, nil when idle. Exposed for the UI's
// rewind depth indicator.
func (s *Session) History() *rewind.Buffer { return s.history }
