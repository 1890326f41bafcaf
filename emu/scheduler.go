package emu

import (
	"time"

	"meru/core"
	"meru/emu/log"
	"meru/snapshot"
)

// Tick advances the session by one scheduler step. The caller drives it at
// a steady cadence (display vsync or a dedicated ticker); ticks must be
// strictly sequential. When the session is not Running, Tick does nothing.
//
// The wall-clock delta since the previous tick is converted into an
// emulated-cycle budget at the core's clock rate and accumulated, so host
// jitter is absorbed instead of rounded away. The accumulator is clamped to
// the catch-up ceiling: after a long host stall the excess backlog is
// dropped rather than executed, which would flood the audio bridge and race
// the machine arbitrarily far ahead.
func (s *Session) Tick(now time.Time) error {
	if s.Status() != Running {
		return nil
	}

	if !s.anchored {
		// First tick after load, resume or restore only anchors the
		// baseline; there is no delta to run yet.
		s.lastTick = now
		s.anchored = true
		return nil
	}

	delta := now.Sub(s.lastTick)
	s.lastTick = now
	if delta < 0 {
		delta = 0
	}

	maxDelta := time.Duration(s.cfg.Emulation.CatchUpSeconds) * time.Second
	if delta > maxDelta {
		log.ModEmu.WarnZ("host stall, dropping backlog").
			Duration("stall", delta).
			Duration("kept", maxDelta).
			End()
		delta = maxDelta
	}

	// Scale the granted cycles by the speed setting: turbo runs the core
	// faster than wall time, slow motion slower. The scaling happens after
	// the nanosecond division so the intermediate cannot overflow even at
	// the clamp ceiling.
	s.budget += int64(delta) * s.info.ClockRate / int64(time.Second) * s.speed.Load() / 100
	if s.budget > s.maxBudget {
		s.budget = s.maxBudget
	}

	// The core sees one input snapshot for the whole step.
	if in := s.pending.Load(); in != nil {
		s.core.SetInput(*in)
	}

	consumed, err := s.core.Step(s.budget)
	if err != nil {
		return s.fault(err)
	}
	s.budget -= consumed // remainder carries to the next tick

	// Outputs are copied out before the core may overwrite them on its
	// next step: samples into the bridge ring, pixels into the surface's
	// back buffer.
	s.bridge.Push(s.core.AudioSamples())
	if s.out != nil {
		f := s.core.VideoFrame()
		dst := s.out.BeginFrame(f.Width, f.Height)
		copy(dst, f.Pix)
		s.out.EndFrame(dst)
	}

	s.ticks++
	s.frame++
	if iv := s.cfg.Emulation.SnapshotInterval; iv > 0 && s.ticks%uint64(iv) == 0 {
		s.capture()
	}
	return nil
}

// capture exports the core state into the rewind history. An export failure
// only costs this capture, not the session.
func (s *Session) capture() {
	blob, err := s.core.ExportState()
	if err != nil {
		log.ModSnap.WarnZ("rewind capture failed").Error("err", err).End()
		return
	}
	s.history.Push(snapshot.Encode(s.info.Platform, s.frame, blob))
	log.ModSnap.DebugZ("rewind capture").
		Uint64("frame", s.frame).
		Int("depth", s.history.Len()).
		End()
}

// fault tears the core down after an unrecoverable step error. Emulated
// hardware state is not separable into retryable units, so there is no
// partial-step recovery: the session drops to Idle. The rewind history is
// left intact; it holds only records validated before the fault.
func (s *Session) fault(err error) error {
	ferr := &core.FaultError{Platform: s.info.Platform, Err: err}
	log.ModEmu.ErrorZ("core fault, tearing down").Error("err", err).End()
	s.core = nil
	s.bridge.Flush()
	s.budget = 0
	s.anchored = false
	return ferr
}
