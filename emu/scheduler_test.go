package emu

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"meru/core"
)

func TestBudgetCarriesRemainder(t *testing.T) {
	sess, _, clk := newTestSession(t)
	fc := fakeCore(t, sess)

	// 25 ms grants 1500 cycles; the core stops at the 1000-cycle frame
	// boundary and the remainder stays owed.
	if err := sess.Tick(clk.advance(25 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if fc.Cycles() != 1000 {
		t.Fatalf("Cycles() = %d, want 1000", fc.Cycles())
	}
	if sess.budget != 500 {
		t.Fatalf("budget = %d, want 500 carried over", sess.budget)
	}

	if err := sess.Tick(clk.advance(25 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if fc.Cycles() != 2000 {
		t.Fatalf("Cycles() = %d, want 2000", fc.Cycles())
	}
	if sess.budget != 1000 {
		t.Fatalf("budget = %d, want 1000 carried over", sess.budget)
	}
}

func TestBudgetConservation(t *testing.T) {
	sess, _, clk := newTestSession(t)
	fc := fakeCore(t, sess)

	var granted int64
	for _, d := range []time.Duration{
		10 * time.Millisecond, 30 * time.Millisecond, 5 * time.Millisecond,
		50 * time.Millisecond, 17 * time.Millisecond, 100 * time.Millisecond,
	} {
		granted += int64(d) * testClockRate / int64(time.Second)
		if err := sess.Tick(clk.advance(d)); err != nil {
			t.Fatal(err)
		}
	}
	// Every granted cycle is either consumed or still owed, never both.
	if fc.Cycles()+sess.budget != granted {
		t.Fatalf("consumed %d + owed %d != granted %d",
			fc.Cycles(), sess.budget, granted)
	}
}

// The speed setting scales wall-clock time into a proportionally larger or
// smaller cycle grant: turbo runs the machine ahead of real time, slow
// motion behind it.
func TestSpeedMultiplier(t *testing.T) {
	sess, _, clk := newTestSession(t)
	fc := fakeCore(t, sess)

	if got := sess.Speed(); got != 100 {
		t.Fatalf("Speed() = %d after load, want 100", got)
	}

	// 25 ms at 200% grants 3000 cycles instead of 1500.
	sess.SetSpeed(200)
	if err := sess.Tick(clk.advance(25 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if got := fc.Cycles() + sess.budget; got != 3000 {
		t.Fatalf("obligation = %d cycles at 200%%, want 3000", got)
	}

	// 40 ms at 50% grants 1200 more.
	sess.SetSpeed(50)
	if err := sess.Tick(clk.advance(40 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if got := fc.Cycles() + sess.budget; got != 4200 {
		t.Fatalf("obligation = %d cycles after slow tick, want 4200", got)
	}
}

func TestSetSpeedClamps(t *testing.T) {
	sess, _, _ := newTestSession(t)

	sess.SetSpeed(0)
	if got := sess.Speed(); got != 10 {
		t.Fatalf("Speed() = %d, want floor 10", got)
	}
	sess.SetSpeed(100000)
	if got := sess.Speed(); got != 1000 {
		t.Fatalf("Speed() = %d, want ceiling 1000", got)
	}
}

// A 5 second host stall with a 2 second catch-up ceiling runs at most
// 2 seconds of emulated time, then returns to real-time pacing.
func TestCatchUpClamp(t *testing.T) {
	sess, _, clk := newTestSession(t)
	fc := fakeCore(t, sess)

	if err := sess.Tick(clk.advance(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	ceiling := int64(2 * testClockRate)
	if got := fc.Cycles() + sess.budget; got != ceiling {
		t.Fatalf("obligation after stall = %d cycles, want ceiling %d", got, ceiling)
	}

	// Drain the backlog with zero-delta ticks: the core must stop after the
	// clamped 2 seconds (120 frames), not the full 5 (300 frames).
	for range 300 {
		if err := sess.Tick(clk.now); err != nil {
			t.Fatal(err)
		}
	}
	if sess.budget != 0 {
		t.Fatalf("budget = %d after drain, want 0", sess.budget)
	}
	if fc.Frames() != 120 {
		t.Fatalf("Frames() = %d after catch-up, want 120", fc.Frames())
	}
}

func TestTickBackwardsClock(t *testing.T) {
	sess, _, clk := newTestSession(t)
	fc := fakeCore(t, sess)

	if err := sess.Tick(clk.now.Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	if fc.Cycles() != 0 {
		t.Fatalf("Cycles() = %d after a backwards tick, want 0", fc.Cycles())
	}
}

func TestSnapshotCadence(t *testing.T) {
	sess, _, clk := newTestSession(t)

	// SnapshotInterval is 4: nine ticks capture at ticks 4 and 8.
	for range 9 {
		if err := sess.Tick(clk.advance(tickStep)); err != nil {
			t.Fatal(err)
		}
	}
	if got := sess.History().Len(); got != 2 {
		t.Fatalf("History().Len() = %d, want 2", got)
	}
	if got := sess.History().Latest().FrameIndex; got != 8 {
		t.Fatalf("latest capture at frame %d, want 8", got)
	}
}

func TestSnapshotDisabled(t *testing.T) {
	registerTestCore(t)

	cfg := testConfig()
	cfg.Emulation.SnapshotInterval = -1
	sess := NewSession(cfg, &testOutput{})
	if err := sess.Load(nesROM()); err != nil {
		t.Fatal(err)
	}

	clk := newClock()
	for range 20 {
		if err := sess.Tick(clk.advance(tickStep)); err != nil {
			t.Fatal(err)
		}
	}
	if got := sess.History().Len(); got != 0 {
		t.Fatalf("History().Len() = %d with captures disabled, want 0", got)
	}
}

func TestCoreFaultTearsDown(t *testing.T) {
	sess, _, clk := newTestSession(t)
	fc := fakeCore(t, sess)

	for range 8 {
		if err := sess.Tick(clk.advance(tickStep)); err != nil {
			t.Fatal(err)
		}
	}
	depth := sess.History().Len()
	if depth == 0 {
		t.Fatal("no rewind captures before the fault")
	}

	boom := fmt.Errorf("open bus read")
	fc.FailAfter(1, boom)

	err := sess.Tick(clk.advance(tickStep))
	var ferr *core.FaultError
	if !errors.As(err, &ferr) {
		t.Fatalf("Tick() error = %v, want a FaultError", err)
	}
	if ferr.Platform != core.PlatformNES {
		t.Fatalf("FaultError.Platform = %s, want %s", ferr.Platform, core.PlatformNES)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("FaultError does not wrap the core error: %v", err)
	}

	if sess.Status() != Idle {
		t.Fatalf("Status() = %s after fault, want idle", sess.Status())
	}
	// The fault never touches validated history; only the live core dies.
	if got := sess.History().Len(); got != depth {
		t.Fatalf("History().Len() = %d after fault, want %d", got, depth)
	}
	if got := sess.Bridge().Buffered(); got != 0 {
		t.Fatalf("Buffered() = %d after fault, want 0", got)
	}

	// The session is idle now; ticking it is a no-op.
	if err := sess.Tick(clk.advance(tickStep)); err != nil {
		t.Fatal(err)
	}
}

func TestAudioFlowsIntoBridge(t *testing.T) {
	sess, _, clk := newTestSession(t)

	for range 4 {
		if err := sess.Tick(clk.advance(tickStep)); err != nil {
			t.Fatal(err)
		}
	}
	// Four frames at 10 samples per frame, resampled 1:1.
	if got := sess.Bridge().Buffered(); got == 0 {
		t.Fatal("no audio reached the bridge")
	}
}

func TestVideoReachesOutput(t *testing.T) {
	sess, out, clk := newTestSession(t)

	for range 3 {
		if err := sess.Tick(clk.advance(tickStep)); err != nil {
			t.Fatal(err)
		}
	}
	if len(out.frames) != 3 {
		t.Fatalf("presented %d frames, want 3", len(out.frames))
	}
	for i, f := range out.frames {
		if len(f) != 8*8*4 {
			t.Fatalf("frame %d is %d bytes, want %d", i, len(f), 8*8*4)
		}
	}
}
