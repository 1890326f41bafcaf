package emu

import (
	"sync"
	"testing"
	"time"

	"meru/core"
	"meru/core/coretest"
	"meru/emu/log"
)

// Fake machine characteristics: 60 fps at 60 kHz, so one frame is 1000
// cycles and one audio sample is 100 cycles.
const (
	testClockRate  = 60000
	testSampleRate = 600
)

var registerOnce sync.Once

func registerTestCore(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() {
		log.Disable()
		core.Register(core.PlatformNES, func(rom []byte) (core.Core, error) {
			return coretest.New(core.Info{
				Platform:   core.PlatformNES,
				ClockRate:  testClockRate,
				SampleRate: testSampleRate,
				Width:      8,
				Height:     8,
			}), nil
		})
	})
}

func nesROM() []byte {
	rom := make([]byte, 32)
	copy(rom, "NES\x1a")
	return rom
}

func testConfig() Config {
	cfg := Config{}
	cfg.Audio.SampleRate = testSampleRate
	cfg.Audio.BufferMs = 1000
	cfg.Emulation.CatchUpSeconds = 2
	cfg.Emulation.SnapshotInterval = 4
	cfg.Emulation.RewindCapacity = 8
	return cfg
}

// testOutput records every presented frame.
type testOutput struct {
	buf    []byte
	frames [][]byte
}

func (o *testOutput) BeginFrame(w, h int) []byte {
	if len(o.buf) != w*h*4 {
		o.buf = make([]byte, w*h*4)
	}
	return o.buf
}

func (o *testOutput) EndFrame(pix []byte) {
	o.frames = append(o.frames, append([]byte(nil), pix...))
}

func (o *testOutput) Close() {}

// clock hands out fully deterministic tick timestamps.
type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Unix(1000, 0)}
}

func (c *clock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

// newTestSession returns a loaded, anchored session driven by a fake core.
func newTestSession(t *testing.T) (*Session, *testOutput, *clock) {
	t.Helper()
	registerTestCore(t)

	out := &testOutput{}
	sess := NewSession(testConfig(), out)
	if err := sess.Load(nesROM()); err != nil {
		t.Fatal(err)
	}

	clk := newClock()
	if err := sess.Tick(clk.now); err != nil { // anchor only
		t.Fatal(err)
	}
	return sess, out, clk
}

// fakeCore digs the coretest core out of the session for assertions.
func fakeCore(t *testing.T, s *Session) *coretest.Core {
	t.Helper()
	c, ok := s.core.(*coretest.Core)
	if !ok {
		t.Fatalf("session core is %T", s.core)
	}
	return c
}
