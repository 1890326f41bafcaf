// Package coretest provides a deterministic fake core for exercising the
// host layer. It honors every clause of the core contract: cycle budgets,
// natural frame boundaries, atomic state import and bit-exact replay after
// an export/import round trip. Its outputs are a keyed pseudo-random stream,
// so any divergence in scheduling or state handling shows up as different
// audio or video bytes.
package coretest

import (
	"encoding/binary"
	"fmt"

	"meru/core"
)

const (
	blobMagic   = "CTST"
	blobVersion = 1
	blobSize    = 4 + 1 + 1 + 8 + 8 + 8 + 8 + 8
)

// Core simulates a machine running at Info.ClockRate with a 60 Hz frame
// rate. Each consumed cycle advances an internal LCG; samples and pixels are
// drawn from it, and the pressed buttons are folded into the stream so input
// visibly changes execution.
type Core struct {
	info core.Info

	x         uint64 // LCG state, the entire "machine"
	cycles    int64  // total cycles consumed
	frame     uint64 // completed frames
	partial   int64  // cycles into the current frame
	frameSeed uint64 // LCG state captured at the last frame boundary

	in      core.InputState
	samples []core.Sample
	pix     []byte

	faultAfter int64 // inject a fault once cycles pass this; 0 disables
	faultErr   error
}

// New returns a powered-up fake core. ClockRate and SampleRate must be set;
// Width/Height default to 16x16 when zero.
func New(info core.Info) *Core {
	if info.Width == 0 {
		info.Width, info.Height = 16, 16
	}
	c := &Core{
		info: info,
		pix:  make([]byte, info.Width*info.Height*4),
	}
	c.Reset()
	return c
}

// FailAfter arms a fault: the first Step crossing total consumed cycles past
// n reports err. Used to test CoreFault teardown.
func (c *Core) FailAfter(n int64, err error) {
	c.faultAfter = n
	c.faultErr = err
}

func (c *Core) Reset() {
	c.x = 0x9E3779B97F4A7C15
	c.cycles = 0
	c.frame = 0
	c.partial = 0
	c.frameSeed = c.x
	c.samples = c.samples[:0]
	c.renderFrame()
}

func (c *Core) next() uint64 {
	c.x = c.x*6364136223846793005 + 1442695040888963407
	return c.x
}

// cyclesPerFrame is the natural frame boundary: the fake machine refreshes
// at 60 Hz.
func (c *Core) cyclesPerFrame() int64 {
	return c.info.ClockRate / 60
}

func (c *Core) Step(budget int64) (int64, error) {
	if budget < 0 {
		return 0, fmt.Errorf("negative budget %d", budget)
	}
	if c.faultErr != nil && c.cycles >= c.faultAfter {
		return 0, c.faultErr
	}

	// Input is observed once, at the start of the step.
	c.x ^= uint64(c.in.Pads[0].Buttons)<<32 | uint64(c.in.Pads[1].Buttons)

	// Stop at the frame boundary if it comes before the budget runs out.
	consumed := min(budget, c.cyclesPerFrame()-c.partial)

	// One sample per elapsed sample period, derived from the LCG.
	cps := c.info.ClockRate / int64(c.info.SampleRate)
	produced := (c.partial+consumed)/cps - c.partial/cps
	c.samples = c.samples[:0]
	for range produced {
		v := c.next()
		c.samples = append(c.samples, core.Sample{
			L: int16(v >> 48),
			R: int16(v >> 32),
		})
	}

	c.partial += consumed
	c.cycles += consumed
	if c.partial == c.cyclesPerFrame() {
		c.partial = 0
		c.frame++
		c.frameSeed = c.x
		c.renderFrame()
	}
	return consumed, nil
}

func (c *Core) renderFrame() {
	seed := c.frameSeed ^ c.frame
	for i := range c.pix {
		seed = seed*6364136223846793005 + 1442695040888963407
		c.pix[i] = byte(seed >> 56)
	}
}

func (c *Core) SetInput(in core.InputState) { c.in = in }

func (c *Core) AudioSamples() []core.Sample { return c.samples }

func (c *Core) VideoFrame() core.Frame {
	return core.Frame{Width: c.info.Width, Height: c.info.Height, Pix: c.pix}
}

func (c *Core) Info() core.Info { return c.info }

func (c *Core) ExportState() ([]byte, error) {
	blob := make([]byte, 0, blobSize)
	blob = append(blob, blobMagic...)
	blob = append(blob, blobVersion, byte(c.info.Platform))
	blob = binary.LittleEndian.AppendUint64(blob, c.x)
	blob = binary.LittleEndian.AppendUint64(blob, uint64(c.cycles))
	blob = binary.LittleEndian.AppendUint64(blob, c.frame)
	blob = binary.LittleEndian.AppendUint64(blob, uint64(c.partial))
	blob = binary.LittleEndian.AppendUint64(blob, c.frameSeed)
	return blob, nil
}

func (c *Core) ImportState(data []byte) error {
	if len(data) != blobSize || string(data[:4]) != blobMagic {
		return fmt.Errorf("bad blob framing: %w", core.ErrIncompatibleState)
	}
	if data[4] != blobVersion {
		return fmt.Errorf("blob version %d: %w", data[4], core.ErrIncompatibleState)
	}
	if core.Platform(data[5]) != c.info.Platform {
		return fmt.Errorf("blob for %s, core is %s: %w",
			core.Platform(data[5]), c.info.Platform, core.ErrIncompatibleState)
	}

	// All validation passed; only now touch live state.
	c.x = binary.LittleEndian.Uint64(data[6:])
	c.cycles = int64(binary.LittleEndian.Uint64(data[14:]))
	c.frame = binary.LittleEndian.Uint64(data[22:])
	c.partial = int64(binary.LittleEndian.Uint64(data[30:]))
	c.frameSeed = binary.LittleEndian.Uint64(data[38:])
	c.samples = c.samples[:0]
	c.renderFrame()
	return nil
}

// Frames returns the number of completed frames, for test assertions.
func (c *Core) Frames() uint64 { return c.frame }

// Cycles returns total consumed cycles, for test assertions.
func (c *Core) Cycles() int64 { return c.cycles }

var _ core.Core = (*Core)(nil)
