// Package audio moves sample frames from the emulation tick context to the
// audio device callback. The producer resamples the core's native-rate
// stream to the device rate with band-limited interpolation and appends to a
// bounded ring; the consumer drains the ring from the device callback.
// Neither side ever blocks: a full ring drops its oldest samples, an empty
// ring reads back silence.
package audio

import (
	"sync"
	"sync/atomic"

	"github.com/arl/blip"

	"meru/core"
	"meru/emu/log"
)

// Bridge connects one core's audio output to one audio device. Push is
// called only from the scheduler tick context, Read only from the device
// callback context; Flush may be called from anywhere. The ring mutex mu
// guards index arithmetic and nothing else, so the callback can never be
// held up by resampling work; pmu serializes the producer-side resampler
// state between Push and Flush and is never taken by Read.
type Bridge struct {
	pmu   sync.Mutex // guards the blip buffers and hold levels
	left  *blip.Buffer
	right *blip.Buffer
	prevL int16
	prevR int16

	// scratch holds interleaved L/R pairs read back from the resampler.
	scratch []int16

	// chunk is the native sample count fed per blip frame, sized so one
	// frame's resampled output always fits the blip buffers.
	chunk int

	mu    sync.Mutex
	ring  []core.Sample
	head  int // next write position
	count int

	drops     atomic.Uint64
	underruns atomic.Uint64

	nativeRate int
	deviceRate int
}

// minCapacity is the smallest usable ring/resampler size. Requests below
// it are raised: a tinier buffer cannot hold even one resampled chunk.
const minCapacity = 64

// NewBridge creates a bridge resampling nativeRate sample frames to
// deviceRate, buffering at most capacity device-rate frames.
func NewBridge(nativeRate, deviceRate, capacity int) *Bridge {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	b := &Bridge{
		left:       blip.NewBuffer(capacity),
		right:      blip.NewBuffer(capacity),
		scratch:    make([]int16, 4096),
		ring:       make([]core.Sample, capacity),
		nativeRate: nativeRate,
		deviceRate: deviceRate,
	}
	b.left.SetRates(float64(nativeRate), float64(deviceRate))
	b.right.SetRates(float64(nativeRate), float64(deviceRate))

	// Cap the per-frame input so its output never overruns a small blip
	// buffer, leaving half the buffer as headroom.
	b.chunk = min(pushChunk, nativeRate*capacity/(2*deviceRate))
	if b.chunk < 1 {
		b.chunk = 1
	}

	log.ModSound.InfoZ("audio bridge up").
		Int("native_rate", nativeRate).
		Int("device_rate", deviceRate).
		Int("capacity", capacity).
		End()
	return b
}

// pushChunk is the upper bound on native samples fed per blip frame,
// keeping the generated sample count under blip.MaxFrame at any realistic
// rate ratio.
const pushChunk = 1024

// Push resamples one batch of native-rate samples and appends the result to
// the ring, oldest first. When the ring is full the oldest unread samples
// are dropped: emulation pacing wins over audio completeness.
func (b *Bridge) Push(samples []core.Sample) {
	for len(samples) > 0 {
		n := min(len(samples), b.chunk)
		b.push(samples[:n])
		samples = samples[n:]
	}
}

func (b *Bridge) push(samples []core.Sample) {
	if len(samples) == 0 {
		return
	}
	b.pmu.Lock()
	defer b.pmu.Unlock()

	// Feed the batch as amplitude deltas clocked by sample index.
	for i, s := range samples {
		if d := int32(s.L) - int32(b.prevL); d != 0 {
			b.left.AddDelta(uint64(i), d)
			b.prevL = s.L
		}
		if d := int32(s.R) - int32(b.prevR); d != 0 {
			b.right.AddDelta(uint64(i), d)
			b.prevR = s.R
		}
	}
	b.left.EndFrame(len(samples))
	b.right.EndFrame(len(samples))

	// Drain the resampler in interleaved reads: left fills the even slots,
	// right the odd ones.
	pairs := len(b.scratch) / 2
	for {
		n := b.left.ReadSamples(b.scratch, pairs, blip.Stereo)
		if n == 0 {
			return
		}
		b.right.ReadSamples(b.scratch[1:], n, blip.Stereo)

		b.mu.Lock()
		dropped := 0
		for i := range n {
			s := core.Sample{L: b.scratch[2*i], R: b.scratch[2*i+1]}
			if b.count == len(b.ring) {
				// Full: overwrite the oldest slot and move the read
				// position past it, keeping the ring in production order.
				b.ring[b.head] = s
				b.head = (b.head + 1) % len(b.ring)
				dropped++
			} else {
				b.ring[(b.head+b.count)%len(b.ring)] = s
				b.count++
			}
		}
		b.mu.Unlock()

		if dropped > 0 {
			b.drops.Add(uint64(dropped))
			log.ModSound.DebugZ("audio overrun").Int("dropped", dropped).End()
		}
		if n < pairs {
			return
		}
	}
}

// Read fills out with buffered samples and returns how many were real.
// A shortfall is padded with silence and counted as an underrun; the call
// never waits for the producer.
func (b *Bridge) Read(out []core.Sample) int {
	b.mu.Lock()
	n := min(b.count, len(out))
	for i := range n {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	b.head = (b.head + n) % len(b.ring)
	b.count -= n
	b.mu.Unlock()

	if n < len(out) {
		clear(out[n:])
		b.underruns.Add(1)
	}
	return n
}

// Flush drops all buffered samples and resets the resampler. Called on
// pause and rewind so stale audio never plays after a time jump. Safe
// against a concurrent Push.
func (b *Bridge) Flush() {
	b.pmu.Lock()
	b.left.Clear()
	b.right.Clear()
	b.prevL = 0
	b.prevR = 0
	b.pmu.Unlock()

	b.mu.Lock()
	b.head = 0
	b.count = 0
	b.mu.Unlock()
}

// Buffered returns the number of device-rate samples waiting to be read.
func (b *Bridge) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Underruns returns the number of Read calls that came up short.
func (b *Bridge) Underruns() uint64 { return b.underruns.Load() }

// Drops returns the total count of samples discarded on overrun.
func (b *Bridge) Drops() uint64 { return b.drops.Load() }

// NativeRate returns the producer-side sample rate.
func (b *Bridge) NativeRate() int { return b.nativeRate }

// DeviceRate returns the consumer-side sample rate.
func (b *Bridge) DeviceRate() int { return b.deviceRate }
