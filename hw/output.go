// Package hw adapts the host layer to concrete output and input devices:
// a frame-channel presentation surface, an SDL window and audio device, and
// a keyboard input mapper. Nothing above this package touches SDL.
package hw

import (
	"image"
)

type OutputConfig struct {
	NumVideoBuffers int

	// FrameOutCh receives each presented frame. Nil means headless:
	// frames are dropped after the copy.
	FrameOutCh chan image.RGBA
}

// Output is a double-buffered presentation surface. The scheduler copies
// the core's frame into a back buffer between steps; a render goroutine
// forwards published frames so the tick context never waits on a consumer.
type Output struct {
	framebufidx int
	framebuf    [][]byte
	width       int
	height      int

	framecounter int
	framech      chan frame

	cfg OutputConfig
}

func NewOutput(cfg OutputConfig) *Output {
	if cfg.NumVideoBuffers <= 0 {
		cfg.NumVideoBuffers = 2
	}
	o := &Output{
		framebuf: make([][]byte, cfg.NumVideoBuffers),
		cfg:      cfg,
		framech:  make(chan frame),
	}
	go o.render()
	return o
}

type frame struct {
	video  []byte
	width  int
	height int
}

// BeginFrame returns a w*h*4 RGBA buffer for the next frame. Buffers are
// (re)allocated on the first call and on a resolution change, which only
// happens across core switches.
func (o *Output) BeginFrame(w, h int) []byte {
	if w != o.width || h != o.height {
		o.width, o.height = w, h
		for i := range o.framebuf {
			o.framebuf[i] = make([]byte, w*h*4)
		}
	}

	o.framebufidx++
	if o.framebufidx == o.cfg.NumVideoBuffers {
		o.framebufidx = 0
	}
	return o.framebuf[o.framebufidx]
}

// EndFrame publishes the buffer returned by the matching BeginFrame.
func (o *Output) EndFrame(video []byte) {
	o.framecounter++
	o.framech <- frame{video: video, width: o.width, height: o.height}
}

// Close stops the render goroutine. No Begin/EndFrame calls may follow.
func (o *Output) Close() {
	close(o.framech)
}

func (o *Output) render() {
	if o.cfg.FrameOutCh == nil {
		for range o.framech {
			// Headless, discard all frames.
		}
	} else {
		for f := range o.framech {
			o.cfg.FrameOutCh <- image.RGBA{
				Pix:    f.video,
				Stride: 4 * f.width,
				Rect:   image.Rect(0, 0, f.width, f.height),
			}
		}
	}
}
