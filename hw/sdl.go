package hw

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"meru/audio"
	"meru/core"
	"meru/emu/log"
)

// Window presents frames in an SDL window through a streaming texture
// sized to the core's resolution.
type Window struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	texw     int
	texh     int
	scale    int
}

func NewWindow(title string, scale int, vsync bool) (*Window, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL video: %w", err)
	}

	win, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		1, 1,
		sdl.WINDOW_HIDDEN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	flags := sdl.RendererFlags(sdl.RENDERER_ACCELERATED)
	if vsync {
		flags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(win, -1, flags)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	return &Window{win: win, renderer: renderer, scale: scale}, nil
}

// Present displays one RGBA frame, resizing the window and texture when the
// resolution changes (only across core switches).
func (w *Window) Present(img image.RGBA) error {
	fw, fh := img.Rect.Dx(), img.Rect.Dy()
	if fw == 0 || fh == 0 {
		return nil
	}

	if fw != w.texw || fh != w.texh {
		if w.texture != nil {
			w.texture.Destroy()
		}
		// ABGR8888 is RGBA byte order on little-endian hosts.
		tex, err := w.renderer.CreateTexture(
			sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
			int32(fw), int32(fh))
		if err != nil {
			return fmt.Errorf("failed to create texture: %w", err)
		}
		w.texture = tex
		w.texw, w.texh = fw, fh
		w.win.SetSize(int32(fw*w.scale), int32(fh*w.scale))
		w.win.Show()
		log.ModVideo.InfoZ("video surface").
			Int("width", fw).
			Int("height", fh).
			Int("scale", w.scale).
			End()
	}

	if err := w.texture.Update(nil, unsafe.Pointer(&img.Pix[0]), img.Stride); err != nil {
		return err
	}
	w.renderer.Clear()
	w.renderer.Copy(w.texture, nil, nil)
	w.renderer.Present()
	return nil
}

func (w *Window) Close() {
	if w.texture != nil {
		w.texture.Destroy()
	}
	w.renderer.Destroy()
	w.win.Destroy()
}

// AudioDevice feeds an SDL audio device from a bridge. The pump keeps the
// device queue topped up to a fixed latency target; the bridge pads
// shortfalls with silence, so the queue never starves the hardware.
type AudioDevice struct {
	id      sdl.AudioDeviceID
	rate    int
	samples []core.Sample
}

// audioLatency is the device-side queue target, in sample frames.
const audioLatency = 2048

func OpenAudio(rate int) (*AudioDevice, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL audio: %w", err)
	}

	want := sdl.AudioSpec{
		Freq:     int32(rate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  1024,
	}
	var have sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, &want, &have, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}

	dev := &AudioDevice{
		id:      id,
		rate:    rate,
		samples: make([]core.Sample, audioLatency),
	}
	sdl.PauseAudioDevice(id, false)
	log.ModSound.InfoZ("audio device open").Int("rate", rate).End()
	return dev, nil
}

// Pump moves samples from the bridge into the device queue, topping it up
// to the latency target. Called from the audio pump goroutine.
func (d *AudioDevice) Pump(bridge *audio.Bridge) error {
	queued := int(sdl.GetQueuedAudioSize(d.id)) / 4 // stereo int16 frames
	if queued >= audioLatency {
		return nil
	}

	want := min(audioLatency-queued, len(d.samples))
	bridge.Read(d.samples[:want])

	buf := unsafe.Slice((*byte)(unsafe.Pointer(&d.samples[0])), want*4)
	return sdl.QueueAudio(d.id, buf)
}

// Flush drops everything queued on the device. Used on pause and rewind.
func (d *AudioDevice) Flush() {
	sdl.ClearQueuedAudio(d.id)
}

func (d *AudioDevice) Close() {
	sdl.CloseAudioDevice(d.id)
}
