package main

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/sync/errgroup"

	"meru/core"
	"meru/emu"
	"meru/emu/log"
	"meru/hw"
	"meru/snapshot"
)

// emuMain runs the emulator directly with the given rom.
func emuMain(args Run, cfg emu.Config) {
	if args.Scale > 0 {
		cfg.Video.Scale = args.Scale
	}
	if args.NoAudio {
		cfg.Audio.DisableAudio = true
	}
	if args.NoRewind {
		cfg.Emulation.SnapshotInterval = -1
	}

	rom, err := os.ReadFile(args.RomPath)
	checkf(err, "failed to read rom")

	frameCh := make(chan image.RGBA, 1)
	out := hw.NewOutput(hw.OutputConfig{FrameOutCh: frameCh})
	sess := emu.NewSession(cfg, out)
	checkf(sess.Load(rom), "failed to load rom")

	title := "meru - " + filepath.Base(args.RomPath)
	win, err := hw.NewWindow(title, cfg.Video.Scale, !cfg.Video.DisableVSync)
	checkf(err, "failed to open window")
	defer win.Close()

	var dev *hw.AudioDevice
	if !cfg.Audio.DisableAudio {
		dev, err = hw.OpenAudio(cfg.Audio.SampleRate)
		checkf(err, "failed to open audio device")
		defer dev.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	if dev != nil {
		// The device pump is the only other execution context; it talks to
		// the session exclusively through the bridge's bounded ring.
		bridge := sess.Bridge()
		g.Go(func() error {
			ticker := time.NewTicker(5 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := dev.Pump(bridge); err != nil {
						return err
					}
				}
			}
		})
	}

	keymap := hw.NewKeymap(cfg.Input.Keys)
	statePath := args.RomPath + ".state"
	var in core.InputState

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	running := true
	for running {
		for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
			switch ev := ev.(type) {
			case *sdl.QuitEvent:
				running = false

			case *sdl.KeyboardEvent:
				pressed := ev.Type == sdl.KEYDOWN
				if keymap.Apply(&in, ev.Keysym.Scancode, pressed) {
					sess.SetInput(in)
					break
				}
				// Turbo is hold-to-run, so it reacts to both edges and must
				// be handled before the keydown-only hotkeys below.
				if ev.Keysym.Scancode == sdl.SCANCODE_TAB && ev.Repeat == 0 {
					if pressed {
						sess.SetSpeed(cfg.Emulation.TurboSpeed)
					} else {
						sess.SetSpeed(100)
					}
					break
				}
				if !pressed || ev.Repeat != 0 {
					break
				}
				switch ev.Keysym.Scancode {
				case sdl.SCANCODE_ESCAPE:
					running = false
				case sdl.SCANCODE_P:
					togglePause(sess, dev)
				case sdl.SCANCODE_R:
					sess.Reset()
					if dev != nil {
						dev.Flush()
					}
				case sdl.SCANCODE_GRAVE:
					toggleSlow(sess, cfg.Emulation.SlowSpeed)
				case sdl.SCANCODE_BACKSPACE:
					doRewind(sess, dev)
				case sdl.SCANCODE_F5:
					saveStateFile(sess, statePath)
				case sdl.SCANCODE_F7:
					loadStateFile(sess, statePath, dev)
				}
			}
		}

		if err := sess.Tick(time.Now()); err != nil {
			log.ModEmu.Errorf("session error: %v", err)
			running = false
		}

		select {
		case img := <-frameCh:
			if err := win.Present(img); err != nil {
				log.ModVideo.Errorf("present: %v", err)
			}
		default:
		}

		<-ticker.C
	}

	cancel()
	if err := g.Wait(); err != nil {
		log.ModSound.Errorf("audio pump: %v", err)
	}
	sess.Unload()
	out.Close()
}

func togglePause(sess *emu.Session, dev *hw.AudioDevice) {
	switch sess.Status() {
	case emu.Running:
		sess.Pause()
		if dev != nil {
			dev.Flush()
		}
	case emu.Paused:
		sess.Resume()
	}
}

func toggleSlow(sess *emu.Session, pct int) {
	if sess.Speed() == pct {
		sess.SetSpeed(100)
	} else {
		sess.SetSpeed(pct)
	}
}

func doRewind(sess *emu.Session, dev *hw.AudioDevice) {
	if err := sess.Rewind(1); err != nil {
		log.ModRewind.Warnf("rewind: %v", err)
		return
	}
	if dev != nil {
		dev.Flush()
	}
}

func saveStateFile(sess *emu.Session, path string) {
	rec, err := sess.SaveState()
	if err != nil {
		log.ModSnap.Errorf("save state: %v", err)
		return
	}
	data, err := rec.MarshalBinary()
	if err != nil {
		log.ModSnap.Errorf("save state: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.ModSnap.Errorf("save state: %v", err)
		return
	}
	log.ModSnap.InfoZ("state saved").String("path", path).End()
}

func loadStateFile(sess *emu.Session, path string, dev *hw.AudioDevice) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.ModSnap.Errorf("load state: %v", err)
		return
	}
	rec, err := snapshot.Decode(data)
	if err != nil {
		log.ModSnap.Errorf("load state: %v", err)
		return
	}
	if err := sess.RestoreState(rec); err != nil {
		log.ModSnap.Errorf("load state: %v", err)
		return
	}
	if dev != nil {
		dev.Flush()
	}
}
