package emu

import "testing"

func TestConfigCheckDefaults(t *testing.T) {
	var cfg Config
	cfg.Check()

	if cfg.Video.Scale != 2 {
		t.Errorf("Scale = %d, want 2", cfg.Video.Scale)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.BufferMs != 250 {
		t.Errorf("BufferMs = %d, want 250", cfg.Audio.BufferMs)
	}
	if cfg.Emulation.CatchUpSeconds != 2 {
		t.Errorf("CatchUpSeconds = %d, want 2", cfg.Emulation.CatchUpSeconds)
	}
	if cfg.Emulation.SnapshotInterval != 60 {
		t.Errorf("SnapshotInterval = %d, want 60", cfg.Emulation.SnapshotInterval)
	}
	if cfg.Emulation.RewindCapacity != 600 {
		t.Errorf("RewindCapacity = %d, want 600", cfg.Emulation.RewindCapacity)
	}
	if cfg.Emulation.TurboSpeed != 400 {
		t.Errorf("TurboSpeed = %d, want 400", cfg.Emulation.TurboSpeed)
	}
	if cfg.Emulation.SlowSpeed != 50 {
		t.Errorf("SlowSpeed = %d, want 50", cfg.Emulation.SlowSpeed)
	}
}

func TestConfigCheckKeepsExplicitValues(t *testing.T) {
	var cfg Config
	cfg.Video.Scale = 4
	cfg.Emulation.SnapshotInterval = -1 // captures disabled
	cfg.Check()

	if cfg.Video.Scale != 4 {
		t.Errorf("Scale = %d, want 4", cfg.Video.Scale)
	}
	if cfg.Emulation.SnapshotInterval != -1 {
		t.Errorf("SnapshotInterval = %d, want -1", cfg.Emulation.SnapshotInterval)
	}
}
