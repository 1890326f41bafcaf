package emu

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"meru/emu/log"
)

type Config struct {
	Video     VideoConfig     `toml:"video"`
	Audio     AudioConfig     `toml:"audio"`
	Emulation EmulationConfig `toml:"emulation"`
	Input     InputConfig     `toml:"input"`
}

type VideoConfig struct {
	Scale        int  `toml:"scale"`
	DisableVSync bool `toml:"disable_vsync"`
}

type AudioConfig struct {
	DisableAudio bool `toml:"disable_audio"`
	SampleRate   int  `toml:"sample_rate"` // device rate, Hz
	BufferMs     int  `toml:"buffer_ms"`   // bridge ring depth
}

type EmulationConfig struct {
	// CatchUpSeconds caps the emulated-cycle backlog executed after a host
	// stall. Anything beyond it is dropped, not caught up.
	CatchUpSeconds int `toml:"catch_up_seconds"`

	// SnapshotInterval is the number of ticks between rewind captures.
	// Negative disables captures entirely.
	SnapshotInterval int `toml:"snapshot_interval"`

	// RewindCapacity is the number of snapshot records kept. Together with
	// SnapshotInterval it bounds the rewind depth in wall-clock time.
	RewindCapacity int `toml:"rewind_capacity"`

	// TurboSpeed and SlowSpeed are the emulation speeds, in percent of real
	// time, the turbo and slow-motion hotkeys switch to.
	TurboSpeed int `toml:"turbo_speed"`
	SlowSpeed  int `toml:"slow_speed"`
}

// InputConfig maps logical button names to host key names. Keys the
// windowing backend cannot resolve are reported and ignored.
type InputConfig struct {
	Keys map[string]string `toml:"keys"`
}

// Check fills in defaults for unset or out-of-range values.
func (cfg *Config) Check() {
	if cfg.Video.Scale <= 0 {
		cfg.Video.Scale = 2
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.BufferMs <= 0 {
		cfg.Audio.BufferMs = 250
	}
	if cfg.Emulation.CatchUpSeconds <= 0 {
		cfg.Emulation.CatchUpSeconds = 2
	}
	if cfg.Emulation.SnapshotInterval == 0 {
		cfg.Emulation.SnapshotInterval = 60
	}
	if cfg.Emulation.RewindCapacity <= 0 {
		cfg.Emulation.RewindCapacity = 600
	}
	if cfg.Emulation.TurboSpeed <= 0 {
		cfg.Emulation.TurboSpeed = 400
	}
	if cfg.Emulation.SlowSpeed <= 0 {
		cfg.Emulation.SlowSpeed = 50
	}
}

var ConfigDir string = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("meru")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})()

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the meru config
// directory, or provides a default one.
func LoadConfigOrDefault() Config {
	var cfg Config
	if _, err := toml.DecodeFile(filepath.Join(ConfigDir, cfgFilename), &cfg); err != nil {
		cfg = Config{}
	}
	cfg.Check()
	return cfg
}

// SaveConfig writes cfg into the meru config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(ConfigDir, cfgFilename), buf, 0644)
}
