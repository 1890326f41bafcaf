package core

import (
	"fmt"

	"meru/emu/log"
)

// Factory constructs a powered-up core from raw ROM bytes.
type Factory func(rom []byte) (Core, error)

var registry = make(map[Platform]Factory)

// Register installs the factory for a platform. Core implementations call it
// from their init function, database/sql driver style. Registering the same
// platform twice panics: it is a wiring bug, not a runtime condition.
func Register(p Platform, f Factory) {
	if f == nil {
		panic("core: Register with nil factory")
	}
	if _, dup := registry[p]; dup {
		panic(fmt.Sprintf("core: Register called twice for platform %s", p))
	}
	registry[p] = f
	log.ModCore.DebugZ("registered core factory").Stringer("platform", p).End()
}

// Resolve returns the factory for a detected platform, or ErrUnrecognized if
// no core for it was compiled in.
func Resolve(p Platform) (Factory, error) {
	f, ok := registry[p]
	if !ok {
		return nil, fmt.Errorf("no core registered for %s: %w", p, ErrUnrecognized)
	}
	return f, nil
}
