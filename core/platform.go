package core

//go:generate go tool stringer -type=Platform -trimprefix=Platform

// Platform identifies one of the supported console architectures. It tags
// snapshot records and selects the core factory at load time; the host never
// branches on it anywhere else.
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformNES
	PlatformSNES
	PlatformGB
	PlatformGBA
)

// Abbrev returns the short tag used in file names and log fields.
func (p Platform) Abbrev() string {
	switch p {
	case PlatformNES:
		return "nes"
	case PlatformSNES:
		return "snes"
	case PlatformGB:
		return "gb"
	case PlatformGBA:
		return "gba"
	}
	return "???"
}
