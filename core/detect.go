package core

import (
	"meru/emu/log"
)

// nesMagic opens every iNES file.
const nesMagic = "NES\x1a"

// gbLogo is the Nintendo logo bitmap at 0x0104, verified by the Game Boy
// boot ROM. Every licensed and homebrew cartridge carries it.
var gbLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// detectors run in a fixed priority order: exact magic numbers first,
// checksummed headers next, the weak SNES heuristic last. Order matters and
// must stay deterministic; Detect returns the first match.
var detectors = []struct {
	platform Platform
	match    func(rom []byte) bool
}{
	{PlatformNES, isNES},
	{PlatformGBA, isGBA},
	{PlatformGB, isGB},
	{PlatformSNES, isSNES},
}

// Detect inspects ROM header bytes and returns the platform they belong to.
// File extensions are never consulted: the bytes are the only authority.
// Returns ErrUnrecognized when nothing matches; there is no default.
func Detect(rom []byte) (Platform, error) {
	for _, d := range detectors {
		if d.match(rom) {
			log.ModCore.DebugZ("platform detected").
				Stringer("platform", d.platform).
				Int("size", len(rom)).
				End()
			return d.platform, nil
		}
	}
	return PlatformUnknown, ErrUnrecognized
}

func isNES(rom []byte) bool {
	return len(rom) >= 16 && string(rom[:4]) == nesMagic
}

// isGBA checks the fixed 0x96 byte at 0xB2 and the header checksum over
// 0xA0..0xBC, as verified by the GBA BIOS.
func isGBA(rom []byte) bool {
	if len(rom) < 0xC0 || rom[0xB2] != 0x96 {
		return false
	}
	var sum uint8
	for _, b := range rom[0xA0:0xBD] {
		sum -= b
	}
	return sum-0x19 == rom[0xBD]
}

// isGB checks the boot ROM logo at 0x0104 and the header checksum over
// 0x0134..0x014C.
func isGB(rom []byte) bool {
	if len(rom) < 0x150 {
		return false
	}
	for i, b := range gbLogo {
		if rom[0x104+i] != b {
			return false
		}
	}
	var sum uint8
	for _, b := range rom[0x134:0x14D] {
		sum = sum - b - 1
	}
	return sum == rom[0x14D]
}

// isSNES looks for a plausible internal header at the LoROM or HiROM
// location: the checksum and its complement at base+0x1C must XOR to 0xFFFF.
// Weakest signature of the set, so it runs last.
func isSNES(rom []byte) bool {
	for _, base := range []int{0x7FC0, 0xFFC0} {
		if len(rom) < base+0x20 {
			continue
		}
		complement := uint16(rom[base+0x1C]) | uint16(rom[base+0x1D])<<8
		checksum := uint16(rom[base+0x1E]) | uint16(rom[base+0x1F])<<8
		if checksum^complement == 0xFFFF {
			return true
		}
	}
	return false
}
