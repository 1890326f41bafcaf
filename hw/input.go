package hw

import (
	"github.com/veandco/go-sdl2/sdl"

	"meru/core"
	"meru/emu/log"
)

// buttonNames are the logical button identifiers accepted in the [input]
// config section.
var buttonNames = map[string]core.Buttons{
	"up":     core.BtnUp,
	"down":   core.BtnDown,
	"left":   core.BtnLeft,
	"right":  core.BtnRight,
	"a":      core.BtnA,
	"b":      core.BtnB,
	"x":      core.BtnX,
	"y":      core.BtnY,
	"l":      core.BtnL,
	"r":      core.BtnR,
	"select": core.BtnSelect,
	"start":  core.BtnStart,
}

// defaultKeys is the keyboard layout used when the config has no [input]
// section.
var defaultKeys = map[string]string{
	"up":     "Up",
	"down":   "Down",
	"left":   "Left",
	"right":  "Right",
	"a":      "X",
	"b":      "Z",
	"x":      "S",
	"y":      "A",
	"l":      "Q",
	"r":      "W",
	"select": "Right Shift",
	"start":  "Return",
}

// Keymap resolves SDL scancodes to logical buttons for pad 0.
type Keymap map[sdl.Scancode]core.Buttons

// NewKeymap builds a keymap from config overrides layered over the default
// layout. Unknown button or key names are reported and skipped.
func NewKeymap(overrides map[string]string) Keymap {
	keys := make(map[string]string, len(defaultKeys))
	for btn, key := range defaultKeys {
		keys[btn] = key
	}
	for btn, key := range overrides {
		if _, ok := buttonNames[btn]; !ok {
			log.ModInput.Warnf("unknown button %q in input config", btn)
			continue
		}
		keys[btn] = key
	}

	km := make(Keymap, len(keys))
	for btn, key := range keys {
		sc := sdl.GetScancodeFromName(key)
		if sc == sdl.SCANCODE_UNKNOWN {
			log.ModInput.Warnf("unknown key name %q for button %q", key, btn)
			continue
		}
		km[sc] = buttonNames[btn]
	}
	return km
}

// Apply folds one key event into the input snapshot. Returns false when the
// scancode is not mapped.
func (km Keymap) Apply(in *core.InputState, sc sdl.Scancode, pressed bool) bool {
	btn, ok := km[sc]
	if !ok {
		return false
	}
	in.Pads[0].Buttons = in.Pads[0].Buttons.Set(btn, pressed)
	return true
}
