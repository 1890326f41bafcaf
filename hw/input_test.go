package hw

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"

	"meru/core"
)

func TestKeymapDefaults(t *testing.T) {
	km := NewKeymap(nil)

	var in core.InputState
	if !km.Apply(&in, sdl.SCANCODE_UP, true) {
		t.Fatal("Up is not mapped")
	}
	if !in.Pads[0].Buttons.Pressed(core.BtnUp) {
		t.Fatal("Up press did not reach the pad")
	}
	if !km.Apply(&in, sdl.SCANCODE_UP, false) {
		t.Fatal("Up release is not mapped")
	}
	if in.Pads[0].Buttons.Pressed(core.BtnUp) {
		t.Fatal("Up still pressed after release")
	}
}

func TestKeymapOverride(t *testing.T) {
	km := NewKeymap(map[string]string{"a": "Space"})

	var in core.InputState
	if !km.Apply(&in, sdl.SCANCODE_SPACE, true) {
		t.Fatal("overridden key is not mapped")
	}
	if !in.Pads[0].Buttons.Pressed(core.BtnA) {
		t.Fatal("override did not land on button a")
	}
}

func TestKeymapUnknownNames(t *testing.T) {
	// Bad names are reported and skipped, never fatal.
	km := NewKeymap(map[string]string{
		"warp":  "Space",
		"start": "NoSuchKeyName",
	})

	var in core.InputState
	if km.Apply(&in, sdl.SCANCODE_SPACE, true) {
		t.Fatal("unknown button name produced a mapping")
	}
	// An override naming an unresolvable key leaves its button unbound.
	if km.Apply(&in, sdl.SCANCODE_RETURN, true) {
		t.Fatal("start should be unbound after a bad override")
	}
}
