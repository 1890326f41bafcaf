package core

// MaxPads is the number of controller ports the host exposes. Cores with
// fewer ports ignore the extras.
const MaxPads = 2

// Buttons is a bitmask of logical, console-agnostic buttons. The input
// mapper fills it from host devices; each core maps the bits it knows about
// onto its own controller lines.
type Buttons uint32

const (
	BtnUp Buttons = 1 << iota
	BtnDown
	BtnLeft
	BtnRight
	BtnA
	BtnB
	BtnX
	BtnY
	BtnL
	BtnR
	BtnSelect
	BtnStart
)

// Set returns b with the given buttons pressed or released.
func (b Buttons) Set(mask Buttons, pressed bool) Buttons {
	if pressed {
		return b | mask
	}
	return b &^ mask
}

// Pressed reports whether all buttons in mask are down.
func (b Buttons) Pressed(mask Buttons) bool {
	return b&mask == mask
}

// Pad is the state of one controller port. Axes are signed 16-bit, centered
// on zero, for cores with analog input.
type Pad struct {
	Buttons Buttons
	AxisX   int16
	AxisY   int16
}

// InputState is the full input snapshot a core observes for one Step call.
// It is a value type on purpose: handing it to a core hands over a copy, so
// mid-step mutation by the host is impossible.
type InputState struct {
	Pads [MaxPads]Pad
}
