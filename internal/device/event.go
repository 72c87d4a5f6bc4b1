package device

type EventKind uint8

const (
	Pressed EventKind = iota + 1
	Released
)

func (k EventKind) String() string {
	switch k {
	case Pressed:
		return "Pressed"
	case Released:
		return "Released"
	}
	return "Unknown"
}

type InputEvent struct {
	Kind   EventKind
	Device InputDevice
}

func PressedEvent(d InputDevice) InputEvent {
	return InputEvent{Kind: Pressed, Device: d}
}

func ReleasedEvent(d InputDevice) InputEvent {
	return InputEvent{Kind: Released, Device: d}
}
