// Package xinput polls Xbox-style controllers, folds each snapshot into logical IDs and matches
// them against the configured controller combos.
package xinput

import (
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/pkg/bits"
)

// wButtons flags.
const (
	ButtonDPadUp        uint16 = 0x0001
	ButtonDPadDown      uint16 = 0x0002
	ButtonDPadLeft      uint16 = 0x0004
	ButtonDPadRight     uint16 = 0x0008
	ButtonStart         uint16 = 0x0010
	ButtonBack          uint16 = 0x0020
	ButtonLeftThumb     uint16 = 0x0040
	ButtonRightThumb    uint16 = 0x0080
	ButtonLeftShoulder  uint16 = 0x0100
	ButtonRightShoulder uint16 = 0x0200
	ButtonA             uint16 = 0x1000
	ButtonB             uint16 = 0x2000
	ButtonX             uint16 = 0x4000
	ButtonY             uint16 = 0x8000
)

const (
	LeftThumbDeadzone  = 7849
	RightThumbDeadzone = 8689
	TriggerThreshold   = 30
)

const MaxControllers = 4

// Gamepad mirrors XINPUT_GAMEPAD.
type Gamepad struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// Snapshot mirrors XINPUT_STATE.
type Snapshot struct {
	PacketNumber uint32
	Gamepad      Gamepad
}

var buttonIDs = [...]struct {
	flag uint16
	id   uint8
}{
	{ButtonDPadUp, device.PadDPadUp},
	{ButtonDPadDown, device.PadDPadDown},
	{ButtonDPadLeft, device.PadDPadLeft},
	{ButtonDPadRight, device.PadDPadRight},
	{ButtonStart, device.PadStart},
	{ButtonBack, device.PadBack},
	{ButtonLeftThumb, device.PadLeftThumb},
	{ButtonRightThumb, device.PadRightThumb},
	{ButtonLeftShoulder, device.PadLeftShoulder},
	{ButtonRightShoulder, device.PadRightShoulder},
	{ButtonA, device.PadA},
	{ButtonB, device.PadB},
	{ButtonX, device.PadX},
	{ButtonY, device.PadY},
}

// Extract folds a snapshot into logical IDs. Stick axes are evaluated independently so a
// diagonal sets both half-axes.
func Extract(g Gamepad) (bits.Set32, []uint8) {
	var set bits.Set32
	for _, b := range buttonIDs {
		if g.Buttons&b.flag != 0 {
			set = set.Set(b.id)
		}
	}
	set = stick(set, g.ThumbLX, g.ThumbLY, LeftThumbDeadzone, device.PadLSUp)
	set = stick(set, g.ThumbRX, g.ThumbRY, RightThumbDeadzone, device.PadRSUp)
	if g.LeftTrigger > TriggerThreshold {
		set = set.Set(device.PadLT)
	}
	if g.RightTrigger > TriggerThreshold {
		set = set.Set(device.PadRT)
	}
	return set, set.IDs()
}

// stick sets up, down, left, right starting at base.
func stick(set bits.Set32, x, y int16, deadzone int16, base uint8) bits.Set32 {
	switch {
	case y > deadzone:
		set = set.Set(base)
	case y < -deadzone:
		set = set.Set(base + 1)
	}
	switch {
	case x < -deadzone:
		set = set.Set(base + 2)
	case x > deadzone:
		set = set.Set(base + 3)
	}
	return set
}

func isDirection(id uint8) bool {
	return id <= device.PadDPadRight || (id >= device.PadLSUp && id <= device.PadRSRight)
}

func directionGroup(id uint8) (group int, offset uint8) {
	switch {
	case id <= device.PadDPadRight:
		return 0, id
	case id <= device.PadLSRight:
		return 1, id - device.PadLSUp
	}
	return 2, id - device.PadRSUp
}
