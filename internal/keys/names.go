package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/neuroplastio/neio-turbo/internal/device"
)

// Windows virtual-key codes. The first name listed for a code is the one used for display.
var vkNames = []struct {
	name string
	vk   uint16
}{
	{"LButton", 0x01}, {"RButton", 0x02}, {"MButton", 0x04}, {"XButton1", 0x05}, {"XButton2", 0x06},
	{"Backspace", 0x08}, {"Tab", 0x09}, {"Clear", 0x0C}, {"Enter", 0x0D}, {"Return", 0x0D},
	{"Shift", 0x10}, {"Ctrl", 0x11}, {"Control", 0x11}, {"Alt", 0x12}, {"Menu", 0x12},
	{"Pause", 0x13}, {"CapsLock", 0x14}, {"Esc", 0x1B}, {"Escape", 0x1B}, {"Space", 0x20},
	{"PageUp", 0x21}, {"PgUp", 0x21}, {"PageDown", 0x22}, {"PgDn", 0x22}, {"End", 0x23},
	{"Home", 0x24}, {"Left", 0x25}, {"Up", 0x26}, {"Right", 0x27}, {"Down", 0x28},
	{"PrintScreen", 0x2C}, {"Insert", 0x2D}, {"Ins", 0x2D}, {"Delete", 0x2E}, {"Del", 0x2E},
	{"LWin", 0x5B}, {"Win", 0x5B}, {"RWin", 0x5C}, {"Apps", 0x5D},
	{"Multiply", 0x6A}, {"Add", 0x6B}, {"Separator", 0x6C}, {"Subtract", 0x6D},
	{"Decimal", 0x6E}, {"Divide", 0x6F}, {"NumLock", 0x90}, {"ScrollLock", 0x91},
	{"LShift", 0xA0}, {"LeftShift", 0xA0}, {"RShift", 0xA1}, {"RightShift", 0xA1},
	{"LCtrl", 0xA2}, {"LeftCtrl", 0xA2}, {"RCtrl", 0xA3}, {"RightCtrl", 0xA3},
	{"LAlt", 0xA4}, {"LeftAlt", 0xA4}, {"RAlt", 0xA5}, {"RightAlt", 0xA5},
	{"VolumeMute", 0xAD}, {"VolumeDown", 0xAE}, {"VolumeUp", 0xAF},
	{"MediaNext", 0xB0}, {"MediaPrev", 0xB1}, {"MediaStop", 0xB2}, {"MediaPlayPause", 0xB3},
	{"Semicolon", 0xBA}, {"Equals", 0xBB}, {"Comma", 0xBC}, {"Minus", 0xBD}, {"Period", 0xBE},
	{"Slash", 0xBF}, {"Backquote", 0xC0}, {"LeftBracket", 0xDB}, {"Backslash", 0xDC},
	{"RightBracket", 0xDD}, {"Quote", 0xDE},
}

var mouseNames = []struct {
	name   string
	button device.MouseButton
}{
	{"MouseLeft", device.MouseLeft}, {"MouseRight", device.MouseRight}, {"MouseMiddle", device.MouseMiddle},
	{"MouseX1", device.MouseX1}, {"MouseX2", device.MouseX2},
}

// mouseVK lets mouse buttons take part in keyboard chords.
var mouseVK = map[device.MouseButton]uint16{
	device.MouseLeft:   0x01,
	device.MouseRight:  0x02,
	device.MouseMiddle: 0x04,
	device.MouseX1:     0x05,
	device.MouseX2:     0x06,
}

var directionNames = []struct {
	name      string
	direction device.Direction
}{
	{"Up", device.DirectionUp}, {"Down", device.DirectionDown},
	{"Left", device.DirectionLeft}, {"Right", device.DirectionRight},
}

var padNames = [device.PadIDCount][]string{
	device.PadDPadUp:        {"DPadUp"},
	device.PadDPadDown:      {"DPadDown"},
	device.PadDPadLeft:      {"DPadLeft"},
	device.PadDPadRight:     {"DPadRight"},
	device.PadStart:         {"Start"},
	device.PadBack:          {"Back", "Select"},
	device.PadLeftThumb:     {"LThumb", "L3"},
	device.PadRightThumb:    {"RThumb", "R3"},
	device.PadLeftShoulder:  {"LB", "LeftShoulder"},
	device.PadRightShoulder: {"RB", "RightShoulder"},
	device.PadA:             {"A"},
	device.PadB:             {"B"},
	device.PadX:             {"X"},
	device.PadY:             {"Y"},
	device.PadLSUp:          {"LSUp"},
	device.PadLSDown:        {"LSDown"},
	device.PadLSLeft:        {"LSLeft"},
	device.PadLSRight:       {"LSRight"},
	device.PadRSUp:          {"RSUp"},
	device.PadRSDown:        {"RSDown"},
	device.PadRSLeft:        {"RSLeft"},
	device.PadRSRight:       {"RSRight"},
	device.PadLT:            {"LT", "LeftTrigger"},
	device.PadRT:            {"RT", "RightTrigger"},
}

var (
	vkByName        = make(map[string]uint16)
	vkDisplay       = make(map[uint16]string)
	mouseByName     = make(map[string]device.MouseButton)
	mouseDisplay    = make(map[device.MouseButton]string)
	padByName       = make(map[string]uint8)
	directionByName = make(map[string]device.Direction)
)

func init() {
	for _, n := range vkNames {
		vkByName[normalize(n.name)] = n.vk
		if _, ok := vkDisplay[n.vk]; !ok {
			vkDisplay[n.vk] = n.name
		}
	}
	for c := 'A'; c <= 'Z'; c++ {
		vkByName[normalize(string(c))] = uint16(c)
		vkDisplay[uint16(c)] = string(c)
	}
	for c := '0'; c <= '9'; c++ {
		vkByName[normalize(string(c))] = uint16(c)
		vkDisplay[uint16(c)] = string(c)
		name := "Numpad" + string(c)
		vkByName[normalize(name)] = 0x60 + uint16(c-'0')
		vkDisplay[0x60+uint16(c-'0')] = name
	}
	for i := 1; i <= 24; i++ {
		name := "F" + strconv.Itoa(i)
		vkByName[normalize(name)] = 0x6F + uint16(i)
		vkDisplay[0x6F+uint16(i)] = name
	}
	for _, n := range mouseNames {
		mouseByName[normalize(n.name)] = n.button
		mouseDisplay[n.button] = n.name
	}
	for id, names := range padNames {
		for _, name := range names {
			padByName[normalize(name)] = uint8(id)
		}
	}
	for _, n := range directionNames {
		directionByName[normalize(n.name)] = n.direction
	}
}

// normalize makes names case and separator insensitive: "left_shift", "Left-Shift" and
// "LeftShift" all resolve to the same entry.
func normalize(name string) string {
	return strings.ReplaceAll(strcase.ToSnake(strings.TrimSpace(name)), "_", "")
}

func LookupVK(name string) (uint16, bool) {
	vk, ok := vkByName[normalize(name)]
	return vk, ok
}

func LookupPadID(name string) (uint8, bool) {
	id, ok := padByName[normalize(name)]
	return id, ok
}

func VKName(vk uint16) string {
	if name, ok := vkDisplay[vk]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", vk)
}

func PadName(id uint8) string {
	if int(id) < len(padNames) {
		return padNames[id][0]
	}
	return strconv.Itoa(int(id))
}

// SideLessModifier maps a left or right Shift, Ctrl or Alt key to the side-less key that the
// input sources report for both sides.
func SideLessModifier(vk uint16) (uint16, bool) {
	if vk < 0xA0 || vk > 0xA5 {
		return 0, false
	}
	return 0x10 + (vk-0xA0)/2, true
}

// MouseVK is the virtual-key code of a mouse button, used when the button is part of a chord.
func MouseVK(b device.MouseButton) (uint16, bool) {
	vk, ok := mouseVK[b]
	return vk, ok
}

// MouseButtonOf is the inverse of MouseVK.
func MouseButtonOf(vk uint16) (device.MouseButton, bool) {
	for b, v := range mouseVK {
		if v == vk {
			return b, true
		}
	}
	return 0, false
}
