// Package device holds the vocabulary shared by every input backend: what triggered (InputDevice),
// what the trigger does (OutputAction) and how it does it (InputMappingInfo).
package device

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

type Kind uint8

const (
	KindKeyboard Kind = iota + 1
	KindMouse
	KindMouseMove
	KindKeyCombo
	KindXInputCombo
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindKeyboard:
		return "Keyboard"
	case KindMouse:
		return "Mouse"
	case KindMouseMove:
		return "MouseMove"
	case KindKeyCombo:
		return "KeyCombo"
	case KindXInputCombo:
		return "XInputCombo"
	case KindGeneric:
		return "GenericDevice"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

type MouseButton uint8

const (
	MouseLeft MouseButton = iota + 1
	MouseRight
	MouseMiddle
	MouseX1
	MouseX2
)

type Direction uint8

const (
	DirectionUp Direction = iota + 1
	DirectionDown
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "Up"
	case DirectionDown:
		return "Down"
	case DirectionLeft:
		return "Left"
	case DirectionRight:
		return "Right"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

type TypeKind uint8

const (
	TypeGamepad TypeKind = iota + 1
	TypeJoystick
	TypeHID
)

// DeviceType partitions controller combos by device class.
type DeviceType struct {
	Kind      TypeKind
	VendorID  uint16
	UsagePage uint16
	Usage     uint16
}

func Gamepad(vendorID uint16) DeviceType {
	return DeviceType{Kind: TypeGamepad, VendorID: vendorID}
}

func Joystick(vendorID uint16) DeviceType {
	return DeviceType{Kind: TypeJoystick, VendorID: vendorID}
}

func HIDType(usagePage, usage uint16) DeviceType {
	return DeviceType{Kind: TypeHID, UsagePage: usagePage, Usage: usage}
}

func (t DeviceType) IsZero() bool {
	return t.Kind == 0
}

// Hash is stable across runs; the switch-key cache stores it instead of the full type.
func (t DeviceType) Hash() uint64 {
	var buf [7]byte
	buf[0] = byte(t.Kind)
	binary.LittleEndian.PutUint16(buf[1:], t.VendorID)
	binary.LittleEndian.PutUint16(buf[3:], t.UsagePage)
	binary.LittleEndian.PutUint16(buf[5:], t.Usage)
	return xxhash.Sum64(buf[:])
}

func (t DeviceType) String() string {
	switch t.Kind {
	case TypeGamepad:
		return fmt.Sprintf("Gamepad(%04x)", t.VendorID)
	case TypeJoystick:
		return fmt.Sprintf("Joystick(%04x)", t.VendorID)
	case TypeHID:
		return fmt.Sprintf("HID(%02x,%02x)", t.UsagePage, t.Usage)
	}
	return "Unknown"
}

// Key is the comparable identity of an InputDevice. Combo IDs are stored sorted and
// deduplicated so that {A,B} and {B,A} produce the same key.
type Key struct {
	Kind Kind
	Code uint16
	Type DeviceType
	Set  string
}

// InputDevice identifies an input source. Values are immutable; the ID slices returned by
// accessors are shared and must not be modified.
type InputDevice struct {
	key Key
	ids []uint16
}

func Keyboard(vk uint16) InputDevice {
	return InputDevice{key: Key{Kind: KindKeyboard, Code: vk}}
}

func Mouse(button MouseButton) InputDevice {
	return InputDevice{key: Key{Kind: KindMouse, Code: uint16(button)}}
}

func MouseMove(direction Direction) InputDevice {
	return InputDevice{key: Key{Kind: KindMouseMove, Code: uint16(direction)}}
}

// KeyCombo keeps the configured order of vks; the last one is the key whose press completes the chord.
func KeyCombo(vks ...uint16) InputDevice {
	ids := slices.Clone(vks)
	return InputDevice{
		key: Key{Kind: KindKeyCombo, Set: canonicalSet(ids)},
		ids: ids,
	}
}

func XInputCombo(t DeviceType, buttonIDs ...uint8) InputDevice {
	ids := make([]uint16, len(buttonIDs))
	for i, id := range buttonIDs {
		ids[i] = uint16(id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return InputDevice{
		key: Key{Kind: KindXInputCombo, Type: t, Set: canonicalSet(ids)},
		ids: ids,
	}
}

func GenericDevice(t DeviceType, buttonID uint16) InputDevice {
	return InputDevice{key: Key{Kind: KindGeneric, Type: t, Code: buttonID}}
}

func canonicalSet(ids []uint16) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	buf := make([]byte, 2*len(sorted))
	for i, id := range sorted {
		binary.BigEndian.PutUint16(buf[2*i:], id)
	}
	return string(buf)
}

func (d InputDevice) Kind() Kind {
	return d.key.Kind
}

func (d InputDevice) Key() Key {
	return d.key
}

func (d InputDevice) IsZero() bool {
	return d.key.Kind == 0
}

func (d InputDevice) Equal(other InputDevice) bool {
	return d.key == other.key
}

// VK is the virtual-key code of a Keyboard device.
func (d InputDevice) VK() uint16 {
	return d.key.Code
}

func (d InputDevice) Button() MouseButton {
	return MouseButton(d.key.Code)
}

func (d InputDevice) Direction() Direction {
	return Direction(d.key.Code)
}

// ButtonID is the button of a GenericDevice.
func (d InputDevice) ButtonID() uint16 {
	return d.key.Code
}

func (d InputDevice) Type() DeviceType {
	return d.key.Type
}

// Keys returns the vk codes of a KeyCombo in configured order.
func (d InputDevice) Keys() []uint16 {
	return d.ids
}

func (d InputDevice) LastKey() uint16 {
	if len(d.ids) == 0 {
		return 0
	}
	return d.ids[len(d.ids)-1]
}

// ButtonIDs returns the logical IDs of an XInputCombo in ascending order.
func (d InputDevice) ButtonIDs() []uint8 {
	ids := make([]uint8, len(d.ids))
	for i, id := range d.ids {
		ids[i] = uint8(id)
	}
	return ids
}

func (d InputDevice) String() string {
	switch d.key.Kind {
	case KindKeyboard:
		return fmt.Sprintf("Keyboard(0x%02x)", d.key.Code)
	case KindMouse:
		return fmt.Sprintf("Mouse(%d)", d.key.Code)
	case KindMouseMove:
		return fmt.Sprintf("MouseMove(%s)", Direction(d.key.Code))
	case KindKeyCombo, KindXInputCombo:
		parts := make([]string, len(d.ids))
		for i, id := range d.ids {
			parts[i] = fmt.Sprintf("0x%02x", id)
		}
		if d.key.Kind == KindKeyCombo {
			return "KeyCombo(" + strings.Join(parts, "+") + ")"
		}
		return d.key.Type.String() + ":" + strings.Join(parts, "+")
	case KindGeneric:
		return fmt.Sprintf("%s#%d", d.key.Type, d.key.Code)
	}
	return "None"
}
