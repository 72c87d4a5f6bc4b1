package mapping

import (
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/pkg/bits"
)

// SwitchKey is the pause hotkey encoded once per backend. Only the branch matching Device.Kind()
// holds a meaningful value; the zero SwitchKey matches nothing.
type SwitchKey struct {
	Device device.InputDevice

	VK         uint16
	XInputMask bits.Set32
	TypeHash   uint64
	ButtonID   uint16
}

func NewSwitchKey(dev device.InputDevice) SwitchKey {
	sk := SwitchKey{Device: dev}
	switch dev.Kind() {
	case device.KindKeyboard:
		sk.VK = dev.VK()
	case device.KindXInputCombo:
		sk.XInputMask = bits.FromIDs(dev.ButtonIDs()...)
		sk.TypeHash = dev.Type().Hash()
	case device.KindGeneric:
		sk.ButtonID = dev.ButtonID()
		sk.TypeHash = dev.Type().Hash()
	}
	return sk
}

func (s SwitchKey) IsZero() bool {
	return s.Device.IsZero()
}

// MatchKeyboard checks a plain key, or a chord against the currently pressed keys.
func (s SwitchKey) MatchKeyboard(vk uint16, isPressed func(vk uint16) bool) bool {
	switch s.Device.Kind() {
	case device.KindKeyboard:
		return vk == s.VK
	case device.KindKeyCombo:
		if vk != s.Device.LastKey() {
			return false
		}
		for _, k := range s.Device.Keys() {
			if k != vk && !isPressed(k) {
				return false
			}
		}
		return true
	}
	return false
}

func (s SwitchKey) MatchXInput(set bits.Set32, typeHash uint64) bool {
	return s.Device.Kind() == device.KindXInputCombo &&
		typeHash == s.TypeHash &&
		set.Contains(s.XInputMask)
}

func (s SwitchKey) MatchGeneric(typeHash uint64, buttonID uint16) bool {
	return s.Device.Kind() == device.KindGeneric &&
		typeHash == s.TypeHash &&
		buttonID == s.ButtonID
}

// MatchDevice is the fallback for mouse inputs.
func (s SwitchKey) MatchDevice(dev device.InputDevice) bool {
	return !s.IsZero() && s.Device.Equal(dev)
}
