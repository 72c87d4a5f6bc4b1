package state

import (
	"github.com/neuroplastio/neio-turbo/internal/device"
)

// ActiveCombo is a chord that matched and has not been released yet. Modifiers holds the keys
// that were down when it matched.
type ActiveCombo struct {
	Device    device.InputDevice
	Modifiers []uint16
}

func (s *State) SetKeyPressed(vk uint16, pressed bool) {
	if pressed {
		s.pressedKeys.Store(vk, struct{}{})
		return
	}
	s.pressedKeys.Delete(vk)
}

func (s *State) IsKeyPressed(vk uint16) bool {
	_, ok := s.pressedKeys.Load(vk)
	return ok
}

func (s *State) PressedKeys() []uint16 {
	keys := make([]uint16, 0, s.pressedKeys.Size())
	s.pressedKeys.Range(func(vk uint16, _ struct{}) bool {
		keys = append(keys, vk)
		return true
	})
	return keys
}

// AddActiveCombo records combo as active. It returns false when it already was, so a chord
// fires once per hold.
func (s *State) AddActiveCombo(combo device.InputDevice) bool {
	_, loaded := s.combos.LoadOrStore(combo.Key(), ActiveCombo{
		Device:    combo,
		Modifiers: s.PressedKeys(),
	})
	return !loaded
}

func (s *State) IsComboActive(combo device.InputDevice) bool {
	_, ok := s.combos.Load(combo.Key())
	return ok
}

func (s *State) ActiveCombos() []ActiveCombo {
	var combos []ActiveCombo
	s.combos.Range(func(_ device.Key, c ActiveCombo) bool {
		combos = append(combos, c)
		return true
	})
	return combos
}

// CleanupReleasedCombos removes every active combo with at least one key no longer pressed
// and returns the removed combos.
func (s *State) CleanupReleasedCombos() []device.InputDevice {
	var released []device.InputDevice
	s.combos.Range(func(key device.Key, c ActiveCombo) bool {
		for _, vk := range c.Device.Keys() {
			if !s.IsKeyPressed(vk) {
				if _, ok := s.combos.LoadAndDelete(key); ok {
					released = append(released, c.Device)
				}
				break
			}
		}
		return true
	})
	return released
}

func (s *State) clearActiveCombos() {
	s.combos.Clear()
}
