package xinput

import (
	"slices"
	"strings"

	"github.com/neuroplastio/neio-turbo/internal/device"
)

// sameCombos compares two combo lists as sets.
func sameCombos(a, b []device.InputDevice) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) <= 4 {
		for _, x := range a {
			if !containsCombo(b, x) {
				return false
			}
		}
		return true
	}
	ka, kb := sortedKeys(a), sortedKeys(b)
	return slices.Equal(ka, kb)
}

func sortedKeys(combos []device.InputDevice) []device.Key {
	keys := make([]device.Key, len(combos))
	for i, c := range combos {
		keys[i] = c.Key()
	}
	slices.SortFunc(keys, func(x, y device.Key) int {
		return strings.Compare(x.Set, y.Set)
	})
	return keys
}

func containsCombo(list []device.InputDevice, combo device.InputDevice) bool {
	for _, c := range list {
		if c.Equal(combo) {
			return true
		}
	}
	return false
}

// diffCombos returns the combos only in next (pressed) and only in prev (released).
func diffCombos(prev, next []device.InputDevice) (pressed, released []device.InputDevice) {
	if sameCombos(prev, next) {
		return nil, nil
	}
	for _, c := range next {
		if !containsCombo(prev, c) {
			pressed = append(pressed, c)
		}
	}
	for _, c := range prev {
		if !containsCombo(next, c) {
			released = append(released, c)
		}
	}
	return pressed, released
}
