package xinput

import (
	"math/rand"
	"testing"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/pkg/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPad = device.Gamepad(0x045e)

func randomCombos(r *rand.Rand, n int) []device.InputDevice {
	seen := make(map[device.Key]struct{})
	var combos []device.InputDevice
	for len(combos) < n {
		size := 1 + r.Intn(4)
		ids := make([]uint8, size)
		for i := range ids {
			ids[i] = uint8(r.Intn(int(device.PadIDCount)))
		}
		combo := device.XInputCombo(testPad, ids...)
		if _, ok := seen[combo.Key()]; ok {
			continue
		}
		seen[combo.Key()] = struct{}{}
		combos = append(combos, combo)
	}
	return combos
}

func TestSelectStrategy(t *testing.T) {
	assert.Equal(t, StrategyDirect, SelectStrategy(0))
	assert.Equal(t, StrategyDirect, SelectStrategy(8))
	assert.Equal(t, StrategyLayered, SelectStrategy(9))
	assert.Equal(t, StrategyLayered, SelectStrategy(16))
	assert.Equal(t, StrategyBatch, SelectStrategy(17))
}

func TestStrategiesAgree(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, n := range []int{1, 5, 8, 9, 12, 16, 17, 23, 40, 64} {
		m := NewMatcher(randomCombos(r, n))
		for i := 0; i < 500; i++ {
			set := bits.Set32(r.Uint32()) & (1<<device.PadIDCount - 1)
			direct := m.matchIndices(StrategyDirect, set)
			assert.Equal(t, direct, m.matchIndices(StrategyLayered, set), "layered n=%d set=%s", n, set)
			assert.Equal(t, direct, m.matchIndices(StrategyBatch, set), "batch n=%d set=%s", n, set)
		}
	}
}

func TestMatchOrderIndependent(t *testing.T) {
	combos := []device.InputDevice{
		device.XInputCombo(testPad, device.PadA, device.PadB),
		device.XInputCombo(testPad, device.PadB),
	}
	m := NewMatcher(combos)
	_, ab := Extract(Gamepad{Buttons: ButtonA | ButtonB})
	setAB := bits.FromIDs(ab...)
	setBA := bits.FromIDs(device.PadB, device.PadA)
	assert.Equal(t, m.Match(setAB), m.Match(setBA))
	require.Len(t, m.Match(setAB), 2)
}

func TestMatchLayeredArity(t *testing.T) {
	var combos []device.InputDevice
	for id := uint8(0); id < 10; id++ {
		combos = append(combos, device.XInputCombo(testPad, id))
	}
	combos = append(combos,
		device.XInputCombo(testPad, device.PadLT, device.PadRT),
		device.XInputCombo(testPad, device.PadA, device.PadB, device.PadX),
	)
	m := NewMatcher(combos)
	require.Equal(t, StrategyLayered, m.Strategy())

	matched := m.Match(bits.FromIDs(device.PadDPadUp, device.PadLT, device.PadRT, device.PadA, device.PadB, device.PadX))
	expected := []device.InputDevice{combos[0], combos[10], combos[11]}
	assert.Equal(t, expected, matched)
	assert.Nil(t, m.Match(0))
}

func TestDiffCombos(t *testing.T) {
	a := device.XInputCombo(testPad, device.PadA)
	b := device.XInputCombo(testPad, device.PadB)
	c := device.XInputCombo(testPad, device.PadA, device.PadB)

	pressed, released := diffCombos([]device.InputDevice{a, b}, []device.InputDevice{b, a})
	assert.Empty(t, pressed)
	assert.Empty(t, released)

	pressed, released = diffCombos([]device.InputDevice{a}, []device.InputDevice{a, b, c})
	assert.Equal(t, []device.InputDevice{b, c}, pressed)
	assert.Empty(t, released)

	pressed, released = diffCombos([]device.InputDevice{a, b, c}, nil)
	assert.Empty(t, pressed)
	assert.Equal(t, []device.InputDevice{a, b, c}, released)
}

func TestSameCombosLarge(t *testing.T) {
	combos := randomCombos(rand.New(rand.NewSource(3)), 6)
	reversed := make([]device.InputDevice, len(combos))
	for i, c := range combos {
		reversed[len(combos)-1-i] = c
	}
	assert.True(t, sameCombos(combos, reversed))
	assert.False(t, sameCombos(combos, append(reversed[:5:5], device.XInputCombo(testPad, 23, 22, 21, 20, 19))))
}
