package xinput

import (
	"slices"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/pkg/bits"
)

type Strategy uint8

const (
	StrategyDirect Strategy = iota + 1
	StrategyLayered
	StrategyBatch
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyLayered:
		return "layered"
	case StrategyBatch:
		return "batch"
	}
	return "unknown"
}

const (
	directMaxCombos  = 8
	layeredMaxCombos = 16
)

// SelectStrategy picks the matching strategy from the number of registered combos.
func SelectStrategy(combos int) Strategy {
	switch {
	case combos <= directMaxCombos:
		return StrategyDirect
	case combos <= layeredMaxCombos:
		return StrategyLayered
	}
	return StrategyBatch
}

type pairKey struct {
	lo, hi uint8
}

// Matcher finds the registered combos whose IDs are all set. It is immutable once built.
type Matcher struct {
	combos   []device.InputDevice
	masks    []bits.Set32
	strategy Strategy

	singles map[uint8][]int
	pairs   map[pairKey][]int
	multi   []int

	lanes []uint32
}

func NewMatcher(combos []device.InputDevice) *Matcher {
	m := &Matcher{
		combos:   combos,
		masks:    make([]bits.Set32, len(combos)),
		strategy: SelectStrategy(len(combos)),
	}
	for i, combo := range combos {
		m.masks[i] = bits.FromIDs(combo.ButtonIDs()...)
	}
	m.buildLayers()
	m.lanes = packLanes(m.masks)
	return m
}

func (m *Matcher) buildLayers() {
	m.singles = make(map[uint8][]int)
	m.pairs = make(map[pairKey][]int)
	for i, mask := range m.masks {
		ids := mask.IDs()
		switch len(ids) {
		case 1:
			m.singles[ids[0]] = append(m.singles[ids[0]], i)
		case 2:
			key := pairKey{lo: ids[0], hi: ids[1]}
			m.pairs[key] = append(m.pairs[key], i)
		default:
			m.multi = append(m.multi, i)
		}
	}
}

func (m *Matcher) Strategy() Strategy {
	return m.strategy
}

func (m *Matcher) Len() int {
	return len(m.combos)
}

// Match returns the combos satisfied by set, in registration order.
func (m *Matcher) Match(set bits.Set32) []device.InputDevice {
	return m.devices(m.matchIndices(m.strategy, set))
}

func (m *Matcher) devices(indices []int) []device.InputDevice {
	if len(indices) == 0 {
		return nil
	}
	out := make([]device.InputDevice, len(indices))
	for i, idx := range indices {
		out[i] = m.combos[idx]
	}
	return out
}

func (m *Matcher) matchIndices(strategy Strategy, set bits.Set32) []int {
	switch strategy {
	case StrategyLayered:
		return m.matchLayered(set)
	case StrategyBatch:
		return matchBatch(m.lanes, len(m.masks), uint32(set), nil)
	}
	return m.matchDirect(set)
}

func (m *Matcher) matchDirect(set bits.Set32) []int {
	var out []int
	for i, mask := range m.masks {
		if set.Contains(mask) {
			out = append(out, i)
		}
	}
	return out
}

func (m *Matcher) matchLayered(set bits.Set32) []int {
	var out []int
	ids := set.IDs()
	for i, id := range ids {
		out = append(out, m.singles[id]...)
		for _, other := range ids[i+1:] {
			out = append(out, m.pairs[pairKey{lo: id, hi: other}]...)
		}
	}
	for _, idx := range m.multi {
		if set.Contains(m.masks[idx]) {
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out
}
