// Package bits provides the fixed-width ID set used to fold controller state into one word.
package bits

import (
	"fmt"
	mathbits "math/bits"
	"strings"
)

// Set32 holds up to 32 small-integer IDs, bit i standing for ID i.
type Set32 uint32

func FromIDs(ids ...uint8) Set32 {
	var s Set32
	for _, id := range ids {
		s = s.Set(id)
	}
	return s
}

func (s Set32) Set(id uint8) Set32 {
	if id >= 32 {
		return s
	}
	return s | 1<<id
}

// Contains reports whether every ID of mask is also in s.
func (s Set32) Contains(mask Set32) bool {
	return s&mask == mask
}

func (s Set32) IsEmpty() bool {
	return s == 0
}

func (s Set32) Len() int {
	return mathbits.OnesCount32(uint32(s))
}

// Each calls f for every set ID in ascending order until f returns false.
func (s Set32) Each(f func(id uint8) bool) {
	for v := uint32(s); v != 0; v &= v - 1 {
		if !f(uint8(mathbits.TrailingZeros32(v))) {
			return
		}
	}
}

func (s Set32) IDs() []uint8 {
	ids := make([]uint8, 0, s.Len())
	s.Each(func(id uint8) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// String prints the set as four bytes, lowest byte first, bit 0 leftmost.
func (s Set32) String() string {
	parts := make([]string, 4)
	for i := range parts {
		b := uint8(s >> (8 * i))
		parts[i] = fmt.Sprintf("%08b", mathbits.Reverse8(b))
	}
	return strings.Join(parts, " ")
}
