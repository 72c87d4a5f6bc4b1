package xinput

import (
	mathbits "math/bits"

	"github.com/neuroplastio/neio-turbo/pkg/bits"
)

const laneWidth = 8

// Padding lanes hold a mask no extracted set can contain; matches past the combo count are dropped anyway.
const paddingLane = ^uint32(0)

func packLanes(masks []bits.Set32) []uint32 {
	n := (len(masks) + laneWidth - 1) / laneWidth * laneWidth
	lanes := make([]uint32, n)
	for i := range lanes {
		if i < len(masks) {
			lanes[i] = uint32(masks[i])
		} else {
			lanes[i] = paddingLane
		}
	}
	return lanes
}

// matchBatch compares set against eight masks per step. It is a portable unrolled scalar
// compare, not vector code: the loop body has no data dependent branches between lanes.
func matchBatch(lanes []uint32, count int, set uint32, out []int) []int {
	for base := 0; base+laneWidth <= len(lanes); base += laneWidth {
		l := lanes[base : base+laneWidth : base+laneWidth]
		hits := b2u(set&l[0] == l[0]) |
			b2u(set&l[1] == l[1])<<1 |
			b2u(set&l[2] == l[2])<<2 |
			b2u(set&l[3] == l[3])<<3 |
			b2u(set&l[4] == l[4])<<4 |
			b2u(set&l[5] == l[5])<<5 |
			b2u(set&l[6] == l[6])<<6 |
			b2u(set&l[7] == l[7])<<7
		for hits != 0 {
			lane := mathbits.TrailingZeros8(hits)
			if idx := base + lane; idx < count {
				out = append(out, idx)
			}
			hits &= hits - 1
		}
	}
	return out
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
