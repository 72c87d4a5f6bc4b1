package hidsvc

type bitChange struct {
	bit uint16
	on  bool
}

// changedBits lists every bit that differs between two reports, lowest first.
// A report shorter than the other reads as zero past its end.
func changedBits(prev, next []byte) []bitChange {
	var changes []bitChange
	n := max(len(prev), len(next))
	for i := 0; i < n && i < 1<<13; i++ {
		p, q := byteAt(prev, i), byteAt(next, i)
		diff := p ^ q
		for j := 0; diff != 0; j++ {
			if diff&1 != 0 {
				changes = append(changes, bitChange{bit: uint16(i*8 + j), on: q&(1<<j) != 0})
			}
			diff >>= 1
		}
	}
	return changes
}

func byteAt(b []byte, i int) byte {
	if i < len(b) {
		return b[i]
	}
	return 0
}

// FirstChangedBit returns the lowest bit that is set in next but not in baseline.
func FirstChangedBit(baseline, next []byte) (uint16, bool) {
	for _, c := range changedBits(baseline, next) {
		if c.on {
			return c.bit, true
		}
	}
	return 0, false
}
