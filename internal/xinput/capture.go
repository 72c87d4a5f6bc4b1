package xinput

import (
	"time"

	"github.com/neuroplastio/neio-turbo/internal/config"
)

const captureFrames = 16

// Frame is one non-empty controller sample recorded in capture mode. ID is the folded bitset.
type Frame struct {
	ID  uint32
	At  time.Time
	IDs []uint8
}

// CaptureBuffer holds the first frames of one press. Frames past its capacity are ignored.
type CaptureBuffer struct {
	frames [captureFrames]Frame
	n      int
}

func (b *CaptureBuffer) Add(f Frame) bool {
	if b.n == len(b.frames) {
		return false
	}
	b.frames[b.n] = f
	b.n++
	return true
}

func (b *CaptureBuffer) Len() int {
	return b.n
}

func (b *CaptureBuffer) Frames() []Frame {
	return b.frames[:b.n]
}

func (b *CaptureBuffer) Reset() {
	b.frames = [captureFrames]Frame{}
	b.n = 0
}

type run struct {
	start, end int
}

func (r run) frames() int {
	return r.end - r.start + 1
}

func runs(frames []Frame) []run {
	var out []run
	for i, f := range frames {
		if len(out) > 0 && frames[out[len(out)-1].end].ID == f.ID {
			out[len(out)-1].end = i
			continue
		}
		out = append(out, run{start: i, end: i})
	}
	return out
}

// SelectBest picks the frame that most likely is the combo the user meant to press.
func SelectBest(h config.Heuristic, frames []Frame) (Frame, bool) {
	if len(frames) == 0 {
		return Frame{}, false
	}
	switch h {
	case config.HeuristicLastStable:
		return lastStable(frames), true
	case config.HeuristicDiagonalPriority:
		return diagonalPriority(frames), true
	}
	return mostSustained(frames), true
}

// mostSustained prefers the run with the most inputs, then the longest lasting one.
func mostSustained(frames []Frame) Frame {
	var best run
	for i, r := range runs(frames) {
		if i == 0 {
			best = r
			continue
		}
		inputs, bestInputs := len(frames[r.start].IDs), len(frames[best.start].IDs)
		switch {
		case inputs > bestInputs:
			best = r
		case inputs == bestInputs && duration(frames, r) > duration(frames, best):
			best = r
		}
	}
	return frames[best.start]
}

func duration(frames []Frame, r run) time.Duration {
	return frames[r.end].At.Sub(frames[r.start].At)
}

// lastStable prefers the latest run of at least two frames, unless an earlier stable run held
// strictly more inputs.
func lastStable(frames []Frame) Frame {
	var stable []run
	for _, r := range runs(frames) {
		if r.frames() >= 2 {
			stable = append(stable, r)
		}
	}
	if len(stable) == 0 {
		return frames[len(frames)-1]
	}
	best := stable[len(stable)-1]
	for i := len(stable) - 2; i >= 0; i-- {
		if len(frames[stable[i].start].IDs) > len(frames[best.start].IDs) {
			best = stable[i]
		}
	}
	return frames[best.start]
}

func diagonalPriority(frames []Frame) Frame {
	best, bestScore := 0, -1
	for i, f := range frames {
		score := frameScore(f.IDs)
		if score > bestScore || (score == bestScore && len(f.IDs) > len(frames[best].IDs)) {
			best, bestScore = i, score
		}
	}
	return frames[best]
}

func frameScore(ids []uint8) int {
	var directions, buttons int
	for _, id := range ids {
		if isDirection(id) {
			directions++
		} else {
			buttons++
		}
	}
	diagonal := hasDiagonal(ids)
	switch {
	case diagonal && buttons > 0:
		return 5
	case directions > 0 && buttons > 0:
		return 4
	case diagonal:
		return 3
	case directions > 0:
		return 2
	case buttons > 0:
		return 1
	}
	return 0
}

// hasDiagonal reports a vertical and a horizontal direction of the same pad or stick.
// Each group lists up, down, left, right in that order.
func hasDiagonal(ids []uint8) bool {
	var groups [3]uint8
	for _, id := range ids {
		if !isDirection(id) {
			continue
		}
		group, offset := directionGroup(id)
		groups[group] |= 1 << offset
	}
	for _, g := range groups {
		if g&0b0011 != 0 && g&0b1100 != 0 {
			return true
		}
	}
	return false
}
