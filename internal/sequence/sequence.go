// Package sequence recognizes ordered, time-windowed input sequences such as "A,B,C".
package sequence

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/keys"
)

// Sequence is an ordered list of inputs that must all occur within Window.
type Sequence struct {
	Steps  []device.InputDevice
	Window time.Duration
}

func (s Sequence) Terminal() device.InputDevice {
	if len(s.Steps) == 0 {
		return device.InputDevice{}
	}
	return s.Steps[len(s.Steps)-1]
}

func (s Sequence) String() string {
	names := make([]string, len(s.Steps))
	for i, step := range s.Steps {
		names[i] = keys.FormatDevice(step)
	}
	return strings.Join(names, ",")
}

// ParseSequenceString parses comma separated device names.
func ParseSequenceString(text string, window time.Duration) (Sequence, error) {
	parts := strings.Split(text, ",")
	steps := make([]device.InputDevice, 0, len(parts))
	for i, part := range parts {
		dev, err := keys.ParseInputDevice(part)
		if err != nil {
			return Sequence{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, dev)
	}
	return Sequence{Steps: steps, Window: window}, nil
}

type Match struct {
	Terminal device.InputDevice
	Steps    []device.InputDevice
}

type entry struct {
	dev device.InputDevice
	at  time.Time
}

// Matcher keeps a short input history and reports when its tail completes a registered
// sequence. When several sequences match, the longest wins. A match consumes the history.
type Matcher struct {
	mu        sync.Mutex
	sequences []Sequence
	history   []entry
	maxSteps  int
	maxWindow time.Duration
}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (m *Matcher) RegisterSequence(s Sequence) {
	if len(s.Steps) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences = append(m.sequences, s)
	m.maxSteps = max(m.maxSteps, len(s.Steps))
	m.maxWindow = max(m.maxWindow, s.Window)
}

func (m *Matcher) RecordInput(dev device.InputDevice, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxSteps == 0 {
		return
	}
	m.history = append(m.history, entry{dev: dev, at: at})
	drop := 0
	for drop < len(m.history) && at.Sub(m.history[drop].at) > m.maxWindow {
		drop++
	}
	if extra := len(m.history) - drop - m.maxSteps; extra > 0 {
		drop += extra
	}
	if drop > 0 {
		m.history = append(m.history[:0], m.history[drop:]...)
	}
}

func (m *Matcher) TryMatchWithSequence() (Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := -1
	for i, s := range m.sequences {
		if !m.tailMatches(s) {
			continue
		}
		if best < 0 || len(s.Steps) > len(m.sequences[best].Steps) {
			best = i
		}
	}
	if best < 0 {
		return Match{}, false
	}
	s := m.sequences[best]
	m.history = m.history[:0]
	return Match{Terminal: s.Terminal(), Steps: s.Steps}, true
}

func (m *Matcher) tailMatches(s Sequence) bool {
	n := len(s.Steps)
	if n > len(m.history) {
		return false
	}
	tail := m.history[len(m.history)-n:]
	for i, step := range s.Steps {
		if !tail[i].dev.Equal(step) {
			return false
		}
	}
	return tail[n-1].at.Sub(tail[0].at) <= s.Window
}

func (m *Matcher) ClearSequences() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences = nil
	m.maxSteps = 0
	m.maxWindow = 0
}

func (m *Matcher) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = m.history[:0]
}
