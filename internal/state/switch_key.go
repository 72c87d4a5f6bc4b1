package state

import (
	"github.com/neuroplastio/neio-turbo/internal/mapping"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// SwitchKey returns the published pause hotkey.
func (s *State) SwitchKey() mapping.SwitchKey {
	return *s.switchKey.Load()
}

// SwitchLatch turns the level "hotkey is held" into a single toggle per hold.
type SwitchLatch struct {
	held *atomic.Bool
}

func NewSwitchLatch() *SwitchLatch {
	return &SwitchLatch{held: atomic.NewBool(false)}
}

// Update returns true only on the transition from released to held.
func (l *SwitchLatch) Update(held bool) bool {
	return !l.held.Swap(held) && held
}

// KeyboardLatch is shared by the keyboard and mouse paths.
func (s *State) KeyboardLatch() *SwitchLatch {
	return s.keyboardSw
}

func (s *State) IsPaused() bool {
	return s.paused.Load()
}

// TogglePause flips the pause flag and resets active combos so resuming does not replay a chord.
func (s *State) TogglePause() bool {
	paused := !s.paused.Toggle()
	s.reset()
	s.log.Info("Dispatch toggled", zap.Bool("paused", paused))
	return paused
}
