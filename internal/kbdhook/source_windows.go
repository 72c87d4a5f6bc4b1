//go:build windows

package kbdhook

import (
	"context"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/keys"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

const pollInterval = time.Millisecond

// asyncKeySource samples GetAsyncKeyState for every virtual key and reports edges.
type asyncKeySource struct {
	log *zap.Logger
}

// NewSystemSource returns the keyboard and mouse source of the running platform.
func NewSystemSource(log *zap.Logger) Source {
	return &asyncKeySource{log: log}
}

func (s *asyncKeySource) Run(ctx context.Context, events chan<- Event) error {
	if err := procGetAsyncKeyState.Find(); err != nil {
		return err
	}
	var down [256]bool
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for vk := uint16(1); vk < 0xFF; vk++ {
			// side-specific modifiers are reported through the generic ones
			if vk >= 0xA0 && vk <= 0xA5 {
				continue
			}
			r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
			pressed := int16(r) < 0
			if pressed == down[vk] {
				continue
			}
			down[vk] = pressed
			ev := Event{VK: vk, Down: pressed}
			if b, ok := keys.MouseButtonOf(vk); ok {
				ev = Event{Mouse: b, Down: pressed}
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
