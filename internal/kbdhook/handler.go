// Package kbdhook tracks keyboard and mouse buttons, detects configured chords and feeds
// press and release transitions to the dispatcher.
package kbdhook

import (
	"slices"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/keys"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"go.uber.org/zap"
)

type Sink interface {
	Dispatch(ev device.InputEvent)
}

// Handler is not safe for concurrent use; Hook calls it from a single goroutine.
type Handler struct {
	log   *zap.Logger
	state *state.State
	sink  Sink
}

func NewHandler(log *zap.Logger, st *state.State, sink Sink) *Handler {
	return &Handler{log: log, state: st, sink: sink}
}

func (h *Handler) KeyDown(vk uint16) {
	h.press(vk, device.Keyboard(vk))
}

func (h *Handler) KeyUp(vk uint16) {
	h.release(vk, device.Keyboard(vk))
}

func (h *Handler) MouseDown(b device.MouseButton) {
	vk, _ := keys.MouseVK(b)
	h.press(vk, device.Mouse(b))
}

func (h *Handler) MouseUp(b device.MouseButton) {
	vk, _ := keys.MouseVK(b)
	h.release(vk, device.Mouse(b))
}

func (h *Handler) press(vk uint16, dev device.InputDevice) {
	if h.state.IsKeyPressed(vk) {
		// auto-repeat
		return
	}
	h.state.SetKeyPressed(vk, true)

	if h.state.IsCaptureMode() {
		h.state.SendCapture(h.captured(vk, dev))
		return
	}

	sk := h.state.SwitchKey()
	hit := sk.MatchKeyboard(vk, h.state.IsKeyPressed) || sk.MatchDevice(dev)
	if h.state.KeyboardLatch().Update(hit) {
		h.state.TogglePause()
	}
	if hit || h.state.IsPaused() {
		return
	}

	chord := false
	for _, combo := range h.state.KeyCombosEndingWith(vk) {
		if !h.allPressed(combo) {
			continue
		}
		chord = true
		if h.state.AddActiveCombo(combo) {
			h.sink.Dispatch(device.PressedEvent(combo))
		}
	}
	if !chord {
		h.sink.Dispatch(device.PressedEvent(dev))
	}
}

func (h *Handler) release(vk uint16, dev device.InputDevice) {
	if !h.state.IsKeyPressed(vk) {
		return
	}
	h.state.SetKeyPressed(vk, false)
	h.state.KeyboardLatch().Update(false)
	h.sink.Dispatch(device.ReleasedEvent(dev))
	h.Tick()
}

// Tick releases chords that lost one of their keys.
func (h *Handler) Tick() {
	for _, combo := range h.state.CleanupReleasedCombos() {
		h.sink.Dispatch(device.ReleasedEvent(combo))
	}
}

func (h *Handler) allPressed(combo device.InputDevice) bool {
	for _, k := range combo.Keys() {
		if !h.state.IsKeyPressed(k) {
			return false
		}
	}
	return true
}

// captured is the chord of every held key ending with vk, or the plain input when nothing else is held.
func (h *Handler) captured(vk uint16, dev device.InputDevice) device.InputDevice {
	held := h.state.PressedKeys()
	if len(held) <= 1 {
		return dev
	}
	chord := make([]uint16, 0, len(held))
	for _, k := range held {
		if k != vk {
			chord = append(chord, k)
		}
	}
	slices.Sort(chord)
	return device.KeyCombo(append(chord, vk)...)
}
