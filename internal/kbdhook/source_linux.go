//go:build linux

package kbdhook

import (
	"context"
	"fmt"
	"sync"

	"github.com/holoplot/go-evdev"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"go.uber.org/zap"
)

// Modifiers keep their side here. Hook folds them into Shift, Ctrl and Alt.
var evdevVK = map[evdev.EvCode]uint16{
	evdev.KEY_BACKSPACE: 0x08, evdev.KEY_TAB: 0x09, evdev.KEY_ENTER: 0x0D, evdev.KEY_KPENTER: 0x0D,
	evdev.KEY_LEFTSHIFT: 0xA0, evdev.KEY_RIGHTSHIFT: 0xA1,
	evdev.KEY_LEFTCTRL: 0xA2, evdev.KEY_RIGHTCTRL: 0xA3,
	evdev.KEY_LEFTALT: 0xA4, evdev.KEY_RIGHTALT: 0xA5,
	evdev.KEY_PAUSE: 0x13, evdev.KEY_CAPSLOCK: 0x14, evdev.KEY_ESC: 0x1B, evdev.KEY_SPACE: 0x20,
	evdev.KEY_PAGEUP: 0x21, evdev.KEY_PAGEDOWN: 0x22, evdev.KEY_END: 0x23, evdev.KEY_HOME: 0x24,
	evdev.KEY_LEFT: 0x25, evdev.KEY_UP: 0x26, evdev.KEY_RIGHT: 0x27, evdev.KEY_DOWN: 0x28,
	evdev.KEY_SYSRQ: 0x2C, evdev.KEY_INSERT: 0x2D, evdev.KEY_DELETE: 0x2E,
	evdev.KEY_LEFTMETA: 0x5B, evdev.KEY_RIGHTMETA: 0x5C, evdev.KEY_COMPOSE: 0x5D,
	evdev.KEY_KPASTERISK: 0x6A, evdev.KEY_KPPLUS: 0x6B, evdev.KEY_KPMINUS: 0x6D,
	evdev.KEY_KPDOT: 0x6E, evdev.KEY_KPSLASH: 0x6F,
	evdev.KEY_NUMLOCK: 0x90, evdev.KEY_SCROLLLOCK: 0x91,
	evdev.KEY_MUTE: 0xAD, evdev.KEY_VOLUMEDOWN: 0xAE, evdev.KEY_VOLUMEUP: 0xAF,
	evdev.KEY_NEXTSONG: 0xB0, evdev.KEY_PREVIOUSSONG: 0xB1, evdev.KEY_STOPCD: 0xB2, evdev.KEY_PLAYPAUSE: 0xB3,
	evdev.KEY_SEMICOLON: 0xBA, evdev.KEY_EQUAL: 0xBB, evdev.KEY_COMMA: 0xBC, evdev.KEY_MINUS: 0xBD,
	evdev.KEY_DOT: 0xBE, evdev.KEY_SLASH: 0xBF, evdev.KEY_GRAVE: 0xC0, evdev.KEY_LEFTBRACE: 0xDB,
	evdev.KEY_BACKSLASH: 0xDC, evdev.KEY_RIGHTBRACE: 0xDD, evdev.KEY_APOSTROPHE: 0xDE,
}

var evdevMouse = map[evdev.EvCode]device.MouseButton{
	evdev.BTN_LEFT:   device.MouseLeft,
	evdev.BTN_RIGHT:  device.MouseRight,
	evdev.BTN_MIDDLE: device.MouseMiddle,
	evdev.BTN_SIDE:   device.MouseX1,
	evdev.BTN_EXTRA:  device.MouseX2,
}

func init() {
	letters := []evdev.EvCode{
		evdev.KEY_A, evdev.KEY_B, evdev.KEY_C, evdev.KEY_D, evdev.KEY_E, evdev.KEY_F, evdev.KEY_G,
		evdev.KEY_H, evdev.KEY_I, evdev.KEY_J, evdev.KEY_K, evdev.KEY_L, evdev.KEY_M, evdev.KEY_N,
		evdev.KEY_O, evdev.KEY_P, evdev.KEY_Q, evdev.KEY_R, evdev.KEY_S, evdev.KEY_T, evdev.KEY_U,
		evdev.KEY_V, evdev.KEY_W, evdev.KEY_X, evdev.KEY_Y, evdev.KEY_Z,
	}
	for i, code := range letters {
		evdevVK[code] = 'A' + uint16(i)
	}
	digits := []evdev.EvCode{
		evdev.KEY_0, evdev.KEY_1, evdev.KEY_2, evdev.KEY_3, evdev.KEY_4,
		evdev.KEY_5, evdev.KEY_6, evdev.KEY_7, evdev.KEY_8, evdev.KEY_9,
	}
	for i, code := range digits {
		evdevVK[code] = '0' + uint16(i)
	}
	numpad := []evdev.EvCode{
		evdev.KEY_KP0, evdev.KEY_KP1, evdev.KEY_KP2, evdev.KEY_KP3, evdev.KEY_KP4,
		evdev.KEY_KP5, evdev.KEY_KP6, evdev.KEY_KP7, evdev.KEY_KP8, evdev.KEY_KP9,
	}
	for i, code := range numpad {
		evdevVK[code] = 0x60 + uint16(i)
	}
	functions := []evdev.EvCode{
		evdev.KEY_F1, evdev.KEY_F2, evdev.KEY_F3, evdev.KEY_F4, evdev.KEY_F5, evdev.KEY_F6,
		evdev.KEY_F7, evdev.KEY_F8, evdev.KEY_F9, evdev.KEY_F10, evdev.KEY_F11, evdev.KEY_F12,
		evdev.KEY_F13, evdev.KEY_F14, evdev.KEY_F15, evdev.KEY_F16, evdev.KEY_F17, evdev.KEY_F18,
		evdev.KEY_F19, evdev.KEY_F20, evdev.KEY_F21, evdev.KEY_F22, evdev.KEY_F23, evdev.KEY_F24,
	}
	for i, code := range functions {
		evdevVK[code] = 0x70 + uint16(i)
	}
}

type evdevSource struct {
	log *zap.Logger
}

// NewSystemSource returns the keyboard and mouse source of the running platform.
func NewSystemSource(log *zap.Logger) Source {
	return &evdevSource{log: log}
}

// Run reads every keyboard and mouse present at start. Devices are opened read-only and not grabbed.
func (s *evdevSource) Run(ctx context.Context, events chan<- Event) error {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return fmt.Errorf("failed to list input devices: %w", err)
	}
	var (
		wg      sync.WaitGroup
		devices []*evdev.InputDevice
	)
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		if !isKeyboardOrMouse(dev) {
			dev.Close()
			continue
		}
		s.log.Debug("Reading input device", zap.String("name", p.Name), zap.String("path", p.Path))
		devices = append(devices, dev)
		wg.Add(1)
		go func() {
			defer wg.Done()
			read(ctx, dev, events)
		}()
	}
	if len(devices) == 0 {
		return fmt.Errorf("no keyboard found: %w", ErrUnsupported)
	}
	<-ctx.Done()
	for _, dev := range devices {
		dev.Close()
	}
	wg.Wait()
	return nil
}

func isKeyboardOrMouse(dev *evdev.InputDevice) bool {
	for _, code := range dev.CapableEvents(evdev.EV_KEY) {
		if code == evdev.KEY_A || code == evdev.BTN_LEFT {
			return true
		}
	}
	return false
}

func read(ctx context.Context, dev *evdev.InputDevice, events chan<- Event) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			return
		}
		out, ok := translate(ev)
		if !ok {
			continue
		}
		select {
		case events <- out:
		case <-ctx.Done():
			return
		}
	}
}

// translate drops auto-repeat (value 2) and codes without a virtual key.
func translate(ev *evdev.InputEvent) (Event, bool) {
	if ev.Type != evdev.EV_KEY || ev.Value > 1 {
		return Event{}, false
	}
	down := ev.Value == 1
	if b, ok := evdevMouse[ev.Code]; ok {
		return Event{Mouse: b, Down: down}, true
	}
	if vk, ok := evdevVK[ev.Code]; ok {
		return Event{VK: vk, Down: down}, true
	}
	return Event{}, false
}
