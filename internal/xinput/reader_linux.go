//go:build linux

package xinput

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

const evdevScanInterval = 2 * time.Second

var evdevButtons = map[evdev.EvCode]uint16{
	evdev.BTN_DPAD_UP:    ButtonDPadUp,
	evdev.BTN_DPAD_DOWN:  ButtonDPadDown,
	evdev.BTN_DPAD_LEFT:  ButtonDPadLeft,
	evdev.BTN_DPAD_RIGHT: ButtonDPadRight,
	evdev.BTN_START:      ButtonStart,
	evdev.BTN_SELECT:     ButtonBack,
	evdev.BTN_THUMBL:     ButtonLeftThumb,
	evdev.BTN_THUMBR:     ButtonRightThumb,
	evdev.BTN_TL:         ButtonLeftShoulder,
	evdev.BTN_TR:         ButtonRightShoulder,
	evdev.BTN_A:          ButtonA,
	evdev.BTN_B:          ButtonB,
	evdev.BTN_X:          ButtonX,
	evdev.BTN_Y:          ButtonY,
}

// evdevReader maps gamepads found under /dev/input onto the four controller slots.
type evdevReader struct {
	log *zap.Logger

	mu   sync.RWMutex
	pads [MaxControllers]*evdevPad
}

type evdevPad struct {
	dev  *evdev.InputDevice
	path string
	id   evdev.InputID
	abs  map[evdev.EvCode]evdev.AbsInfo

	mu       sync.Mutex
	snapshot Snapshot
}

// NewSystemReader returns the controller reader of the running platform.
func NewSystemReader(log *zap.Logger) (Reader, error) {
	return &evdevReader{log: log}, nil
}

// Start scans for gamepads until ctx is done.
func (r *evdevReader) Start(ctx context.Context) error {
	defer r.closeAll()
	ticker := time.NewTicker(evdevScanInterval)
	defer ticker.Stop()
	for {
		if err := r.scan(); err != nil {
			r.log.Warn("Gamepad scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *evdevReader) scan() error {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return fmt.Errorf("failed to list input devices: %w", err)
	}
	for _, p := range paths {
		if r.isOpen(p.Path) {
			continue
		}
		pad, err := openPad(p.Path)
		if err != nil || pad == nil {
			continue
		}
		slot, ok := r.attach(pad)
		if !ok {
			pad.dev.Close()
			continue
		}
		r.log.Info("Gamepad attached",
			zap.String("name", p.Name),
			zap.String("path", p.Path),
			zap.Int("slot", slot),
		)
		go r.read(slot, pad)
	}
	return nil
}

func openPad(path string) (*evdevPad, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	gamepad := false
	for _, code := range dev.CapableEvents(evdev.EV_KEY) {
		if code == evdev.BTN_GAMEPAD {
			gamepad = true
			break
		}
	}
	if !gamepad {
		dev.Close()
		return nil, nil
	}
	id, err := dev.InputID()
	if err != nil {
		dev.Close()
		return nil, err
	}
	abs, err := dev.AbsInfos()
	if err != nil {
		dev.Close()
		return nil, err
	}
	return &evdevPad{dev: dev, path: path, id: id, abs: abs}, nil
}

func (r *evdevReader) isOpen(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pad := range r.pads {
		if pad != nil && pad.path == path {
			return true
		}
	}
	return false
}

func (r *evdevReader) attach(pad *evdevPad) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.pads {
		if existing == nil {
			r.pads[i] = pad
			return i, true
		}
	}
	return 0, false
}

func (r *evdevReader) read(slot int, pad *evdevPad) {
	for {
		ev, err := pad.dev.ReadOne()
		if err != nil {
			r.mu.Lock()
			if r.pads[slot] == pad {
				r.pads[slot] = nil
			}
			r.mu.Unlock()
			pad.dev.Close()
			r.log.Info("Gamepad detached", zap.String("path", pad.path), zap.Int("slot", slot), zap.Error(err))
			return
		}
		pad.apply(ev)
	}
}

func (r *evdevReader) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, pad := range r.pads {
		if pad != nil {
			pad.dev.Close()
			r.pads[i] = nil
		}
	}
}

func (r *evdevReader) pad(index uint32) *evdevPad {
	if index >= MaxControllers {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pads[index]
}

func (r *evdevReader) GetState(index uint32) (Snapshot, error) {
	pad := r.pad(index)
	if pad == nil {
		return Snapshot{}, ErrNotConnected
	}
	pad.mu.Lock()
	defer pad.mu.Unlock()
	return pad.snapshot, nil
}

func (r *evdevReader) GetCapabilities(index uint32) (Capabilities, error) {
	pad := r.pad(index)
	if pad == nil {
		return Capabilities{}, ErrNotConnected
	}
	return Capabilities{
		Type:      1,
		VendorID:  pad.id.Vendor,
		ProductID: pad.id.Product,
	}, nil
}

func (r *evdevReader) SetState(index uint32, _, _ uint16) error {
	if r.pad(index) == nil {
		return ErrNotConnected
	}
	return ErrUnsupported
}

func (p *evdevPad) apply(ev *evdev.InputEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := &p.snapshot.Gamepad
	switch ev.Type {
	case evdev.EV_SYN:
		p.snapshot.PacketNumber++
	case evdev.EV_KEY:
		switch ev.Code {
		case evdev.BTN_TL2:
			g.LeftTrigger = digitalTrigger(ev.Value)
			return
		case evdev.BTN_TR2:
			g.RightTrigger = digitalTrigger(ev.Value)
			return
		}
		flag, ok := evdevButtons[ev.Code]
		if !ok {
			return
		}
		if ev.Value != 0 {
			g.Buttons |= flag
		} else {
			g.Buttons &^= flag
		}
	case evdev.EV_ABS:
		info := p.abs[ev.Code]
		switch ev.Code {
		case evdev.ABS_X:
			g.ThumbLX = scaleAxis(ev.Value, info)
		case evdev.ABS_Y:
			g.ThumbLY = invertAxis(scaleAxis(ev.Value, info))
		case evdev.ABS_RX:
			g.ThumbRX = scaleAxis(ev.Value, info)
		case evdev.ABS_RY:
			g.ThumbRY = invertAxis(scaleAxis(ev.Value, info))
		case evdev.ABS_Z:
			g.LeftTrigger = scaleTrigger(ev.Value, info)
		case evdev.ABS_RZ:
			g.RightTrigger = scaleTrigger(ev.Value, info)
		case evdev.ABS_HAT0X:
			g.Buttons &^= ButtonDPadLeft | ButtonDPadRight
			switch {
			case ev.Value < 0:
				g.Buttons |= ButtonDPadLeft
			case ev.Value > 0:
				g.Buttons |= ButtonDPadRight
			}
		case evdev.ABS_HAT0Y:
			g.Buttons &^= ButtonDPadUp | ButtonDPadDown
			switch {
			case ev.Value < 0:
				g.Buttons |= ButtonDPadUp
			case ev.Value > 0:
				g.Buttons |= ButtonDPadDown
			}
		}
	}
}

// scaleAxis maps an absolute axis onto the signed 16-bit XInput range.
func scaleAxis(v int32, info evdev.AbsInfo) int16 {
	span := int64(info.Maximum) - int64(info.Minimum)
	if span <= 0 {
		return 0
	}
	scaled := (int64(v)-int64(info.Minimum))*65535/span - 32768
	return int16(max(-32768, min(32767, scaled)))
}

// evdev Y axes grow downwards, XInput ones upwards.
func invertAxis(v int16) int16 {
	if v == -32768 {
		return 32767
	}
	return -v
}

func scaleTrigger(v int32, info evdev.AbsInfo) uint8 {
	span := int64(info.Maximum) - int64(info.Minimum)
	if span <= 0 {
		return 0
	}
	scaled := (int64(v) - int64(info.Minimum)) * 255 / span
	return uint8(max(0, min(255, scaled)))
}

func digitalTrigger(v int32) uint8 {
	if v != 0 {
		return 255
	}
	return 0
}
