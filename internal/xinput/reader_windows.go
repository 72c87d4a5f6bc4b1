//go:build windows

package xinput

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

var (
	xinputDLL                 = windows.NewLazySystemDLL("xinput1_4.dll")
	procXInputGetState        = xinputDLL.NewProc("XInputGetState")
	procXInputGetCapabilities = xinputDLL.NewProc("XInputGetCapabilities")
	procXInputSetState        = xinputDLL.NewProc("XInputSetState")
)

type xinputState struct {
	PacketNumber uint32
	Gamepad      xinputGamepad
}

type xinputGamepad struct {
	Buttons      uint16
	LeftTrigger  byte
	RightTrigger byte
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

type xinputVibration struct {
	LeftMotorSpeed  uint16
	RightMotorSpeed uint16
}

type xinputCapabilities struct {
	Type      byte
	SubType   byte
	Flags     uint16
	Gamepad   xinputGamepad
	Vibration xinputVibration
}

// xinputCapabilitiesEx is the undocumented extension that carries the USB ids of the pad.
type xinputCapabilitiesEx struct {
	Capabilities   xinputCapabilities
	VendorID       uint16
	ProductID      uint16
	ProductVersion uint16
	_              uint16
	_              uint32
}

const (
	errorDeviceNotConnected = 1167
	// XInputGetCapabilitiesEx is exported by ordinal only.
	ordinalGetCapabilitiesEx = 108
)

type dllReader struct {
	log *zap.Logger
	// zero when the loaded xinput has no XInputGetCapabilitiesEx
	capabilitiesEx uintptr
}

// NewSystemReader returns the XInput reader of the running platform.
func NewSystemReader(log *zap.Logger) (Reader, error) {
	if err := xinputDLL.Load(); err != nil {
		return nil, fmt.Errorf("failed to load xinput: %w", err)
	}
	r := dllReader{log: log}
	proc, err := windows.GetProcAddressByOrdinal(windows.Handle(xinputDLL.Handle()), ordinalGetCapabilitiesEx)
	if err != nil {
		log.Warn("XInputGetCapabilitiesEx unavailable, controllers report default ids", zap.Error(err))
	} else {
		r.capabilitiesEx = proc
	}
	log.Debug("XInput loaded", zap.String("dll", xinputDLL.Name), zap.Bool("capabilitiesEx", r.capabilitiesEx != 0))
	return r, nil
}

func result(ret uintptr) error {
	switch ret {
	case 0:
		return nil
	case errorDeviceNotConnected:
		return ErrNotConnected
	}
	return windows.Errno(ret)
}

func (r dllReader) GetState(index uint32) (Snapshot, error) {
	var st xinputState
	ret, _, _ := procXInputGetState.Call(uintptr(index), uintptr(unsafe.Pointer(&st)))
	if err := result(ret); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		PacketNumber: st.PacketNumber,
		Gamepad:      Gamepad(st.Gamepad),
	}, nil
}

// GetCapabilities prefers the extended call for the real VID/PID. Zero ids are left for
// deviceID to replace with the defaults.
func (r dllReader) GetCapabilities(index uint32) (Capabilities, error) {
	if r.capabilitiesEx != 0 {
		var ex xinputCapabilitiesEx
		ret, _, _ := syscall.SyscallN(r.capabilitiesEx, 1, uintptr(index), 0, uintptr(unsafe.Pointer(&ex)))
		switch err := result(ret); {
		case err == nil:
			return Capabilities{
				Type:      ex.Capabilities.Type,
				SubType:   ex.Capabilities.SubType,
				Flags:     ex.Capabilities.Flags,
				VendorID:  ex.VendorID,
				ProductID: ex.ProductID,
			}, nil
		case errors.Is(err, ErrNotConnected):
			return Capabilities{}, err
		default:
			r.log.Debug("XInputGetCapabilitiesEx failed", zap.Uint32("index", index), zap.Error(err))
		}
	}
	var caps xinputCapabilities
	ret, _, _ := procXInputGetCapabilities.Call(uintptr(index), 0, uintptr(unsafe.Pointer(&caps)))
	if err := result(ret); err != nil {
		return Capabilities{}, err
	}
	return Capabilities{
		Type:    caps.Type,
		SubType: caps.SubType,
		Flags:   caps.Flags,
	}, nil
}

func (r dllReader) SetState(index uint32, leftMotor, rightMotor uint16) error {
	vib := xinputVibration{LeftMotorSpeed: leftMotor, RightMotorSpeed: rightMotor}
	ret, _, _ := procXInputSetState.Call(uintptr(index), uintptr(unsafe.Pointer(&vib)))
	return result(ret)
}
