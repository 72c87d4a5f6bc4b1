package hidsvc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/ownership"
)

// ErrTimeout is returned by Device.ReadWithTimeout when no report arrived in time.
var ErrTimeout = errors.New("timeout")

const (
	usagePageGenericDesktop = 0x01
	usageJoystick           = 0x04
	usageGamepad            = 0x05
)

type Address struct {
	VendorID  uint16
	ProductID uint16
	Interface int
}

func (a Address) String() string {
	return fmt.Sprintf("%04x:%04x:%d", a.VendorID, a.ProductID, a.Interface)
}

func ParseAddress(s string) (Address, error) {
	var addr Address
	_, err := fmt.Sscanf(s, "%04x:%04x:%d", &addr.VendorID, &addr.ProductID, &addr.Interface)
	if err != nil {
		return Address{}, fmt.Errorf("invalid HID address %q: %w", s, err)
	}
	return addr, nil
}

type DeviceInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Interface    int
	UsagePage    uint16
	Usage        uint16
	Manufacturer string
	Product      string
}

func (i DeviceInfo) Address() Address {
	return Address{VendorID: i.VendorID, ProductID: i.ProductID, Interface: i.Interface}
}

func (i DeviceInfo) ownerID() ownership.DeviceID {
	return ownership.DeviceID{VendorID: i.VendorID, ProductID: i.ProductID}
}

// Types lists the device classes generic mappings may address this device by, most specific first.
func (i DeviceInfo) Types() []device.DeviceType {
	page := device.HIDType(i.UsagePage, i.Usage)
	if i.UsagePage == usagePageGenericDesktop {
		switch i.Usage {
		case usageGamepad:
			return []device.DeviceType{device.Gamepad(i.VendorID), page}
		case usageJoystick:
			return []device.DeviceType{device.Joystick(i.VendorID), page}
		}
	}
	return []device.DeviceType{page}
}

func (i DeviceInfo) Type() device.DeviceType {
	return i.Types()[0]
}

func (i DeviceInfo) Name() string {
	var parts []string
	if i.Manufacturer != "" {
		parts = append(parts, i.Manufacturer)
	}
	if i.Product != "" {
		parts = append(parts, i.Product)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", i.VendorID, i.ProductID)
	}
	return strings.Join(parts, " ")
}

// Device is an opened HID interface delivering raw input reports.
type Device interface {
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	Close() error
}

type Backend interface {
	Enumerate() ([]DeviceInfo, error)
	Open(info DeviceInfo) (Device, error)
}
