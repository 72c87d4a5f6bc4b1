package xinput

import (
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/ownership"
)

type ControllerInfo struct {
	Index   uint32
	ID      ownership.DeviceID
	Type    device.DeviceType
	SubType uint8
}

// SetVibration drives the rumble motors of a slot. It reports whether the controller accepted it.
func (p *Poller) SetVibration(index uint32, leftMotor, rightMotor uint16) bool {
	return p.reader.SetState(index, leftMotor, rightMotor) == nil
}

// EnumerateDevices lists the controllers present right now.
func (p *Poller) EnumerateDevices() []ControllerInfo {
	return EnumerateDevices(p.reader)
}

func EnumerateDevices(reader Reader) []ControllerInfo {
	var out []ControllerInfo
	for i := uint32(0); i < MaxControllers; i++ {
		caps, err := reader.GetCapabilities(i)
		if err != nil {
			continue
		}
		id := deviceID(caps)
		out = append(out, ControllerInfo{
			Index:   i,
			ID:      id,
			Type:    device.Gamepad(id.VendorID),
			SubType: caps.SubType,
		})
	}
	return out
}

func deviceID(caps Capabilities) ownership.DeviceID {
	if caps.VendorID == 0 && caps.ProductID == 0 {
		return ownership.DeviceID{VendorID: DefaultVendorID, ProductID: DefaultProductID}
	}
	return ownership.DeviceID{VendorID: caps.VendorID, ProductID: caps.ProductID}
}
