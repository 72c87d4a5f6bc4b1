package hidsvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/sstallion/go-hid"
)

// HIDAPIBackend talks to devices through hidapi.
type HIDAPIBackend struct{}

func NewHIDAPIBackend() (*HIDAPIBackend, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	return &HIDAPIBackend{}, nil
}

func (b *HIDAPIBackend) Enumerate() ([]DeviceInfo, error) {
	var devices []DeviceInfo
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		devices = append(devices, DeviceInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Interface:    info.InterfaceNbr,
			UsagePage:    info.UsagePage,
			Usage:        info.Usage,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (b *HIDAPIBackend) Open(info DeviceInfo) (Device, error) {
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return nil, err
	}
	return hidapiDevice{dev: dev}, nil
}

type hidapiDevice struct {
	dev *hid.Device
}

func (d hidapiDevice) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	n, err := d.dev.ReadWithTimeout(p, timeout)
	if errors.Is(err, hid.ErrTimeout) {
		return 0, ErrTimeout
	}
	return n, err
}

func (d hidapiDevice) Close() error {
	return d.dev.Close()
}
