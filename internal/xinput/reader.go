package xinput

import (
	"errors"
)

var (
	ErrNotConnected = errors.New("controller not connected")
	ErrUnsupported  = errors.New("not supported by this reader")
)

// Default ids reported when the platform cannot tell which pad is behind a slot.
const (
	DefaultVendorID  uint16 = 0x045e
	DefaultProductID uint16 = 0x028e
)

type Capabilities struct {
	Type      uint8
	SubType   uint8
	Flags     uint16
	VendorID  uint16
	ProductID uint16
}

// Reader is the platform controller API. Implementations must be safe for concurrent use.
type Reader interface {
	GetState(index uint32) (Snapshot, error)
	GetCapabilities(index uint32) (Capabilities, error)
	SetState(index uint32, leftMotor, rightMotor uint16) error
}
