//go:build !windows && !linux

package xinput

import "go.uber.org/zap"

type noReader struct{}

// NewSystemReader returns a reader that never finds a controller.
func NewSystemReader(log *zap.Logger) (Reader, error) {
	log.Warn("No controller backend for this platform")
	return noReader{}, nil
}

func (noReader) GetState(uint32) (Snapshot, error) {
	return Snapshot{}, ErrNotConnected
}

func (noReader) GetCapabilities(uint32) (Capabilities, error) {
	return Capabilities{}, ErrNotConnected
}

func (noReader) SetState(uint32, uint16, uint16) error {
	return ErrNotConnected
}
