package state

import (
	"github.com/neuroplastio/neio-turbo/internal/device"
)

// ActivationRequest asks the raw HID layer to teach the device behind Handle.
type ActivationRequest struct {
	Handle string
}

type ActivationData struct {
	Handle string
	Data   []byte
}

// RequestActivation makes req.Handle the only device being taught, replacing any earlier request.
func (s *State) RequestActivation(req ActivationRequest) {
	handle := req.Handle
	s.activating.Store(&handle)
	s.activationRequests.Send(req)
}

func (s *State) TryRecvActivationRequest() (ActivationRequest, bool) {
	return s.activationRequests.TryRecv()
}

func (s *State) SendActivationData(handle string, data []byte) {
	s.activationData.Send(ActivationData{Handle: handle, Data: data})
}

// TryRecvActivationData returns the next report of handle. Queued reports of other devices are discarded.
func (s *State) TryRecvActivationData(handle string) ([]byte, bool) {
	for {
		msg, ok := s.activationData.TryRecv()
		if !ok {
			return nil, false
		}
		if msg.Handle == handle {
			return msg.Data, true
		}
	}
}

func (s *State) IsActivating(handle string) bool {
	current := s.activating.Load()
	return current != nil && *current == handle
}

func (s *State) ClearActivating() {
	s.activating.Store(nil)
}

// SetCaptureMode toggles capture. Entries queued before enabling are dropped.
func (s *State) SetCaptureMode(enabled bool) {
	if enabled {
		s.captures.Drain()
	}
	s.capturing.Store(enabled)
}

func (s *State) IsCaptureMode() bool {
	return s.capturing.Load()
}

func (s *State) SendCapture(dev device.InputDevice) {
	s.captures.Send(dev)
}

func (s *State) TryRecvCapture() (device.InputDevice, bool) {
	return s.captures.TryRecv()
}
