package xinput

import (
	"sync"
	"testing"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/ownership"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	pads      map[uint32]Gamepad
	caps      map[uint32]Capabilities
	vibration map[uint32][2]uint16
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		pads:      make(map[uint32]Gamepad),
		caps:      make(map[uint32]Capabilities),
		vibration: make(map[uint32][2]uint16),
	}
}

func (r *fakeReader) set(index uint32, g Gamepad) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pads[index] = g
}

func (r *fakeReader) unplug(index uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pads, index)
}

func (r *fakeReader) GetState(index uint32) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.pads[index]
	if !ok {
		return Snapshot{}, ErrNotConnected
	}
	return Snapshot{Gamepad: g}, nil
}

func (r *fakeReader) GetCapabilities(index uint32) (Capabilities, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pads[index]; !ok {
		return Capabilities{}, ErrNotConnected
	}
	if caps, ok := r.caps[index]; ok {
		return caps, nil
	}
	return Capabilities{Type: 1}, nil
}

func (r *fakeReader) SetState(index uint32, left, right uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pads[index]; !ok {
		return ErrNotConnected
	}
	r.vibration[index] = [2]uint16{left, right}
	return nil
}

type recordingSink struct {
	events []device.InputEvent
}

func (s *recordingSink) Dispatch(ev device.InputEvent) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) take() []device.InputEvent {
	events := s.events
	s.events = nil
	return events
}

type pollerFixture struct {
	state   *state.State
	reader  *fakeReader
	arbiter *ownership.Arbiter
	sink    *recordingSink
	poller  *Poller
}

func newPollerFixture(t *testing.T, cfg config.Config) *pollerFixture {
	t.Helper()
	st, err := state.New(cfg, state.Deps{})
	require.NoError(t, err)
	f := &pollerFixture{
		state:   st,
		reader:  newFakeReader(),
		arbiter: ownership.NewArbiter(),
		sink:    &recordingSink{},
	}
	f.poller = NewPoller(zap.NewNop(), st, f.reader, f.arbiter, f.sink)
	return f
}

func comboConfig(triggers ...string) config.Config {
	cfg := config.Default()
	for _, trigger := range triggers {
		cfg.Mappings = append(cfg.Mappings, config.Mapping{TriggerKey: trigger, TargetKeys: []string{"Space"}})
	}
	return cfg
}

var defaultPad = device.Gamepad(DefaultVendorID)

func TestPollerComboPressRelease(t *testing.T) {
	f := newPollerFixture(t, comboConfig("Gamepad(045e):DPadUp+A"))
	combo := device.XInputCombo(defaultPad, device.PadDPadUp, device.PadA)

	f.reader.set(0, Gamepad{Buttons: ButtonDPadUp | ButtonA})
	f.poller.Tick()
	events := f.sink.take()
	require.Len(t, events, 1)
	assert.Equal(t, device.Pressed, events[0].Kind)
	assert.True(t, events[0].Device.Equal(combo))

	for i := 0; i < 3; i++ {
		f.poller.Tick()
	}
	assert.Empty(t, f.sink.take(), "identical snapshots emit nothing")

	f.reader.set(0, Gamepad{Buttons: ButtonDPadUp})
	f.poller.Tick()
	events = f.sink.take()
	require.Len(t, events, 1)
	assert.Equal(t, device.Released, events[0].Kind)
	assert.True(t, events[0].Device.Equal(combo))
}

func TestPollerDiagonalCombo(t *testing.T) {
	f := newPollerFixture(t, comboConfig("Gamepad(045e):LSUp+LSRight"))
	f.reader.set(1, Gamepad{ThumbLX: 20000, ThumbLY: 20000})
	f.poller.Tick()
	events := f.sink.take()
	require.Len(t, events, 1)
	assert.True(t, events[0].Device.Equal(device.XInputCombo(defaultPad, device.PadLSRight, device.PadLSUp)))
}

func TestPollerSwitchKeyEdge(t *testing.T) {
	cfg := comboConfig("Gamepad(045e):A")
	cfg.SwitchKey = "Gamepad(045e):Start+Back"
	f := newPollerFixture(t, cfg)

	chord := ButtonStart | ButtonBack
	f.reader.set(0, Gamepad{Buttons: chord})
	f.poller.Tick()
	assert.True(t, f.state.IsPaused())

	f.reader.set(0, Gamepad{Buttons: chord | ButtonA})
	f.poller.Tick()
	f.reader.set(0, Gamepad{Buttons: chord, ThumbRX: 30000})
	f.poller.Tick()
	assert.True(t, f.state.IsPaused(), "holding the chord toggles once")
	assert.Empty(t, f.sink.take(), "nothing is dispatched while paused")

	f.reader.set(0, Gamepad{})
	f.poller.Tick()
	f.reader.set(0, Gamepad{Buttons: chord})
	f.poller.Tick()
	assert.False(t, f.state.IsPaused())

	f.reader.set(0, Gamepad{Buttons: ButtonA})
	f.poller.Tick()
	events := f.sink.take()
	require.Len(t, events, 1)
	assert.Equal(t, device.Pressed, events[0].Kind)
}

func TestPollerPauseReleasesActive(t *testing.T) {
	cfg := comboConfig("Gamepad(045e):A")
	cfg.SwitchKey = "Gamepad(045e):Start"
	f := newPollerFixture(t, cfg)

	f.reader.set(0, Gamepad{Buttons: ButtonA})
	f.poller.Tick()
	require.Len(t, f.sink.take(), 1)

	f.reader.set(0, Gamepad{Buttons: ButtonA | ButtonStart})
	f.poller.Tick()
	events := f.sink.take()
	require.Len(t, events, 1)
	assert.Equal(t, device.Released, events[0].Kind)
	assert.True(t, f.state.IsPaused())
}

func TestPollerCapture(t *testing.T) {
	f := newPollerFixture(t, comboConfig())
	f.state.SetCaptureMode(true)

	a := Gamepad{Buttons: ButtonA}
	ab := Gamepad{Buttons: ButtonA | ButtonB}
	for _, g := range []Gamepad{a, a, a, ab, ab} {
		f.reader.set(0, g)
		f.poller.Tick()
	}
	_, ok := f.state.TryRecvCapture()
	assert.False(t, ok, "nothing is published while held")

	f.reader.set(0, Gamepad{})
	f.poller.Tick()
	captured, ok := f.state.TryRecvCapture()
	require.True(t, ok)
	assert.True(t, captured.Equal(device.XInputCombo(defaultPad, device.PadA, device.PadB)))
	assert.Empty(t, f.sink.take())

	f.poller.Tick()
	_, ok = f.state.TryRecvCapture()
	assert.False(t, ok)
}

func TestPollerDisconnect(t *testing.T) {
	f := newPollerFixture(t, comboConfig("Gamepad(045e):B"))
	id := ownership.DeviceID{VendorID: DefaultVendorID, ProductID: DefaultProductID}

	f.reader.set(2, Gamepad{Buttons: ButtonB})
	f.poller.Tick()
	require.Len(t, f.sink.take(), 1)
	owner, ok := f.arbiter.Owner(id)
	require.True(t, ok)
	assert.Equal(t, "xinput", owner)

	f.reader.unplug(2)
	f.poller.Tick()
	events := f.sink.take()
	require.Len(t, events, 1)
	assert.Equal(t, device.Released, events[0].Kind)
	_, ok = f.arbiter.Owner(id)
	assert.False(t, ok)
}

func TestPollerOwnershipConflict(t *testing.T) {
	f := newPollerFixture(t, comboConfig("Gamepad(045e):B"))
	id := ownership.DeviceID{VendorID: DefaultVendorID, ProductID: DefaultProductID}
	require.True(t, f.arbiter.ClaimDevice(id, "hid"))

	f.reader.set(0, Gamepad{Buttons: ButtonB})
	f.poller.Tick()
	assert.Empty(t, f.sink.take())

	f.arbiter.ReleaseDevice(id)
	f.poller.Tick()
	assert.Len(t, f.sink.take(), 1)
}

func TestPollerReloadRebuildsMatcher(t *testing.T) {
	f := newPollerFixture(t, comboConfig("Gamepad(045e):A"))
	f.reader.set(0, Gamepad{Buttons: ButtonA})
	f.poller.Tick()
	require.Len(t, f.sink.take(), 1)

	require.NoError(t, f.state.Reload(comboConfig("Gamepad(045e):A+X")))
	f.reader.set(0, Gamepad{Buttons: ButtonA | ButtonX})
	f.poller.Tick()
	events := f.sink.take()
	require.Len(t, events, 2)
	assert.Equal(t, device.Released, events[0].Kind)
	assert.True(t, events[0].Device.Equal(device.XInputCombo(defaultPad, device.PadA)))
	assert.Equal(t, device.Pressed, events[1].Kind)
	assert.True(t, events[1].Device.Equal(device.XInputCombo(defaultPad, device.PadA, device.PadX)))
}

func TestVibrationAndEnumerate(t *testing.T) {
	f := newPollerFixture(t, comboConfig())
	f.reader.set(3, Gamepad{})
	assert.True(t, f.poller.SetVibration(3, 100, 200))
	assert.False(t, f.poller.SetVibration(0, 1, 1))
	assert.Equal(t, [2]uint16{100, 200}, f.reader.vibration[3])

	devices := f.poller.EnumerateDevices()
	require.Len(t, devices, 1)
	assert.Equal(t, uint32(3), devices[0].Index)
	assert.Equal(t, defaultPad, devices[0].Type)
}

func TestPollerPartitionsByVendor(t *testing.T) {
	f := newPollerFixture(t, comboConfig("Gamepad(054c):A", "Gamepad(045e):A"))
	sony := ownership.DeviceID{VendorID: 0x054c, ProductID: 0x0ce6}
	f.reader.caps[0] = Capabilities{Type: 1, VendorID: sony.VendorID, ProductID: sony.ProductID}
	f.reader.set(0, Gamepad{Buttons: ButtonA})
	f.reader.set(1, Gamepad{Buttons: ButtonA})
	f.poller.Tick()

	events := f.sink.take()
	require.Len(t, events, 2)
	var pressed []device.Key
	for _, ev := range events {
		pressed = append(pressed, ev.Device.Key())
	}
	assert.ElementsMatch(t, []device.Key{
		device.XInputCombo(device.Gamepad(0x054c), device.PadA).Key(),
		device.XInputCombo(defaultPad, device.PadA).Key(),
	}, pressed)

	owner, ok := f.arbiter.Owner(sony)
	require.True(t, ok)
	assert.Equal(t, "xinput", owner)

	controllers := EnumerateDevices(f.reader)
	require.Len(t, controllers, 2)
	assert.Equal(t, sony, controllers[0].ID)
	assert.Equal(t, device.Gamepad(0x054c), controllers[0].Type)
	assert.Equal(t, ownership.DeviceID{VendorID: DefaultVendorID, ProductID: DefaultProductID}, controllers[1].ID)
}
