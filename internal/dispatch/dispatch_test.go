package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/sequence"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingEmitter struct {
	mu      sync.Mutex
	outputs []Output
}

func (e *recordingEmitter) Emit(out Output) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outputs = append(e.outputs, out)
	return nil
}

func (e *recordingEmitter) snapshot() []Output {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Output(nil), e.outputs...)
}

func (e *recordingEmitter) downs() int {
	n := 0
	for _, out := range e.snapshot() {
		if out.Down {
			n++
		}
	}
	return n
}

type fakeProcess struct {
	name string
}

func (f fakeProcess) ForegroundProcess() (string, error) {
	return f.name, nil
}

type fixture struct {
	state      *state.State
	emitter    *recordingEmitter
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, cfg config.Config, process string) *fixture {
	t.Helper()
	matcher := sequence.NewMatcher()
	st, err := state.New(cfg, state.Deps{Process: fakeProcess{name: process}, Sequences: matcher})
	require.NoError(t, err)
	f := &fixture{state: st, emitter: &recordingEmitter{}}
	f.dispatcher = New(zap.NewNop(), st, matcher, f.emitter, WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- f.dispatcher.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func mappingConfig(mappings ...config.Mapping) config.Config {
	cfg := config.Default()
	cfg.Interval = 5
	cfg.EventDuration = 1
	cfg.Mappings = mappings
	return cfg
}

var (
	keyA = device.Keyboard(0x41)
	keyB = device.Keyboard(0x42)
	keyC = device.Keyboard(0x43)
)

func TestTurboRepeatsUntilRelease(t *testing.T) {
	f := newFixture(t, mappingConfig(config.Mapping{TriggerKey: "A", TargetKeys: []string{"X"}}), "")
	f.dispatcher.Dispatch(device.PressedEvent(keyA))
	assert.Eventually(t, func() bool { return f.emitter.downs() >= 3 }, time.Second, time.Millisecond)

	f.dispatcher.Dispatch(device.ReleasedEvent(keyA))
	time.Sleep(20 * time.Millisecond)
	stopped := len(f.emitter.snapshot())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, len(f.emitter.snapshot()))

	outputs := f.emitter.snapshot()
	assert.Equal(t, device.KeyAction(0x58), outputs[0].Action)
	assert.True(t, outputs[0].Down)
	assert.False(t, outputs[len(outputs)-1].Down, "every press is released")
}

func TestSingleShotWithoutTurbo(t *testing.T) {
	off := false
	f := newFixture(t, mappingConfig(config.Mapping{TriggerKey: "A", TargetKeys: []string{"X"}, TurboEnabled: &off}), "")
	f.dispatcher.Dispatch(device.PressedEvent(keyA))
	assert.Eventually(t, func() bool { return len(f.emitter.snapshot()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, f.emitter.snapshot(), 2)
}

func TestMultipleAndSequentialActions(t *testing.T) {
	off := false
	f := newFixture(t, mappingConfig(
		config.Mapping{TriggerKey: "A", TargetKeys: []string{"Ctrl+C"}, TurboEnabled: &off},
		config.Mapping{TriggerKey: "B", TargetKeys: []string{"X", "MoveUp"}, TargetMode: config.TargetModeSequence, MoveSpeed: 4, TurboEnabled: &off},
	), "")

	f.dispatcher.Dispatch(device.PressedEvent(keyA))
	assert.Eventually(t, func() bool { return len(f.emitter.snapshot()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []Output{
		{Action: device.KeyAction(0x11), Down: true},
		{Action: device.KeyAction(0x43), Down: true},
		{Action: device.KeyAction(0x43), Down: false},
		{Action: device.KeyAction(0x11), Down: false},
	}, f.emitter.snapshot())

	f.dispatcher.Dispatch(device.PressedEvent(keyB))
	assert.Eventually(t, func() bool { return len(f.emitter.snapshot()) == 7 }, time.Second, time.Millisecond)
	assert.Equal(t, []Output{
		{Action: device.KeyAction(0x58), Down: true},
		{Action: device.KeyAction(0x58), Down: false},
		{Action: device.MoveAction(device.DirectionUp, 4), Down: true},
	}, f.emitter.snapshot()[4:])
}

func TestWhitelistGating(t *testing.T) {
	cfg := mappingConfig(config.Mapping{TriggerKey: "A", TargetKeys: []string{"X"}})
	cfg.ProcessWhitelist = []string{"game.exe"}
	f := newFixture(t, cfg, "other.exe")
	f.dispatcher.Dispatch(device.PressedEvent(keyA))
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, f.emitter.snapshot())
}

func TestPausedAndUnmapped(t *testing.T) {
	f := newFixture(t, mappingConfig(config.Mapping{TriggerKey: "A", TargetKeys: []string{"X"}}), "")
	f.dispatcher.Dispatch(device.PressedEvent(keyB))
	f.state.TogglePause()
	f.dispatcher.Dispatch(device.PressedEvent(keyA))
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, f.emitter.snapshot())
}

func TestSequenceGating(t *testing.T) {
	off := false
	f := newFixture(t, mappingConfig(config.Mapping{
		TriggerSequence: "A,B,C", TargetKeys: []string{"X"}, TurboEnabled: &off,
	}), "")

	f.dispatcher.Dispatch(device.PressedEvent(keyC))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.emitter.snapshot(), "terminal alone does not fire")

	for _, dev := range []device.InputDevice{keyA, keyB, keyC} {
		f.dispatcher.Dispatch(device.PressedEvent(dev))
	}
	assert.Eventually(t, func() bool { return len(f.emitter.snapshot()) == 2 }, time.Second, time.Millisecond)
}

func TestClearCacheStopsTurbo(t *testing.T) {
	f := newFixture(t, mappingConfig(config.Mapping{TriggerKey: "A", TargetKeys: []string{"X"}}), "")
	f.dispatcher.Dispatch(device.PressedEvent(keyA))
	assert.Eventually(t, func() bool { return f.emitter.downs() >= 2 }, time.Second, time.Millisecond)
	f.dispatcher.ClearCache()
	time.Sleep(20 * time.Millisecond)
	stopped := len(f.emitter.snapshot())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, len(f.emitter.snapshot()))
}

func TestResetStopsTurbo(t *testing.T) {
	type testCase struct {
		name  string
		reset func(t *testing.T, f *fixture)
	}
	cfg := mappingConfig(config.Mapping{TriggerKey: "A", TargetKeys: []string{"X"}})
	tcs := []testCase{
		{name: "reload", reset: func(t *testing.T, f *fixture) {
			require.NoError(t, f.state.Reload(cfg))
		}},
		{name: "pause and resume", reset: func(t *testing.T, f *fixture) {
			assert.True(t, f.state.TogglePause())
			assert.False(t, f.state.TogglePause())
		}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, cfg, "")
			f.dispatcher.Dispatch(device.PressedEvent(keyA))
			assert.Eventually(t, func() bool { return f.emitter.downs() >= 2 }, time.Second, time.Millisecond)

			tc.reset(t, f)
			time.Sleep(20 * time.Millisecond)
			stopped := len(f.emitter.snapshot())
			time.Sleep(30 * time.Millisecond)
			assert.Equal(t, stopped, len(f.emitter.snapshot()))
			outputs := f.emitter.snapshot()
			assert.False(t, outputs[len(outputs)-1].Down, "the held key is released")
		})
	}
}
