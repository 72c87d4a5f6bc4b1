package state

import (
	"errors"
	"testing"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	name  string
	err   error
	calls int
}

func (f *fakeProcess) ForegroundProcess() (string, error) {
	f.calls++
	return f.name, f.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestState(t *testing.T, cfg config.Config) (*State, *fakeProcess, *fakeClock) {
	t.Helper()
	proc := &fakeProcess{name: `C:\Games\Game.exe`}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s, err := New(cfg, Deps{Process: proc, Now: clock.Now})
	require.NoError(t, err)
	return s, proc, clock
}

func sampleConfig() config.Config {
	cfg := config.Default()
	cfg.SwitchKey = "F12"
	cfg.Mappings = []config.Mapping{
		{TriggerKey: "A", TargetKeys: []string{"B"}},
		{TriggerKey: "Ctrl+Q", TargetKeys: []string{"C"}},
		{TriggerKey: "Gamepad(045e):DPadUp+A", TargetKeys: []string{"MouseLeft"}},
		{TriggerSequence: "X,Y,Z", TargetKeys: []string{"Space"}},
	}
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := sampleConfig()
	cfg.Mappings = append(cfg.Mappings, config.Mapping{Name: "broken", TriggerKey: "A", TargetKeys: []string{"NotAKey"}})
	s, err := New(cfg, Deps{})
	assert.Nil(t, s)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "broken", cfgErr.Mapping)
	assert.Equal(t, "NotAKey", cfgErr.Value)
}

func TestReloadIdempotent(t *testing.T) {
	cfg := sampleConfig()
	s, _, _ := newTestState(t, cfg)
	before := s.Tables()
	gen := s.Generation()

	require.NoError(t, s.Reload(cfg))
	after := s.Tables()
	assert.NotSame(t, before, after)
	assert.Equal(t, before, after)
	assert.Equal(t, gen+1, s.Generation())
}

func TestReloadRejectedKeepsState(t *testing.T) {
	s, _, _ := newTestState(t, sampleConfig())
	before := s.Tables()
	gen := s.Generation()

	bad := sampleConfig()
	bad.SwitchKey = "Nope+"
	err := s.Reload(bad)
	require.Error(t, err)
	assert.Same(t, before, s.Tables())
	assert.Equal(t, gen, s.Generation())
	assert.Equal(t, uint16(0x7B), s.SwitchKey().VK)
}

func TestReloadClearsLiveState(t *testing.T) {
	matcher := sequence.NewMatcher()
	cfg := sampleConfig()
	s, err := New(cfg, Deps{Sequences: matcher})
	require.NoError(t, err)

	combo := device.KeyCombo(0x11, 0x51)
	s.SetKeyPressed(0x11, true)
	s.SetKeyPressed(0x51, true)
	require.True(t, s.AddActiveCombo(combo))

	now := time.Now()
	matcher.RecordInput(device.Keyboard(0x58), now)
	matcher.RecordInput(device.Keyboard(0x59), now)

	require.NoError(t, s.Reload(cfg))
	assert.False(t, s.IsComboActive(combo))
	assert.True(t, s.IsKeyPressed(0x11), "pressed keys survive reloads")

	matcher.RecordInput(device.Keyboard(0x5A), now)
	_, ok := matcher.TryMatchWithSequence()
	assert.False(t, ok, "history was cleared")

	matcher.RecordInput(device.Keyboard(0x58), now)
	matcher.RecordInput(device.Keyboard(0x59), now)
	matcher.RecordInput(device.Keyboard(0x5A), now)
	_, ok = matcher.TryMatchWithSequence()
	assert.True(t, ok, "sequences were registered again")
}

func TestIsTurboEnabled(t *testing.T) {
	cfg := sampleConfig()
	off := false
	cfg.Mappings[0].TurboEnabled = &off
	s, _, _ := newTestState(t, cfg)
	assert.False(t, s.IsTurboEnabled(device.Keyboard(0x41)))
	assert.True(t, s.IsTurboEnabled(device.Keyboard(0x42)))
	assert.True(t, s.IsTurboEnabled(device.XInputCombo(device.Gamepad(1), device.PadA)))
}

func TestProcessWhitelist(t *testing.T) {
	type testCase struct {
		name      string
		whitelist []string
		process   string
		err       error
		expected  bool
	}
	tcs := []testCase{
		{name: "empty whitelist", process: "other.exe", expected: true},
		{name: "not listed", whitelist: []string{"game.exe"}, process: "other.exe", expected: false},
		{name: "case insensitive", whitelist: []string{"GAME.exe"}, process: `C:\Games\Game.EXE`, expected: true},
		{name: "unix path", whitelist: []string{"game"}, process: "/usr/bin/game", expected: true},
		{name: "query fails open", whitelist: []string{"game.exe"}, err: errors.New("denied"), expected: true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.ProcessWhitelist = tc.whitelist
			s, proc, _ := newTestState(t, cfg)
			proc.name = tc.process
			proc.err = tc.err
			assert.Equal(t, tc.expected, s.IsProcessWhitelisted())
		})
	}
}

func TestProcessCacheTTL(t *testing.T) {
	cfg := config.Default()
	cfg.ProcessWhitelist = []string{"game.exe"}
	s, proc, clock := newTestState(t, cfg)

	assert.True(t, s.IsProcessWhitelisted())
	assert.True(t, s.IsProcessWhitelisted())
	assert.Equal(t, 1, proc.calls)

	proc.name = "other.exe"
	clock.Advance(20 * time.Millisecond)
	assert.True(t, s.IsProcessWhitelisted(), "cached value is still fresh")
	clock.Advance(40 * time.Millisecond)
	assert.False(t, s.IsProcessWhitelisted())
	assert.Equal(t, 2, proc.calls)
	assert.Equal(t, "other.exe", s.ProcessInfo().Name)
}

func TestCleanupReleasedCombos(t *testing.T) {
	s, _, _ := newTestState(t, sampleConfig())
	combo := device.KeyCombo(0x11, 0x51)
	s.SetKeyPressed(0x11, true)
	s.SetKeyPressed(0x51, true)

	assert.True(t, s.AddActiveCombo(combo))
	assert.False(t, s.AddActiveCombo(combo), "combo is added once per hold")
	assert.True(t, s.IsComboActive(device.KeyCombo(0x51, 0x11)))
	assert.Empty(t, s.CleanupReleasedCombos())

	s.SetKeyPressed(0x11, false)
	released := s.CleanupReleasedCombos()
	require.Len(t, released, 1)
	assert.True(t, released[0].Equal(combo))
	assert.False(t, s.IsComboActive(combo))
	assert.Empty(t, s.CleanupReleasedCombos())
}

func TestSwitchLatchAndPause(t *testing.T) {
	s, _, _ := newTestState(t, sampleConfig())
	latch := s.KeyboardLatch()
	sk := s.SwitchKey()
	held := func(vk uint16) bool { return s.IsKeyPressed(vk) }

	toggles := 0
	for i := 0; i < 5; i++ {
		if latch.Update(sk.MatchKeyboard(0x7B, held)) {
			toggles++
		}
	}
	assert.Equal(t, 1, toggles)
	assert.False(t, latch.Update(false))
	assert.True(t, latch.Update(true))

	s.SetKeyPressed(0x11, true)
	s.SetKeyPressed(0x51, true)
	s.AddActiveCombo(device.KeyCombo(0x11, 0x51))
	assert.True(t, s.TogglePause())
	assert.True(t, s.IsPaused())
	assert.Empty(t, s.ActiveCombos())
	assert.False(t, s.TogglePause())
}

func TestResetHooks(t *testing.T) {
	s, _, _ := newTestState(t, sampleConfig())
	resets := 0
	s.OnReset(func() { resets++ })

	s.TogglePause()
	s.TogglePause()
	assert.Equal(t, 2, resets)

	require.NoError(t, s.Reload(sampleConfig()))
	assert.Equal(t, 3, resets)

	bad := sampleConfig()
	bad.Mappings[0].TriggerKey = "NoSuchKey"
	require.Error(t, s.Reload(bad))
	assert.Equal(t, 3, resets, "a rejected config resets nothing")
}

func TestActivation(t *testing.T) {
	s, _, _ := newTestState(t, sampleConfig())
	s.RequestActivation(ActivationRequest{Handle: "dev1"})
	s.RequestActivation(ActivationRequest{Handle: "dev2"})
	assert.False(t, s.IsActivating("dev1"))
	assert.True(t, s.IsActivating("dev2"))

	req, ok := s.TryRecvActivationRequest()
	require.True(t, ok)
	assert.Equal(t, "dev1", req.Handle)

	s.SendActivationData("dev1", []byte{1})
	s.SendActivationData("dev2", []byte{2})
	data, ok := s.TryRecvActivationData("dev2")
	require.True(t, ok)
	assert.Equal(t, []byte{2}, data)
	_, ok = s.TryRecvActivationData("dev2")
	assert.False(t, ok)

	s.ClearActivating()
	assert.False(t, s.IsActivating("dev2"))
}

func TestCaptureMode(t *testing.T) {
	s, _, _ := newTestState(t, sampleConfig())
	s.SendCapture(device.Keyboard(0x41))
	s.SetCaptureMode(true)
	assert.True(t, s.IsCaptureMode())
	_, ok := s.TryRecvCapture()
	assert.False(t, ok, "stale captures are drained")

	s.SendCapture(device.Keyboard(0x42))
	dev, ok := s.TryRecvCapture()
	require.True(t, ok)
	assert.True(t, dev.Equal(device.Keyboard(0x42)))
	assert.Equal(t, config.HeuristicMostSustained, s.CaptureSelectors().Heuristic)
}
