// Package mapping turns a mapping configuration into the lookup tables the runtime state publishes.
// Build is pure: it reads nothing but its argument and the result is never modified afterwards.
package mapping

import (
	"errors"
	"strings"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/keys"
	"github.com/neuroplastio/neio-turbo/internal/sequence"
)

type Tables struct {
	Mappings map[device.Key]device.InputMappingInfo
	// Devices keeps the parsed device for every key of Mappings.
	Devices map[device.Key]device.InputDevice

	// KeyTurbo is indexed by vk; unmapped keys are true.
	KeyTurbo [256]bool
	Turbo    map[device.Key]bool

	// KeyCombos indexes chords by the key that completes them.
	KeyCombos    map[uint16][]device.InputDevice
	XInputCombos map[device.DeviceType][]device.InputDevice
	Generic      map[device.DeviceType][]uint16

	Sequences         []sequence.Sequence
	SequenceTerminals map[device.Key]struct{}

	SwitchKey SwitchKey
	Whitelist []string
	Heuristic config.Heuristic

	Interval      time.Duration
	EventDuration time.Duration
	Workers       int
}

func newTables(cfg config.Config) *Tables {
	t := &Tables{
		Mappings:          make(map[device.Key]device.InputMappingInfo),
		Devices:           make(map[device.Key]device.InputDevice),
		Turbo:             make(map[device.Key]bool),
		KeyCombos:         make(map[uint16][]device.InputDevice),
		XInputCombos:      make(map[device.DeviceType][]device.InputDevice),
		Generic:           make(map[device.DeviceType][]uint16),
		SequenceTerminals: make(map[device.Key]struct{}),
		Heuristic:         cfg.Capture.Heuristic,
		Interval:          time.Duration(cfg.Interval) * time.Millisecond,
		EventDuration:     time.Duration(cfg.EventDuration) * time.Millisecond,
		Workers:           cfg.Workers(),
	}
	for i := range t.KeyTurbo {
		t.KeyTurbo[i] = true
	}
	if t.Heuristic == "" {
		t.Heuristic = config.HeuristicMostSustained
	}
	for _, name := range cfg.ProcessWhitelist {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			t.Whitelist = append(t.Whitelist, name)
		}
	}
	return t
}

// Build validates every trigger and target and returns the complete table set,
// or a *ConfigError for the first string that cannot be parsed.
func Build(cfg config.Config) (*Tables, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Mapping: "config", Err: err}
	}
	t := newTables(cfg)
	if s := strings.TrimSpace(cfg.SwitchKey); s != "" {
		dev, err := keys.ParseInputDevice(s)
		if err != nil {
			return nil, &ConfigError{Mapping: "switchKey", Value: s, Err: err}
		}
		if err := checkTrigger(dev); err != nil {
			return nil, &ConfigError{Mapping: "switchKey", Value: s, Err: err}
		}
		t.SwitchKey = NewSwitchKey(dev)
	}
	for i, m := range cfg.Mappings {
		if err := t.add(cfg, i, m); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tables) add(cfg config.Config, index int, m config.Mapping) error {
	label := m.Label(index)
	var (
		trigger device.InputDevice
		seq     sequence.Sequence
	)
	if m.IsSequence() {
		var err error
		seq, err = sequence.ParseSequenceString(m.TriggerSequence, m.SequenceWindow())
		if err != nil {
			return &ConfigError{Mapping: label, Value: m.TriggerSequence, Err: err}
		}
		for _, step := range seq.Steps {
			if err := checkTrigger(step); err != nil {
				return &ConfigError{Mapping: label, Value: m.TriggerSequence, Err: err}
			}
		}
		trigger = seq.Terminal()
	} else {
		if strings.TrimSpace(m.TriggerKey) == "" {
			return &ConfigError{Mapping: label, Err: errors.New("missing trigger")}
		}
		var err error
		trigger, err = keys.ParseInputDevice(m.TriggerKey)
		if err == nil {
			err = checkTrigger(trigger)
		}
		if err != nil {
			return &ConfigError{Mapping: label, Value: m.TriggerKey, Err: err}
		}
	}

	target, ok, terr := foldTargets(m, cfg.Interval)
	if terr != nil {
		return &ConfigError{Mapping: label, Value: terr.value, Err: terr.err}
	}
	if !ok {
		return nil
	}

	info := device.InputMappingInfo{
		Target:        target,
		Interval:      m.IntervalOr(cfg.Interval),
		EventDuration: m.EventDurationOr(cfg.EventDuration),
		Turbo:         m.Turbo(),
	}
	t.put(trigger, info)

	if m.IsSequence() {
		step := info
		step.IsSequence = true
		for _, dev := range seq.Steps[:len(seq.Steps)-1] {
			existing, found := t.Mappings[dev.Key()]
			if found && !existing.IsSequence {
				continue
			}
			t.Mappings[dev.Key()] = step
			t.Devices[dev.Key()] = dev
			if !found {
				t.index(dev)
			}
		}
		t.Sequences = append(t.Sequences, seq)
		t.SequenceTerminals[trigger.Key()] = struct{}{}
	}
	return nil
}

var errSidedModifier = errors.New("left and right modifiers are reported as Shift, Ctrl or Alt and cannot trigger")

// checkTrigger rejects keys no input source ever reports. Targets may still use them.
func checkTrigger(dev device.InputDevice) error {
	var vks []uint16
	switch dev.Kind() {
	case device.KindKeyboard:
		vks = []uint16{dev.VK()}
	case device.KindKeyCombo:
		vks = dev.Keys()
	}
	for _, vk := range vks {
		if _, sided := keys.SideLessModifier(vk); sided {
			return errSidedModifier
		}
	}
	return nil
}

func (t *Tables) put(dev device.InputDevice, info device.InputMappingInfo) {
	key := dev.Key()
	_, existed := t.Mappings[key]
	t.Mappings[key] = info
	t.Devices[key] = dev

	if dev.Kind() == device.KindKeyboard && dev.VK() < uint16(len(t.KeyTurbo)) {
		t.KeyTurbo[dev.VK()] = info.Turbo
	} else {
		t.Turbo[key] = info.Turbo
	}
	if !existed {
		t.index(dev)
	}
}

func (t *Tables) index(dev device.InputDevice) {
	switch dev.Kind() {
	case device.KindKeyCombo:
		last := dev.LastKey()
		t.KeyCombos[last] = append(t.KeyCombos[last], dev)
	case device.KindXInputCombo:
		t.XInputCombos[dev.Type()] = append(t.XInputCombos[dev.Type()], dev)
	case device.KindGeneric:
		t.Generic[dev.Type()] = append(t.Generic[dev.Type()], dev.ButtonID())
	}
}

type targetError struct {
	value string
	err   error
}

func foldTargets(m config.Mapping, defaultInterval int) (device.OutputAction, bool, *targetError) {
	actions := make([]device.OutputAction, 0, len(m.TargetKeys))
	for _, s := range m.TargetKeys {
		if strings.TrimSpace(s) == "" {
			continue
		}
		action, err := keys.ParseOutputAction(s)
		if err != nil {
			return device.OutputAction{}, false, &targetError{value: s, err: err}
		}
		actions = append(actions, withSpeed(action, m.Speed()))
	}
	switch {
	case len(actions) == 0:
		return device.OutputAction{}, false, nil
	case len(actions) == 1:
		return actions[0], true, nil
	case m.TargetMode == config.TargetModeSequence:
		return device.SequentialActions(m.IntervalOr(defaultInterval), actions...), true, nil
	}
	return device.MultipleActions(actions...), true, nil
}

func withSpeed(a device.OutputAction, speed int32) device.OutputAction {
	if a.Kind != device.ActionMultiple && a.Kind != device.ActionSequential {
		return a.WithSpeed(speed)
	}
	sub := make([]device.OutputAction, len(a.Actions))
	for i, s := range a.Actions {
		sub[i] = withSpeed(s, speed)
	}
	a.Actions = sub
	return a
}

// Lookup returns the mapping of dev.
func (t *Tables) Lookup(dev device.InputDevice) (device.InputMappingInfo, bool) {
	info, ok := t.Mappings[dev.Key()]
	return info, ok
}

func (t *Tables) IsTurboEnabled(dev device.InputDevice) bool {
	if dev.Kind() == device.KindKeyboard && dev.VK() < uint16(len(t.KeyTurbo)) {
		return t.KeyTurbo[dev.VK()]
	}
	if turbo, ok := t.Turbo[dev.Key()]; ok {
		return turbo
	}
	return true
}

func (t *Tables) IsSequenceTerminal(dev device.InputDevice) bool {
	_, ok := t.SequenceTerminals[dev.Key()]
	return ok
}
