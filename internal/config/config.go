// Package config defines the mapping configuration document. It is read from YAML through
// configsvc, so every field carries a json tag.
package config

import (
	"fmt"
	"strings"
	"time"
)

type TargetMode string

const (
	TargetModeSimultaneous TargetMode = "simultaneous"
	TargetModeSequence     TargetMode = "sequence"
)

type Heuristic string

const (
	HeuristicMostSustained    Heuristic = "mostSustained"
	HeuristicLastStable       Heuristic = "lastStable"
	HeuristicDiagonalPriority Heuristic = "diagonalPriority"
)

type Config struct {
	// Interval and EventDuration are the global defaults in milliseconds.
	Interval         int           `json:"interval"`
	EventDuration    int           `json:"eventDuration"`
	WorkerCount      int           `json:"workerCount"`
	ProcessWhitelist []string      `json:"processWhitelist,omitempty"`
	SwitchKey        string        `json:"switchKey,omitempty"`
	Capture          CaptureConfig `json:"capture"`
	Mappings         []Mapping     `json:"mappings"`
}

type CaptureConfig struct {
	Heuristic Heuristic `json:"heuristic"`
}

type Mapping struct {
	Name            string     `json:"name,omitempty"`
	TriggerKey      string     `json:"triggerKey"`
	TriggerSequence string     `json:"triggerSequence,omitempty"`
	TargetKeys      []string   `json:"targetKeys"`
	TargetMode      TargetMode `json:"targetMode,omitempty"`
	// Interval and EventDuration override the global defaults when set.
	Interval         *int  `json:"interval,omitempty"`
	EventDuration    *int  `json:"eventDuration,omitempty"`
	MoveSpeed        int32 `json:"moveSpeed,omitempty"`
	TurboEnabled     *bool `json:"turboEnabled,omitempty"`
	SequenceWindowMs int   `json:"sequenceWindowMs,omitempty"`
}

const (
	DefaultInterval       = 10
	DefaultEventDuration  = 5
	DefaultWorkerCount    = 4
	DefaultSequenceWindow = 500
)

func Default() Config {
	return Config{
		Interval:      DefaultInterval,
		EventDuration: DefaultEventDuration,
		WorkerCount:   DefaultWorkerCount,
		Capture: CaptureConfig{
			Heuristic: HeuristicMostSustained,
		},
	}
}

// Validate checks the fields that are not device names. Names are checked by the mapping builder.
func (c Config) Validate() error {
	if c.Interval < 0 || c.EventDuration < 0 {
		return fmt.Errorf("interval and eventDuration must not be negative")
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("workerCount must not be negative")
	}
	switch c.Capture.Heuristic {
	case "", HeuristicMostSustained, HeuristicLastStable, HeuristicDiagonalPriority:
	default:
		return fmt.Errorf("unknown capture heuristic %q", c.Capture.Heuristic)
	}
	for i, m := range c.Mappings {
		switch m.TargetMode {
		case "", TargetModeSimultaneous, TargetModeSequence:
		default:
			return fmt.Errorf("mapping %s: unknown target mode %q", m.Label(i), m.TargetMode)
		}
	}
	return nil
}

func (c Config) Workers() int {
	if c.WorkerCount <= 0 {
		return DefaultWorkerCount
	}
	return c.WorkerCount
}

// Label names a mapping in errors and logs.
func (m Mapping) Label(index int) string {
	if m.Name != "" {
		return m.Name
	}
	trigger := m.TriggerKey
	if m.IsSequence() {
		trigger = m.TriggerSequence
	}
	return fmt.Sprintf("#%d (%s)", index, trigger)
}

func (m Mapping) IsSequence() bool {
	return strings.TrimSpace(m.TriggerSequence) != ""
}

func (m Mapping) IntervalOr(def int) time.Duration {
	if m.Interval != nil {
		return time.Duration(*m.Interval) * time.Millisecond
	}
	return time.Duration(def) * time.Millisecond
}

func (m Mapping) EventDurationOr(def int) time.Duration {
	if m.EventDuration != nil {
		return time.Duration(*m.EventDuration) * time.Millisecond
	}
	return time.Duration(def) * time.Millisecond
}

func (m Mapping) Turbo() bool {
	return m.TurboEnabled == nil || *m.TurboEnabled
}

func (m Mapping) SequenceWindow() time.Duration {
	if m.SequenceWindowMs <= 0 {
		return DefaultSequenceWindow * time.Millisecond
	}
	return time.Duration(m.SequenceWindowMs) * time.Millisecond
}

const DefaultMoveSpeed = 10

// Speed is the pixel step applied to mouse move and scroll targets.
func (m Mapping) Speed() int32 {
	if m.MoveSpeed <= 0 {
		return DefaultMoveSpeed
	}
	return m.MoveSpeed
}
