// Package state is the runtime hub shared by every poller. It holds the published lookup tables,
// the live pressed-key and combo state, and the mailboxes the configuration surface drains.
//
// Tables and the hot aggregates are immutable values behind atomic pointers. Reload builds a
// complete replacement off to the side and publishes it with one store per pointer, so readers
// observe either the old or the new value, never a mix.
package state

import (
	"slices"
	"sync"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/mapping"
	"github.com/neuroplastio/neio-turbo/internal/procinfo"
	"github.com/neuroplastio/neio-turbo/internal/sequence"
	"github.com/neuroplastio/neio-turbo/pkg/bus"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type ConfigError = mapping.ConfigError

// SequenceMatcher is the part of sequence.Matcher the state drives on reload.
type SequenceMatcher interface {
	RegisterSequence(s sequence.Sequence)
	ClearSequences()
	ClearHistory()
}

type Deps struct {
	Log       *zap.Logger
	Process   procinfo.Query
	Sequences SequenceMatcher
	Now       func() time.Time
}

type CaptureSelectors struct {
	Heuristic config.Heuristic
}

type State struct {
	log       *zap.Logger
	process   procinfo.Query
	sequences SequenceMatcher
	now       func() time.Time

	tables     *atomic.Pointer[mapping.Tables]
	generation *atomic.Uint64

	switchKey *atomic.Pointer[mapping.SwitchKey]
	whitelist *atomic.Pointer[[]string]
	procCache *atomic.Pointer[ProcessInfo]
	capture   *atomic.Pointer[CaptureSelectors]

	paused      *atomic.Bool
	capturing   *atomic.Bool
	keyboardSw  *SwitchLatch
	pressedKeys *xsync.MapOf[uint16, struct{}]
	combos      *xsync.MapOf[device.Key, ActiveCombo]

	activating         *atomic.Pointer[string]
	activationRequests *bus.Mailbox[ActivationRequest]
	activationData     *bus.Mailbox[ActivationData]
	captures           *bus.Mailbox[device.InputDevice]

	resetMu    sync.Mutex
	resetHooks []func()
}

// New validates cfg and builds the state. Nothing is constructed when cfg is rejected.
func New(cfg config.Config, deps Deps) (*State, error) {
	tables, err := mapping.Build(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Process == nil {
		deps.Process = procinfo.New()
	}
	if deps.Sequences == nil {
		deps.Sequences = sequence.NewMatcher()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &State{
		log:       deps.Log,
		process:   deps.Process,
		sequences: deps.Sequences,
		now:       deps.Now,

		tables:     atomic.NewPointer[mapping.Tables](nil),
		generation: atomic.NewUint64(0),
		switchKey:  atomic.NewPointer[mapping.SwitchKey](nil),
		whitelist:  atomic.NewPointer[[]string](nil),
		procCache:  atomic.NewPointer(&ProcessInfo{}),
		capture:    atomic.NewPointer[CaptureSelectors](nil),

		paused:      atomic.NewBool(false),
		capturing:   atomic.NewBool(false),
		keyboardSw:  NewSwitchLatch(),
		pressedKeys: xsync.NewMapOf[uint16, struct{}](),
		combos:      xsync.NewMapOf[device.Key, ActiveCombo](),

		activating:         atomic.NewPointer[string](nil),
		activationRequests: bus.NewMailbox[ActivationRequest](),
		activationData:     bus.NewMailbox[ActivationData](),
		captures:           bus.NewMailbox[device.InputDevice](),
	}
	s.publish(tables)
	return s, nil
}

// Reload replaces every derived table. A rejected config leaves the current state untouched.
func (s *State) Reload(cfg config.Config) error {
	tables, err := mapping.Build(cfg)
	if err != nil {
		s.log.Warn("Config rejected", zap.Error(err))
		return err
	}
	s.publish(tables)
	s.log.Info("Config reloaded",
		zap.Int("mappings", len(tables.Mappings)),
		zap.Int("sequences", len(tables.Sequences)),
		zap.Uint64("generation", s.generation.Load()),
	)
	return nil
}

func (s *State) publish(t *mapping.Tables) {
	s.tables.Store(t)
	sk := t.SwitchKey
	s.switchKey.Store(&sk)
	wl := t.Whitelist
	s.whitelist.Store(&wl)
	s.procCache.Store(&ProcessInfo{})
	s.capture.Store(&CaptureSelectors{Heuristic: t.Heuristic})

	s.sequences.ClearSequences()
	s.sequences.ClearHistory()
	for _, seq := range t.Sequences {
		s.sequences.RegisterSequence(seq)
	}
	s.generation.Inc()
	s.reset()
}

// OnReset registers fn to run whenever active combos are forgotten: on every reload and every
// pause toggle. Outputs started from those combos will never see a release, so fn must stop them.
func (s *State) OnReset(fn func()) {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	s.resetHooks = append(s.resetHooks, fn)
}

func (s *State) reset() {
	s.clearActiveCombos()
	s.resetMu.Lock()
	hooks := slices.Clone(s.resetHooks)
	s.resetMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Tables returns the published tables. The value must not be modified.
func (s *State) Tables() *mapping.Tables {
	return s.tables.Load()
}

// Generation changes on every publish. Pollers compare it to decide when to rebuild derived matchers.
func (s *State) Generation() uint64 {
	return s.generation.Load()
}

func (s *State) Lookup(dev device.InputDevice) (device.InputMappingInfo, bool) {
	return s.tables.Load().Lookup(dev)
}

// IsTurboEnabled defaults to true for devices without a mapping.
func (s *State) IsTurboEnabled(dev device.InputDevice) bool {
	return s.tables.Load().IsTurboEnabled(dev)
}

func (s *State) XInputCombos(t device.DeviceType) []device.InputDevice {
	return s.tables.Load().XInputCombos[t]
}

func (s *State) KeyCombosEndingWith(vk uint16) []device.InputDevice {
	return s.tables.Load().KeyCombos[vk]
}

func (s *State) IsSequenceTerminal(dev device.InputDevice) bool {
	return s.tables.Load().IsSequenceTerminal(dev)
}

func (s *State) CaptureSelectors() CaptureSelectors {
	return *s.capture.Load()
}
