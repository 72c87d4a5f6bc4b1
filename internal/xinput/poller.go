package xinput

import (
	"context"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/ownership"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"github.com/neuroplastio/neio-turbo/pkg/bits"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const ownerSource = "xinput"

// Sink receives the press and release transitions of matched combos.
type Sink interface {
	Dispatch(ev device.InputEvent)
}

type Arbiter interface {
	ClaimDevice(id ownership.DeviceID, source string) bool
	ReleaseDevice(id ownership.DeviceID)
}

// Starter is implemented by readers that need a background loop.
type Starter interface {
	Start(ctx context.Context) error
}

type Option func(p *Poller)

func WithPollInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.pollInterval = d
	}
}

func WithNow(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

type Poller struct {
	log     *zap.Logger
	state   *state.State
	reader  Reader
	arbiter Arbiter
	sink    Sink

	pollInterval time.Duration
	now          func() time.Time

	slots [MaxControllers]*slot
}

type slot struct {
	index     uint32
	connected bool
	id        ownership.DeviceID
	devType   device.DeviceType
	typeHash  uint64

	last       Snapshot
	bitset     bits.Set32
	active     []device.InputDevice
	matcher    *Matcher
	generation uint64
	capture    CaptureBuffer
	latch      *state.SwitchLatch
}

func NewPoller(log *zap.Logger, st *state.State, reader Reader, arbiter Arbiter, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		log:          log,
		state:        st,
		reader:       reader,
		arbiter:      arbiter,
		sink:         sink,
		pollInterval: time.Millisecond,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.slots {
		p.slots[i] = &slot{index: uint32(i), latch: state.NewSwitchLatch()}
	}
	return p
}

// Run polls every slot each interval until ctx is done. Slots still connected on exit
// release their ownership claims.
func (p *Poller) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	if starter, ok := p.reader.(Starter); ok {
		group.Go(func() error {
			return starter.Start(ctx)
		})
	}
	group.Go(func() error {
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		defer p.disconnectAll()
		p.log.Info("XInput poller started", zap.Duration("interval", p.pollInterval))
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				p.Tick()
			}
		}
	})
	return group.Wait()
}

// Tick polls all slots once.
func (p *Poller) Tick() {
	for _, sl := range p.slots {
		p.poll(sl)
	}
}

func (p *Poller) poll(sl *slot) {
	snap, err := p.reader.GetState(sl.index)
	if err != nil {
		if sl.connected {
			p.disconnect(sl, err)
		}
		return
	}
	if !sl.connected && !p.connect(sl) {
		return
	}
	sl.last = snap
	set, ids := Extract(snap.Gamepad)

	if p.state.IsCaptureMode() {
		p.captureTick(sl, set, ids)
		sl.bitset = set
		return
	}
	if sl.capture.Len() > 0 {
		sl.capture.Reset()
	}
	if set == sl.bitset {
		return
	}

	if sl.latch.Update(p.state.SwitchKey().MatchXInput(set, sl.typeHash)) {
		if p.state.TogglePause() {
			p.release(sl, sl.active)
			sl.active = nil
		}
	}
	if p.state.IsPaused() {
		sl.bitset = set
		return
	}

	if gen := p.state.Generation(); sl.matcher == nil || sl.generation != gen {
		sl.matcher = NewMatcher(p.state.XInputCombos(sl.devType))
		sl.generation = gen
	}
	matched := sl.matcher.Match(set)
	pressed, released := diffCombos(sl.active, matched)
	p.release(sl, released)
	for _, combo := range pressed {
		p.sink.Dispatch(device.PressedEvent(combo))
	}
	sl.active = matched
	sl.bitset = set
}

func (p *Poller) release(sl *slot, combos []device.InputDevice) {
	for _, combo := range combos {
		p.sink.Dispatch(device.ReleasedEvent(combo))
	}
}

func (p *Poller) connect(sl *slot) bool {
	caps, err := p.reader.GetCapabilities(sl.index)
	if err != nil {
		return false
	}
	id := deviceID(caps)
	if !p.arbiter.ClaimDevice(id, ownerSource) {
		return false
	}
	sl.connected = true
	sl.id = id
	sl.devType = device.Gamepad(id.VendorID)
	sl.typeHash = sl.devType.Hash()
	p.log.Info("Controller connected",
		zap.Uint32("slot", sl.index),
		zap.Stringer("device", id),
	)
	return true
}

func (p *Poller) disconnect(sl *slot, reason error) {
	p.release(sl, sl.active)
	p.arbiter.ReleaseDevice(sl.id)
	p.log.Info("Controller disconnected",
		zap.Uint32("slot", sl.index),
		zap.Stringer("device", sl.id),
		zap.Error(reason),
	)
	*sl = slot{index: sl.index, latch: state.NewSwitchLatch()}
}

func (p *Poller) disconnectAll() {
	for _, sl := range p.slots {
		if sl.connected {
			p.disconnect(sl, context.Canceled)
		}
	}
}

func (p *Poller) captureTick(sl *slot, set bits.Set32, ids []uint8) {
	if !set.IsEmpty() {
		sl.capture.Add(Frame{ID: uint32(set), At: p.now(), IDs: ids})
		return
	}
	if sl.capture.Len() == 0 {
		return
	}
	best, _ := SelectBest(p.state.CaptureSelectors().Heuristic, sl.capture.Frames())
	sl.capture.Reset()
	captured := device.XInputCombo(sl.devType, best.IDs...)
	p.state.SendCapture(captured)
	p.log.Info("Combo captured", zap.Uint32("slot", sl.index), zap.Stringer("combo", captured))
}
