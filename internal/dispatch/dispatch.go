// Package dispatch turns Pressed and Released events into timed output: one shot, turbo repeat,
// simultaneous bursts and timed sequences, run on a fixed pool of workers.
package dispatch

import (
	"context"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/sequence"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	queueSize   = 64
	minInterval = time.Millisecond
)

// Recorder is the part of the sequence matcher the dispatcher feeds.
type Recorder interface {
	RecordInput(dev device.InputDevice, at time.Time)
	TryMatchWithSequence() (sequence.Match, bool)
}

type Option func(d *Dispatcher)

func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

type job struct {
	ctx    context.Context
	device device.InputDevice
	info   device.InputMappingInfo
}

type Dispatcher struct {
	log       *zap.Logger
	state     *state.State
	sequences Recorder
	emitter   Emitter
	now       func() time.Time
	workers   int

	ctx     context.Context
	cancel  context.CancelFunc
	jobs    chan job
	running *xsync.MapOf[device.Key, context.CancelFunc]
}

func New(log *zap.Logger, st *state.State, sequences Recorder, emitter Emitter, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		log:       log,
		state:     st,
		sequences: sequences,
		emitter:   emitter,
		now:       time.Now,
		workers:   st.Tables().Workers,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(chan job, queueSize),
		running:   xsync.NewMapOf[device.Key, context.CancelFunc](),
	}
	for _, opt := range opts {
		opt(d)
	}
	st.OnReset(d.ClearCache)
	return d
}

// Start runs the worker pool until ctx is done. Running outputs are cancelled on exit.
func (d *Dispatcher) Start(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		group.Go(func() error {
			d.work(ctx)
			return nil
		})
	}
	d.log.Info("Dispatcher started", zap.Int("workers", d.workers))
	<-ctx.Done()
	d.cancel()
	d.ClearCache()
	return group.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.jobs:
			d.run(j)
		}
	}
}

// Dispatch never blocks. A press is dropped when the queue is full.
func (d *Dispatcher) Dispatch(ev device.InputEvent) {
	switch ev.Kind {
	case device.Pressed:
		d.press(ev.Device)
	case device.Released:
		if cancel, ok := d.running.LoadAndDelete(ev.Device.Key()); ok {
			cancel()
		}
	}
}

func (d *Dispatcher) press(dev device.InputDevice) {
	if d.state.IsPaused() {
		return
	}
	info, ok := d.state.Lookup(dev)
	if !ok {
		return
	}
	if info.IsSequence {
		d.sequences.RecordInput(dev, d.now())
		return
	}
	if d.state.IsSequenceTerminal(dev) {
		d.sequences.RecordInput(dev, d.now())
		if _, matched := d.sequences.TryMatchWithSequence(); !matched {
			return
		}
	}
	if !d.state.IsProcessWhitelisted() {
		return
	}
	ctx, cancel := context.WithCancel(d.ctx)
	if prev, loaded := d.running.LoadAndStore(dev.Key(), cancel); loaded {
		prev()
	}
	select {
	case d.jobs <- job{ctx: ctx, device: dev, info: info}:
	default:
		d.running.Delete(dev.Key())
		cancel()
		d.log.Warn("Dispatch queue full", zap.Stringer("device", dev))
	}
}

// ClearCache stops every running output. The state calls it on pause toggles and reloads.
func (d *Dispatcher) ClearCache() {
	d.running.Range(func(key device.Key, cancel context.CancelFunc) bool {
		cancel()
		d.running.Delete(key)
		return true
	})
}

func (d *Dispatcher) run(j job) {
	if j.ctx.Err() != nil {
		return
	}
	if !d.state.IsTurboEnabled(j.device) {
		d.fire(j.ctx, j.info.Target, j.info.EventDuration)
		return
	}
	interval := max(j.info.Interval, minInterval)
	for {
		d.fire(j.ctx, j.info.Target, j.info.EventDuration)
		if !sleep(j.ctx, interval) {
			return
		}
	}
}

// fire performs one activation of action, holding keys and buttons for hold.
func (d *Dispatcher) fire(ctx context.Context, action device.OutputAction, hold time.Duration) {
	switch action.Kind {
	case device.ActionMouseMove, device.ActionMouseScroll:
		d.emit(Output{Action: action, Down: true})
	case device.ActionKey, device.ActionMouse:
		d.emit(Output{Action: action, Down: true})
		sleep(ctx, hold)
		d.emit(Output{Action: action, Down: false})
	case device.ActionMultiple:
		for _, a := range action.Actions {
			d.down(a)
		}
		sleep(ctx, hold)
		for i := len(action.Actions) - 1; i >= 0; i-- {
			d.up(action.Actions[i])
		}
	case device.ActionSequential:
		for i, a := range action.Actions {
			if i > 0 && !sleep(ctx, action.Interval) {
				return
			}
			d.fire(ctx, a, hold)
		}
	}
}

func (d *Dispatcher) down(a device.OutputAction) {
	switch a.Kind {
	case device.ActionMultiple, device.ActionSequential:
		for _, sub := range a.Actions {
			d.down(sub)
		}
	default:
		d.emit(Output{Action: a, Down: true})
	}
}

func (d *Dispatcher) up(a device.OutputAction) {
	switch a.Kind {
	case device.ActionMouseMove, device.ActionMouseScroll:
	case device.ActionMultiple, device.ActionSequential:
		for i := len(a.Actions) - 1; i >= 0; i-- {
			d.up(a.Actions[i])
		}
	default:
		d.emit(Output{Action: a, Down: false})
	}
}

func (d *Dispatcher) emit(out Output) {
	if err := d.emitter.Emit(out); err != nil {
		d.log.Debug("Emit failed", zap.Stringer("output", out), zap.Error(err))
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
