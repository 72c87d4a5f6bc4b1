// Package hidsvc tracks raw HID devices, relays their reports to the activation channel and
// turns generic button bits into input events.
package hidsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/ownership"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

const (
	ownerSource = "hid"
	reportSize  = 64
)

var ErrDeviceNotFound = errors.New("device not found")

type Sink interface {
	Dispatch(ev device.InputEvent)
}

type Arbiter interface {
	ClaimDevice(id ownership.DeviceID, source string) bool
	ReleaseDevice(id ownership.DeviceID)
}

var defaultOptions = serviceOptions{
	scanInterval: 2 * time.Second,
	pollInterval: 5 * time.Millisecond,
	readTimeout:  50 * time.Millisecond,
}

type serviceOptions struct {
	scanInterval time.Duration
	pollInterval time.Duration
	readTimeout  time.Duration
}

type Option func(*serviceOptions)

// WithScanInterval sets how often devices are enumerated.
func WithScanInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.scanInterval = d
	}
}

// WithPollInterval sets how often activation requests are picked up.
func WithPollInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.pollInterval = d
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.readTimeout = d
	}
}

type Service struct {
	log     *zap.Logger
	db      *badger.DB
	backend Backend
	state   *state.State
	arbiter Arbiter
	sink    Sink
	options serviceOptions
	now     func() time.Time
	ready   chan struct{}

	connected *xsync.MapOf[Address, DeviceInfo]
	opened    *xsync.MapOf[Address, *openDevice]
}

type openDevice struct {
	info     DeviceInfo
	typ      device.DeviceType
	typeHash uint64
	dev      Device
	cancel   context.CancelFunc
	done     chan struct{}

	// owned by the read goroutine
	last    []byte
	pressed map[uint16]struct{}
	latch   *state.SwitchLatch
}

type HidInputDevice struct {
	Address     Address           `json:"address"`
	Name        string            `json:"name"`
	Type        device.DeviceType `json:"type"`
	FirstSeenAt time.Time         `json:"firstSeenAt"`
	LastSeenAt  time.Time         `json:"lastSeenAt"`
}

func New(db *badger.DB, log *zap.Logger, st *state.State, backend Backend, arbiter Arbiter, sink Sink, now func() time.Time, opts ...Option) *Service {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:       log,
		db:        db,
		backend:   backend,
		state:     st,
		arbiter:   arbiter,
		sink:      sink,
		options:   options,
		now:       now,
		ready:     make(chan struct{}),
		connected: xsync.NewMapOf[Address, DeviceInfo](),
		opened:    xsync.NewMapOf[Address, *openDevice](),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start enumerates devices periodically and relays activation requests until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	defer s.closeAll()
	if err := s.Scan(ctx); err != nil {
		s.log.Warn("HID enumeration failed", zap.Error(err))
	}
	close(s.ready)
	s.log.Info("HID service started")

	scan := time.NewTicker(s.options.scanInterval)
	defer scan.Stop()
	poll := time.NewTicker(s.options.pollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-scan.C:
			if err := s.Scan(ctx); err != nil {
				s.log.Warn("HID enumeration failed", zap.Error(err))
			}
		case <-poll.C:
			s.relay(ctx)
		}
	}
}

// Scan refreshes the connected set and opens the devices that currently have work to do.
func (s *Service) Scan(ctx context.Context) error {
	if err := s.Refresh(); err != nil {
		return err
	}
	s.sync(ctx)
	return nil
}

// Refresh enumerates devices and records them in the registry without opening any.
func (s *Service) Refresh() error {
	infos, err := s.backend.Enumerate()
	if err != nil {
		return fmt.Errorf("failed to enumerate HID devices: %w", err)
	}
	seen := make(map[Address]struct{}, len(infos))
	for _, info := range infos {
		addr := info.Address()
		seen[addr] = struct{}{}
		if _, ok := s.connected.Load(addr); ok {
			continue
		}
		dev, err := s.initializeInputDevice(info)
		if err != nil {
			s.log.Error("failed to initialize device", zap.Error(err))
			continue
		}
		s.connected.Store(addr, info)
		s.log.Debug("input connected", zap.Stringer("addr", addr), zap.String("name", dev.Name), zap.Time("firstSeenAt", dev.FirstSeenAt))
	}
	s.connected.Range(func(addr Address, _ DeviceInfo) bool {
		if _, ok := seen[addr]; !ok {
			s.connected.Delete(addr)
			s.close(addr)
			s.log.Debug("input disconnected", zap.Stringer("addr", addr))
		}
		return true
	})
	return nil
}

// sync opens devices with generic mappings or a pending activation and closes the rest.
func (s *Service) sync(ctx context.Context) {
	tables := s.state.Tables()
	sw := s.state.SwitchKey()
	s.connected.Range(func(addr Address, info DeviceInfo) bool {
		typ, want := info.Type(), s.state.IsActivating(addr.String())
		for _, t := range info.Types() {
			if len(tables.Generic[t]) > 0 || (sw.Device.Kind() == device.KindGeneric && sw.Device.Type() == t) {
				typ, want = t, true
				break
			}
		}
		h, opened := s.opened.Load(addr)
		switch {
		case want && opened && h.typ != typ:
			s.close(addr)
			s.open(ctx, info, typ)
		case want && !opened:
			s.open(ctx, info, typ)
		case !want && opened:
			s.close(addr)
		}
		return true
	})
}

func (s *Service) relay(ctx context.Context) {
	for {
		req, ok := s.state.TryRecvActivationRequest()
		if !ok {
			return
		}
		addr, err := ParseAddress(req.Handle)
		if err != nil {
			s.log.Warn("Invalid activation request", zap.Error(err))
			continue
		}
		info, ok := s.connected.Load(addr)
		if !ok {
			s.log.Warn("Activation requested for unknown device", zap.Stringer("addr", addr))
			continue
		}
		if _, ok := s.opened.Load(addr); !ok {
			s.open(ctx, info, info.Type())
		}
	}
}

func (s *Service) open(ctx context.Context, info DeviceInfo, typ device.DeviceType) {
	addr := info.Address()
	if !s.arbiter.ClaimDevice(info.ownerID(), ownerSource) {
		s.log.Debug("device is owned by another source", zap.Stringer("addr", addr))
		return
	}
	dev, err := s.backend.Open(info)
	if err != nil {
		s.arbiter.ReleaseDevice(info.ownerID())
		s.log.Error("failed to open device", zap.Stringer("addr", addr), zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &openDevice{
		info:     info,
		typ:      typ,
		typeHash: typ.Hash(),
		dev:      dev,
		cancel:   cancel,
		done:     make(chan struct{}),
		pressed:  make(map[uint16]struct{}),
		latch:    state.NewSwitchLatch(),
	}
	s.opened.Store(addr, h)
	s.log.Debug("device opened", zap.Stringer("addr", addr), zap.Stringer("type", typ))
	go s.readLoop(ctx, h)
}

func (s *Service) close(addr Address) {
	h, ok := s.opened.LoadAndDelete(addr)
	if !ok {
		return
	}
	h.cancel()
	<-h.done
}

func (s *Service) closeAll() {
	s.opened.Range(func(addr Address, _ *openDevice) bool {
		s.close(addr)
		return true
	})
}

func (s *Service) readLoop(ctx context.Context, h *openDevice) {
	defer close(h.done)
	defer s.shutdown(h)
	addr := h.info.Address()
	handle := addr.String()
	buf := make([]byte, reportSize)
	for ctx.Err() == nil {
		n, err := h.dev.ReadWithTimeout(buf, s.options.readTimeout)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			s.log.Warn("HID read failed", zap.Stringer("addr", addr), zap.Error(err))
			s.opened.Compute(addr, func(old *openDevice, loaded bool) (*openDevice, bool) {
				return old, !loaded || old == h
			})
			return
		}
		report := bytes.Clone(buf[:n])
		if s.state.IsActivating(handle) {
			s.state.SendActivationData(handle, report)
			continue
		}
		s.handleReport(h, report)
	}
}

func (s *Service) shutdown(h *openDevice) {
	s.releaseAll(h)
	if err := h.dev.Close(); err != nil {
		s.log.Warn("failed to close device", zap.Error(err))
	}
	s.arbiter.ReleaseDevice(h.info.ownerID())
}

func (s *Service) handleReport(h *openDevice, report []byte) {
	prev := h.last
	h.last = report
	if prev == nil {
		return
	}
	mapped := s.state.Tables().Generic[h.typ]
	sw := s.state.SwitchKey()
	for _, c := range changedBits(prev, report) {
		if sw.MatchGeneric(h.typeHash, c.bit) {
			if h.latch.Update(c.on) && s.state.TogglePause() {
				s.releaseAll(h)
			}
			continue
		}
		if !slices.Contains(mapped, c.bit) {
			continue
		}
		dev := device.GenericDevice(h.typ, c.bit)
		if c.on {
			if s.state.IsPaused() {
				continue
			}
			h.pressed[c.bit] = struct{}{}
			s.sink.Dispatch(device.PressedEvent(dev))
			continue
		}
		if _, ok := h.pressed[c.bit]; ok {
			delete(h.pressed, c.bit)
			s.sink.Dispatch(device.ReleasedEvent(dev))
		}
	}
}

func (s *Service) releaseAll(h *openDevice) {
	for bit := range h.pressed {
		s.sink.Dispatch(device.ReleasedEvent(device.GenericDevice(h.typ, bit)))
	}
	clear(h.pressed)
}

// Teach activates addr and waits for the first button bit that turns on after the first report.
func (s *Service) Teach(ctx context.Context, addr Address) (device.InputDevice, error) {
	info, ok := s.connected.Load(addr)
	if !ok {
		return device.InputDevice{}, ErrDeviceNotFound
	}
	handle := addr.String()
	s.state.RequestActivation(state.ActivationRequest{Handle: handle})
	defer s.state.ClearActivating()

	ticker := time.NewTicker(s.options.pollInterval)
	defer ticker.Stop()
	var baseline []byte
	for {
		select {
		case <-ctx.Done():
			return device.InputDevice{}, ctx.Err()
		case <-ticker.C:
		}
		for {
			data, ok := s.state.TryRecvActivationData(handle)
			if !ok {
				break
			}
			if baseline == nil {
				baseline = data
				continue
			}
			if bit, ok := FirstChangedBit(baseline, data); ok {
				return device.GenericDevice(info.Type(), bit), nil
			}
		}
	}
}

func (s *Service) inputDeviceKey(address Address) []byte {
	return []byte(fmt.Sprintf("hid/inputs/%s", address))
}

func (s *Service) initializeInputDevice(info DeviceInfo) (HidInputDevice, error) {
	var dev HidInputDevice
	now := s.now()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := s.inputDeviceKey(info.Address())
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			dev = HidInputDevice{}
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal device: %w", err)
			}
		}
		dev.Address = info.Address()
		dev.Name = info.Name()
		dev.Type = info.Type()
		if dev.FirstSeenAt.IsZero() {
			dev.FirstSeenAt = now
		}
		dev.LastSeenAt = now
		b, err := json.Marshal(dev)
		if err != nil {
			return fmt.Errorf("failed to marshal device: %w", err)
		}
		return txn.Set(key, b)
	})
	if err != nil {
		return HidInputDevice{}, fmt.Errorf("failed to fetch device: %w", err)
	}
	return dev, nil
}

// ListInputDevices returns every device ever seen, connected or not.
func (s *Service) ListInputDevices() ([]HidInputDevice, error) {
	var devices []HidInputDevice
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("hid/inputs/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var dev HidInputDevice
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal device: %w", err)
			}
			devices = append(devices, dev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Service) GetInputDevice(addr Address) (HidInputDevice, error) {
	var dev HidInputDevice
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.inputDeviceKey(addr))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dev)
		})
	})
	if err != nil {
		return HidInputDevice{}, err
	}
	return dev, nil
}

// IsConnected reports whether addr was present in the last enumeration.
func (s *Service) IsConnected(addr Address) bool {
	_, ok := s.connected.Load(addr)
	return ok
}
