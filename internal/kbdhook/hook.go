package kbdhook

import (
	"context"
	"errors"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/keys"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrUnsupported = errors.New("keyboard hook is not supported on this platform")

// Event is one key or mouse button edge. Mouse is zero for keyboard events.
type Event struct {
	VK    uint16
	Mouse device.MouseButton
	Down  bool
}

// Source delivers raw events until ctx is done.
type Source interface {
	Run(ctx context.Context, events chan<- Event) error
}

type Option func(h *Hook)

func WithTickInterval(d time.Duration) Option {
	return func(h *Hook) {
		h.tickInterval = d
	}
}

// Hook serializes a source into the handler and runs the per-tick chord cleanup.
type Hook struct {
	log          *zap.Logger
	source       Source
	handler      *Handler
	tickInterval time.Duration

	// left and right modifiers currently held, owned by the handler goroutine
	sided map[uint16]bool
}

func NewHook(log *zap.Logger, source Source, handler *Handler, opts ...Option) *Hook {
	h := &Hook{
		log:          log,
		source:       source,
		handler:      handler,
		tickInterval: 5 * time.Millisecond,
		sided:        make(map[uint16]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start returns nil without running when the platform has no source.
func (h *Hook) Start(ctx context.Context) error {
	events := make(chan Event, 256)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := h.source.Run(ctx, events)
		if errors.Is(err, ErrUnsupported) {
			h.log.Warn("Keyboard hook unavailable", zap.Error(err))
			return nil
		}
		return err
	})
	group.Go(func() error {
		ticker := time.NewTicker(h.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				h.handle(ev)
			case <-ticker.C:
				h.handler.Tick()
			}
		}
	})
	return group.Wait()
}

func (h *Hook) handle(ev Event) {
	if ev.Mouse == 0 && !h.foldModifier(&ev) {
		return
	}
	switch {
	case ev.Mouse != 0 && ev.Down:
		h.handler.MouseDown(ev.Mouse)
	case ev.Mouse != 0:
		h.handler.MouseUp(ev.Mouse)
	case ev.Down:
		h.handler.KeyDown(ev.VK)
	default:
		h.handler.KeyUp(ev.VK)
	}
}

// foldModifier rewrites a left or right modifier edge to its side-less key. Shift goes down
// with the first side pressed and up with the last side released; edges in between are dropped.
func (h *Hook) foldModifier(ev *Event) bool {
	vk, ok := keys.SideLessModifier(ev.VK)
	if !ok {
		return true
	}
	if ev.Down {
		h.sided[ev.VK] = true
	} else {
		delete(h.sided, ev.VK)
	}
	if h.sided[ev.VK^1] {
		return false
	}
	ev.VK = vk
	return true
}
