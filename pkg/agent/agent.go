package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/configsvc"
	"github.com/neuroplastio/neio-turbo/internal/device"
	"github.com/neuroplastio/neio-turbo/internal/dispatch"
	"github.com/neuroplastio/neio-turbo/internal/hidsvc"
	"github.com/neuroplastio/neio-turbo/internal/kbdhook"
	"github.com/neuroplastio/neio-turbo/internal/ownership"
	"github.com/neuroplastio/neio-turbo/internal/procinfo"
	"github.com/neuroplastio/neio-turbo/internal/sequence"
	"github.com/neuroplastio/neio-turbo/internal/state"
	"github.com/neuroplastio/neio-turbo/internal/xinput"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Agent owns the dependency graph. Components are built on first use, so commands that only
// need the device registry never open a controller or a keyboard.
type Agent struct {
	config    Config
	log       *zap.Logger
	container *dig.Container
	closers   []func() error
}

type services struct {
	dig.In

	ConfigSvc  *configsvc.Service
	State      *state.State
	Dispatcher *dispatch.Dispatcher
	Poller     *xinput.Poller
	Hook       *kbdhook.Hook
	HID        *hidsvc.Service
}

func NewAgent(cfg Config) (*Agent, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		config:    cfg,
		log:       logger,
		container: dig.New(),
	}
	providers := []any{
		func() Config { return a.config },
		func() *zap.Logger { return a.log },
		a.openDB,
		func(log *zap.Logger) *configsvc.Service {
			return configsvc.New(log.Named("config"))
		},
		sequence.NewMatcher,
		func() procinfo.Query { return procinfo.New() },
		a.newState,
		ownership.NewArbiter,
		func(log *zap.Logger) dispatch.Emitter {
			return dispatch.NewLogEmitter(log.Named("emit"))
		},
		func(log *zap.Logger, st *state.State, seq *sequence.Matcher, emitter dispatch.Emitter) *dispatch.Dispatcher {
			return dispatch.New(log.Named("dispatch"), st, seq, emitter, dispatch.WithWorkers(st.Tables().Workers))
		},
		func(log *zap.Logger) (xinput.Reader, error) {
			return xinput.NewSystemReader(log.Named("xinput.reader"))
		},
		func(cfg Config, log *zap.Logger, st *state.State, reader xinput.Reader, arbiter *ownership.Arbiter, d *dispatch.Dispatcher) *xinput.Poller {
			return xinput.NewPoller(log.Named("xinput"), st, reader, arbiter, d, xinput.WithPollInterval(cfg.PollInterval))
		},
		func(log *zap.Logger, st *state.State, d *dispatch.Dispatcher) *kbdhook.Hook {
			handler := kbdhook.NewHandler(log.Named("kbd"), st, d)
			return kbdhook.NewHook(log.Named("kbd"), kbdhook.NewSystemSource(log.Named("kbd.source")), handler)
		},
		func() (hidsvc.Backend, error) {
			return hidsvc.NewHIDAPIBackend()
		},
		func(cfg Config, db *badger.DB, log *zap.Logger, st *state.State, backend hidsvc.Backend, arbiter *ownership.Arbiter, d *dispatch.Dispatcher) *hidsvc.Service {
			return hidsvc.New(db, log.Named("hid"), st, backend, arbiter, d, time.Now, hidsvc.WithScanInterval(cfg.HIDScanInterval))
		},
	}
	for _, p := range providers {
		if err := a.container.Provide(p); err != nil {
			return nil, fmt.Errorf("failed to register provider: %w", err)
		}
	}
	return a, nil
}

func newLogger(level string) (*zap.Logger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		loggerConfig.Level = lvl
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func (a *Agent) openDB() (*badger.DB, error) {
	dbOptions := badger.DefaultOptions(filepath.Join(a.config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: a.log.Named("badger")}

	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// newState builds the runtime state from the mapping file. A missing file means no mappings yet;
// Run writes the defaults out once the watcher is up.
func (a *Agent) newState(log *zap.Logger, seq *sequence.Matcher, proc procinfo.Query) (*state.State, error) {
	cfg, err := configsvc.Load(a.config.MappingsPath, config.Default())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return state.New(cfg, state.Deps{
		Log:       log.Named("state"),
		Process:   proc,
		Sequences: seq,
	})
}

func (a *Agent) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}

// Run starts the agent and blocks until the context is cancelled.
// Agent startup will fail if the mapping configuration is not valid.
// In case configuration becomes invalid after the startup, it will remain running with the last valid configuration.
func (a *Agent) Run(ctx context.Context) error {
	return a.container.Invoke(func(s services) error {
		err := a.run(ctx, s, nil)
		if err != nil {
			return fmt.Errorf("agent failed: %w", err)
		}
		return nil
	})
}

// run starts every service and, once the mapping file is watched, calls fn if there is one.
// The services stop when fn returns or ctx is done.
func (a *Agent) run(ctx context.Context, s services, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.ConfigSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return s.Dispatcher.Start(groupCtx)
	})
	group.Go(func() error {
		return s.Poller.Run(groupCtx)
	})
	group.Go(func() error {
		return s.Hook.Start(groupCtx)
	})
	group.Go(func() error {
		return s.HID.Start(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return nil
		case <-s.ConfigSvc.Ready():
		}
		_, err := configsvc.WatchMappings(s.ConfigSvc, a.config.MappingsPath, s.State)
		if err != nil {
			return err
		}
		if fn == nil {
			return nil
		}
		defer cancel()
		return fn(groupCtx)
	})
	return group.Wait()
}

// Capture runs the agent in capture mode and returns the first input the user performs.
func (a *Agent) Capture(ctx context.Context) (device.InputDevice, error) {
	var captured device.InputDevice
	err := a.container.Invoke(func(s services) error {
		return a.run(ctx, s, func(ctx context.Context) error {
			s.State.SetCaptureMode(true)
			defer s.State.SetCaptureMode(false)
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
				if dev, ok := s.State.TryRecvCapture(); ok {
					captured = dev
					return nil
				}
			}
		})
	})
	return captured, err
}

// Teach waits for a button press on a raw HID device and returns it as a generic trigger.
func (a *Agent) Teach(ctx context.Context, addr hidsvc.Address) (device.InputDevice, error) {
	var taught device.InputDevice
	err := a.container.Invoke(func(s services) error {
		return a.run(ctx, s, func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.HID.Ready():
			}
			dev, err := s.HID.Teach(ctx, addr)
			taught = dev
			return err
		})
	})
	return taught, err
}

func (a *Agent) HID() (*hidsvc.Service, error) {
	var svc *hidsvc.Service
	err := a.container.Invoke(func(s *hidsvc.Service) {
		svc = s
	})
	return svc, err
}

// Controllers lists the XInput controllers connected right now.
func (a *Agent) Controllers() ([]xinput.ControllerInfo, error) {
	var out []xinput.ControllerInfo
	err := a.container.Invoke(func(r xinput.Reader) {
		out = xinput.EnumerateDevices(r)
	})
	return out, err
}
