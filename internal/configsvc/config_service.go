// Package configsvc provides a service for watching configuration files and notifying clients of changes.
package configsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ghodss/yaml"
	"go.uber.org/zap"
)

type subscriber func(event fsnotify.Event)

type Option func(*Service)

// WithDebounce collapses bursts of writes to one reload. Editors often truncate and write in separate steps.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = d
	}
}

type Service struct {
	log      *zap.Logger
	debounce time.Duration

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	subscribers []subscriber
	ready       chan struct{}
}

func New(log *zap.Logger, opts ...Option) *Service {
	svc := &Service{
		log:      log,
		debounce: 100 * time.Millisecond,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	s.watcher = watcher
	defer s.watcher.Close()
	close(s.ready)
	s.log.Info("Config service started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.mu.Lock()
			for _, sub := range s.subscribers {
				sub(event)
			}
			s.mu.Unlock()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", zap.Error(err))
		}
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Register registers a configuration file to watch for changes and calls fn with the new configuration.
// It returns the initial configuration and an error if the file cannot be read.
// Service instance is used as a parameter instead of the method receiver to enable generic types.
func Register[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, err := Load(absPath, def)
	if err != nil {
		return def, err
	}
	if err := watch(s, absPath, def, fn); err != nil {
		return def, err
	}
	return config, nil
}

// RegisterWriteable works like Register but writes def to path first if the file does not exist.
func RegisterWriteable[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, err := Load(absPath, def)
	switch {
	case errors.Is(err, os.ErrNotExist):
		err = Write(absPath, def)
		if err != nil {
			return def, fmt.Errorf("failed to initialize config: %w", err)
		}
		s.log.Info("Default config written", zap.String("path", absPath))
		config = def
	case err != nil:
		return def, err
	}
	if err := watch(s, absPath, def, fn); err != nil {
		return def, err
	}
	return config, nil
}

func watchFunc[T any](s *Service, absPath string, def T, fn func(config T, err error)) subscriber {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		newConfig, err := Load(absPath, def)
		fn(newConfig, err)
	}
	return func(event fsnotify.Event) {
		if event.Name != absPath || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
			return
		}
		if s.debounce <= 0 {
			reload()
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.debounce, reload)
	}
}

func watch[T any](s *Service, absPath string, def T, fn func(config T, err error)) error {
	select {
	case <-s.ready:
	default:
		return errors.New("config service is not started")
	}
	err := s.watcher.Add(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("failed to add path to watcher %s: %w", absPath, err)
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, watchFunc(s, absPath, def, fn))
	s.mu.Unlock()
	return nil
}

// Load reads a YAML file into a copy of def. Keys missing from the file keep their default.
func Load[T any](path string, def T) (T, error) {
	yamlB, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read config file: %w", err)
	}

	jsonB, err := yaml.YAMLToJSON(yamlB)
	if err != nil {
		return def, fmt.Errorf("failed to convert yaml to json: %w", err)
	}
	err = json.Unmarshal(jsonB, &def)
	if err != nil {
		return def, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return def, nil
}

func Write[T any](path string, config T) error {
	jsonB, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	yamlB, err := yaml.JSONToYAML(jsonB)
	if err != nil {
		return fmt.Errorf("failed to convert json to yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	err = os.WriteFile(path, yamlB, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
