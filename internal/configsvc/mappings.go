package configsvc

import (
	"fmt"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/mapping"
	"go.uber.org/zap"
)

// Reloader accepts a new mapping configuration or rejects it and keeps the previous one.
type Reloader interface {
	Reload(cfg config.Config) error
}

// WatchMappings reads the mapping file, creating it with defaults when missing, and reloads r on every change.
// A file that fails to parse or validate leaves the running tables untouched.
func WatchMappings(s *Service, path string, r Reloader) (config.Config, error) {
	log := s.log.With(zap.String("path", path))
	cfg, err := RegisterWriteable(s, path, config.Default(), func(cfg config.Config, err error) {
		if err != nil {
			log.Warn("Failed to read mapping config, keeping previous", zap.Error(err))
			return
		}
		if err := r.Reload(cfg); err != nil {
			return
		}
		log.Info("Mapping config reloaded", zap.Int("mappings", len(cfg.Mappings)))
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to register mapping config: %w", err)
	}
	return cfg, nil
}

// LoadMappings reads a mapping file and builds its tables without watching it.
func LoadMappings(path string) (config.Config, *mapping.Tables, error) {
	cfg, err := Load(path, config.Default())
	if err != nil {
		return cfg, nil, err
	}
	tables, err := mapping.Build(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, tables, nil
}
