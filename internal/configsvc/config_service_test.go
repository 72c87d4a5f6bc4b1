package configsvc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neuroplastio/neio-turbo/internal/config"
	"github.com/neuroplastio/neio-turbo/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingReloader struct {
	mu      sync.Mutex
	configs []config.Config
}

func (r *recordingReloader) Reload(cfg config.Config) error {
	if _, err := mapping.Build(cfg); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	return nil
}

func (r *recordingReloader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

func (r *recordingReloader) last() config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configs[len(r.configs)-1]
}

func startService(t *testing.T) *Service {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(zap.NewNop(), WithDebounce(10*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	<-s.Ready()
	return s
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 25\nmappings:\n  - triggerKey: A\n    targetKeys: [B]\n"), 0644))

	cfg, err := Load(path, config.Default())
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Interval)
	assert.Equal(t, config.Default().EventDuration, cfg.EventDuration)
	require.Len(t, cfg.Mappings, 1)
	assert.Equal(t, "A", cfg.Mappings[0].TriggerKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"), config.Default())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMappingsRejectsBadName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yml")
	require.NoError(t, os.WriteFile(path, []byte("mappings:\n  - triggerKey: NotAKey\n    targetKeys: [B]\n"), 0644))

	_, tables, err := LoadMappings(path)
	assert.Nil(t, tables)
	var cfgErr *mapping.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "NotAKey", cfgErr.Value)
}

func TestRegisterBeforeStart(t *testing.T) {
	s := New(zap.NewNop())
	path := filepath.Join(t.TempDir(), "mappings.yml")
	require.NoError(t, Write(path, config.Default()))
	_, err := Register(s, path, config.Default(), func(config.Config, error) {})
	assert.Error(t, err)
}

func TestWatchMappingsWritesDefaultAndReloads(t *testing.T) {
	s := startService(t)
	path := filepath.Join(t.TempDir(), "conf", "mappings.yml")
	r := &recordingReloader{}

	cfg, err := WatchMappings(s, path, r)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("switchKey: F12\nmappings:\n  - triggerKey: A\n    targetKeys: [B]\n"), 0644))
	assert.Eventually(t, func() bool { return r.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "F12", r.last().SwitchKey)

	n := r.count()
	require.NoError(t, os.WriteFile(path, []byte("mappings:\n  - triggerKey: NotAKey\n    targetKeys: [B]\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, r.count())
}
