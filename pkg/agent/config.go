package agent

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "NEIO_TURBO"

// Config is loaded from agent.yml in the config directory, overridden by NEIO_TURBO_* environment
// variables and command line flags. It points to the mapping file, which is the only live-reloaded file.
type Config struct {
	DataDir         string        `mapstructure:"data_dir"`
	MappingsPath    string        `mapstructure:"mappings"`
	LogLevel        string        `mapstructure:"log_level"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	HIDScanInterval time.Duration `mapstructure:"hid_scan_interval"`
}

// NewViper returns a viper instance with defaults rooted at configDir.
func NewViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("agent")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("data_dir", filepath.Join(configDir, "data"))
	v.SetDefault("mappings", filepath.Join(configDir, "mappings.yml"))
	v.SetDefault("log_level", "info")
	v.SetDefault("poll_interval", time.Millisecond)
	v.SetDefault("hid_scan_interval", 2*time.Second)
	return v
}

// LoadConfig reads agent.yml if there is one and resolves the final configuration.
func LoadConfig(v *viper.Viper) (Config, error) {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return Config{}, fmt.Errorf("failed to read agent config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode agent config: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.HIDScanInterval <= 0 {
		return Config{}, fmt.Errorf("HID scan interval must be positive, got %s", cfg.HIDScanInterval)
	}
	return cfg, nil
}
