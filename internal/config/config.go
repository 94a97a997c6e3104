package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gchd-dev/gchd/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config holds all gchd settings
type Config struct {
	// Resolution is the capture standard token (720p, 1080p, 576i,
	// c576p, c720p, c1080i, c1080p)
	Resolution string `json:"resolution" yaml:"resolution"`

	// FifoPath is where the transport stream FIFO is created
	FifoPath string `json:"fifo_path" yaml:"fifo_path"`

	// FirmwareDir is the directory holding the encoder firmware blobs
	FirmwareDir string `json:"firmware_dir" yaml:"firmware_dir"`

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string `json:"log_level" yaml:"log_level"`

	// ReadTimeoutMS bounds a single bulk read from the device, in
	// milliseconds. Zero means the backend default.
	ReadTimeoutMS int `json:"read_timeout_ms" yaml:"read_timeout_ms"`

	// ChunkSize is the bulk transfer size in bytes
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configFile uses
// the default path under the user's config directory; a missing file is
// created with defaults.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "gchd")
	defaultConfigPath := filepath.Join(configDir, "config.yaml")

	// Use provided config file or default
	actualConfigPath := defaultConfigPath
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	// Try to read config file
	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			// Config file not found, create it with defaults
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("resolution", m.config.Resolution).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func getDefaults() *Config {
	return &Config{
		Resolution:    "720p",
		FifoPath:      "/tmp/elgato_gchd.ts",
		FirmwareDir:   "/usr/lib/firmware/gchd",
		LogLevel:      "info",
		ReadTimeoutMS: 1000,
		ChunkSize:     0x4000,
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Fill in anything the file leaves unset
	defaults := getDefaults()
	if cfg.Resolution == "" {
		cfg.Resolution = defaults.Resolution
	}
	if cfg.FifoPath == "" {
		cfg.FifoPath = defaults.FifoPath
	}
	if cfg.FirmwareDir == "" {
		cfg.FirmwareDir = defaults.FirmwareDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.ReadTimeoutMS < 0 {
		cfg.ReadTimeoutMS = defaults.ReadTimeoutMS
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()

	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// GetConfigPath returns the path of the backing config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SetResolution overrides the capture standard for this run
func (m *Manager) SetResolution(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Resolution = token
}

// SetFifoPath overrides the FIFO location for this run
func (m *Manager) SetFifoPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.FifoPath = path
}

// SetFirmwareDir overrides the firmware directory for this run
func (m *Manager) SetFirmwareDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.FirmwareDir = dir
}

// SetLogLevel overrides the logging level for this run
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}
