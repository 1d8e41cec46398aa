package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager holds the live configuration and supports hot reload. The
// *Config returned by Get must not be modified.
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configFile string
	onUpdate   []func(oldCfg, newCfg *Config)
	// loaded is the state of configFile when it was last read.
	loaded fileStamp

	clock  clock.Clock
	logger *zap.Logger
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func statFile(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, nil
}

func (s fileStamp) equal(o fileStamp) bool {
	return s.modTime.Equal(o.modTime) && s.size == o.size
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for reload events.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithConfigFile sets the file Reload and Watch read.
func WithConfigFile(path string) ManagerOption {
	return func(m *Manager) {
		m.configFile = path
	}
}

// WithClock sets the clock driving Watch.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a manager holding cfg. A nil cfg means DefaultConfig.
func NewManager(cfg *Config, opts ...ManagerOption) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{
		config: cfg,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "config"))
	return m
}

// LoadManager loads and validates the file at path and returns a manager
// that reloads from it.
func LoadManager(path string, opts ...ManagerOption) (*Manager, error) {
	stamp, cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	m := NewManager(cfg, append(opts, WithConfigFile(path))...)
	m.loaded = stamp
	return m, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the path Reload reads, or "".
func (m *Manager) ConfigFile() string {
	return m.configFile
}

// OnUpdate registers fn to run after every successful Update or Reload.
func (m *Manager) OnUpdate(fn func(oldCfg, newCfg *Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = append(m.onUpdate, fn)
}

// Update validates cfg and installs a copy of it.
func (m *Manager) Update(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	m.install(cfg.clone())
	return nil
}

// Reload reloads config from file.
func (m *Manager) Reload() error {
	if m.configFile == "" {
		return ErrNoConfigFile
	}

	stamp, cfg, err := loadFile(m.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m.setLoaded(stamp)
	m.install(cfg)
	m.logger.Info("Configuration reloaded", zap.String("path", m.configFile))
	return nil
}

// Watch polls the config file every interval and reloads it when its
// modification time or size differs from when it was last read, so edits
// made before Watch started are picked up on the first tick. Failed
// reloads are logged and the previous configuration stays in effect.
// Watch returns when ctx is done.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) error {
	if m.configFile == "" {
		return ErrNoConfigFile
	}
	if _, err := os.Stat(m.configFile); err != nil {
		return err
	}

	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stamp, err := statFile(m.configFile)
			if err != nil {
				m.logger.Warn("Failed to stat config file", zap.String("path", m.configFile), zap.Error(err))
				continue
			}
			if stamp.equal(m.loadedStamp()) {
				continue
			}
			// A file that fails to load is not retried until it changes again.
			m.setLoaded(stamp)
			if err := m.Reload(); err != nil {
				m.logger.Error("Failed to reload configuration", zap.String("path", m.configFile), zap.Error(err))
			}
		}
	}
}

func (m *Manager) install(cfg *Config) {
	m.mu.Lock()
	oldConfig := m.config
	m.config = cfg
	callbacks := m.onUpdate
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(oldConfig, cfg)
	}
}

func (m *Manager) loadedStamp() fileStamp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Manager) setLoaded(s fileStamp) {
	m.mu.Lock()
	m.loaded = s
	m.mu.Unlock()
}

// loadFile stats path before reading it, so a write racing with the read
// shows up as a change on the next poll.
func loadFile(path string) (fileStamp, *Config, error) {
	stamp, statErr := statFile(path)
	cfg, err := load(path)
	if err != nil {
		return fileStamp{}, nil, err
	}
	if statErr != nil {
		return fileStamp{}, nil, statErr
	}
	return stamp, cfg, nil
}

func load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if errs := ValidateConfig(cfg); len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, multierr.Combine(errs...))
	}
	return nil
}
