package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

// Manager manages configuration with hot reload capability
type Manager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
	watcher    *fsnotify.Watcher
	callbacks  []func(*Config)
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewManager loads the configuration and, when a path is given, watches it
// for changes.
func NewManager(configPath string) (*Manager, error) {
	m := &Manager{
		configPath: configPath,
		stopCh:     make(chan struct{}),
	}

	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if configPath == "" {
		return m, nil
	}

	logger := logging.WithComponent("config")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn().Err(err).Msg("Config hot reload disabled")
		return m, nil
	}

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		logger.Warn().Err(err).Msg("Config hot reload disabled")
		return m, nil
	}

	m.watcher = watcher
	go m.watchChanges()

	return m, nil
}

// Load loads or reloads the configuration. A failed reload keeps the
// previous configuration.
func (m *Manager) Load() error {
	cfg, err := Load(m.configPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback for configuration changes
func (m *Manager) OnChange(callback func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

func (m *Manager) reload() {
	logger := logging.WithComponent("config")
	logger.Info().Str("path", m.configPath).Msg("Configuration file changed, reloading")

	if err := m.Load(); err != nil {
		logger.Error().Err(err).Msg("Failed to reload configuration")
		return
	}

	m.mu.RLock()
	cfg := m.config
	callbacks := append([]func(*Config){}, m.callbacks...)
	m.mu.RUnlock()

	for _, callback := range callbacks {
		callback(cfg)
	}
}

// watchChanges watches for configuration file changes
func (m *Manager) watchChanges() {
	defer m.watcher.Close()

	logger := logging.WithComponent("config")
	target := filepath.Clean(m.configPath)
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("Configuration watcher error")

		case <-m.stopCh:
			return
		}
	}
}

// Stop stops the configuration manager
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
