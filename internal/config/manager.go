package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kbukum/voicetap/internal/logger"
)

// Manager holds the loaded configuration and reloads it when the config
// file changes on disk. Only fields read through Get pick up changes; the
// intended hot-reloadable fields are the provider order and VAD tuning.
type Manager struct {
	v   *viper.Viper
	log *logger.Logger

	mu       sync.RWMutex
	cfg      Config
	onReload []func(Config)
}

// NewManager loads the configuration and returns a manager over it.
func NewManager(opts ...LoaderOption) (*Manager, error) {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}

	v, err := newViper(o)
	if err != nil {
		return nil, err
	}
	cfg, err := unmarshalInto(v)
	if err != nil {
		return nil, err
	}
	return &Manager{v: v, log: logger.Get("config"), cfg: cfg}, nil
}

// Get returns the current configuration snapshot.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OnReload registers a callback invoked with the new configuration after a
// successful reload. Register before calling Watch.
func (m *Manager) OnReload(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// Watch begins watching the config file for changes. A change that fails
// validation is logged and discarded; the previous configuration stays
// active. No-op when no config file was found.
func (m *Manager) Watch() {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalInto(m.v)
		if err != nil {
			m.log.Warn("config reload rejected", logger.ErrorFields("reload", err))
			return
		}

		m.mu.Lock()
		m.cfg = cfg
		callbacks := make([]func(Config), len(m.onReload))
		copy(callbacks, m.onReload)
		m.mu.Unlock()

		m.log.Info("config reloaded", logger.Fields("file", e.Name))
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}
