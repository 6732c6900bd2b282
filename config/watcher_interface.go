package config

// Watcher provides the current configuration and notifies about reloads.
type Watcher interface {
	GetCurrentConfig() *Config
	Subscribe() <-chan *Config
	Close() error
}

// StaticWatcher is a Watcher over a configuration that never changes, used
// when the server runs without a config file.
type StaticWatcher struct {
	cfg *Config
}

// NewStaticWatcher returns a Watcher that always reports cfg.
func NewStaticWatcher(cfg *Config) *StaticWatcher {
	return &StaticWatcher{cfg: cfg}
}

func (s *StaticWatcher) GetCurrentConfig() *Config { return s.cfg }

// Subscribe returns a channel that never delivers.
func (s *StaticWatcher) Subscribe() <-chan *Config { return make(chan *Config) }

func (s *StaticWatcher) Close() error { return nil }
