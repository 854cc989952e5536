package logger

import "sync"

// registry caches the component loggers handed out by Get.
var registry = struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Get returns the logger for a component, deriving and caching it from the
// global logger on first use.
func Get(name string) *Logger {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if l, ok := registry.loggers[name]; ok {
		return l
	}
	l := GetGlobalLogger().WithComponent(name)
	registry.loggers[name] = l
	return l
}

// resetRegistry drops cached component loggers so they pick up a new global
// configuration.
func resetRegistry() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers = make(map[string]*Logger)
}
