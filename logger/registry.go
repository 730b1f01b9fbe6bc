package logger

import "sync"

// overrides maps a component name to the logger that replaces the global
// one for that component.
var overrides sync.Map

// Register routes a component's logs to l until the returned restore func
// is called. Tests use it to capture one stage's output.
func Register(name string, l *Logger) (restore func()) {
	prev, had := overrides.Swap(name, l)
	return func() {
		if had {
			overrides.Store(name, prev)
			return
		}
		overrides.CompareAndDelete(name, l)
	}
}

// Get returns the logger for a component: a registered override, or the
// current global logger tagged with the component name.
func Get(name string) *Logger {
	if l, ok := overrides.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
