package module

import (
	"slices"
	"sync"
)

// mounted records the port bundles of every module mounted in this process
var (
	mu      sync.RWMutex
	mounted = map[string]any{}
)

// Register records ports under name; a later call for the same name replaces it
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	mounted[name] = ports
}

// PortsAs returns the ports registered under name when they have type T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := mounted[name].(T)
	return v, ok
}

// Names lists the registered modules in order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(mounted))
	for n := range mounted {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Reset forgets every registration
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	mounted = map[string]any{}
}
