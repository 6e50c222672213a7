package optimizer

import "sync"

// Registry maps an optimizer name to its dynamically dispatched
// implementation. It is process-wide immutable state once built.
type Registry struct {
	byName map[string]Optimizer
}

// Lookup returns the named optimizer ("simple", "simple_add", "old", "new").
func (r *Registry) Lookup(name string) (Optimizer, bool) {
	o, ok := r.byName[name]
	return o, ok
}

var (
	buildOnce sync.Once
	singleton *Registry
)

// Default returns the process-wide Registry, building it exactly once. The
// sync.Once already serializes every concurrent first caller (e.g. several
// request handlers in a host process, each calling Compile for the first
// time) onto a single build; after that one-time build, lookups are plain
// map reads over an immutable map and need no further synchronization.
func Default() *Registry {
	buildOnce.Do(func() {
		singleton = &Registry{byName: map[string]Optimizer{
			"simple":     &Simple{},
			"simple_add": &SimpleAdd{},
			"old":        &Old{},
			"new":        &New{},
		}}
	})
	return singleton
}
