package api

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ssargent/eventring/pkg/ring"
)

// Registry tracks the channels a server exposes, by name.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*ring.Ring
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*ring.Ring)}
}

// Add registers an attached channel under name, replacing any previous entry.
func (reg *Registry) Add(name string, r *ring.Ring) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.channels[name] = r
}

// Get returns the channel registered under name.
func (reg *Registry) Get(name string) (*ring.Ring, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.channels[name]
	if !ok {
		return nil, fmt.Errorf("registry: unknown channel %q", name)
	}
	return r, nil
}

// Names returns the registered channel names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.channels))
	for name := range reg.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetachAll detaches every registered channel. Used on server shutdown.
func (reg *Registry) DetachAll() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for name, r := range reg.channels {
		_ = r.Detach()
		delete(reg.channels, name)
	}
}
