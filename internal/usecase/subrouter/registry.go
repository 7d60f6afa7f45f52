package subrouter

import (
	"fmt"
	"sync"
)

// Registry holds constructed sub-routers by name in insertion order.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	routers map[string]*SubRouter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{routers: make(map[string]*SubRouter)}
}

// Add stores r under name. Names must be unique.
func (g *Registry) Add(name string, r *SubRouter) error {
	if name == "" || r == nil {
		return fmt.Errorf("registry: name and router are required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.routers[name]; dup {
		return fmt.Errorf("registry: router %q already registered", name)
	}
	g.names = append(g.names, name)
	g.routers[name] = r
	return nil
}

// Get returns the router stored under name.
func (g *Registry) Get(name string) (*SubRouter, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.routers[name]
	return r, ok
}

// Named pairs a router with its registry name.
type Named struct {
	Name   string
	Router *SubRouter
}

// List returns every router in insertion order.
func (g *Registry) List() []Named {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Named, len(g.names))
	for i, name := range g.names {
		out[i] = Named{Name: name, Router: g.routers[name]}
	}
	return out
}

// Len returns the number of routers.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.names)
}
