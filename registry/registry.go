// Package registry keeps the named image generators the host can call.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("registry: provider already registered")
	// ErrNotFound is returned for an unknown provider name.
	ErrNotFound = errors.New("registry: provider not found")
	// ErrNotConfigured marks provider errors caused by missing settings.
	ErrNotConfigured = errors.New("provider not configured")
)

// ImageResult is what a generator returns.
type ImageResult struct {
	URL string `json:"url"`
}

// Provider generates images on behalf of the host.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt, negative string, width, height int) (*ImageResult, error)
}

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

func New() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under p.Name().
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get looks a provider up by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Names lists providers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
