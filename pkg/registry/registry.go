// Package registry manages per-tenant memory stores and their schedulers,
// creating them lazily on first use.
package registry

import (
	"sync"

	"github.com/memorybank/memorybank-go/pkg/core"
	"github.com/memorybank/memorybank-go/pkg/scheduler"
)

// Pair is a tenant's store and its scheduler.
type Pair struct {
	Store     *core.Store
	Scheduler *scheduler.Scheduler
}

// Factory builds the store and scheduler for a tenant. The registry calls
// it once per tenant, under its lock.
type Factory func(tenant string) (*core.Store, *scheduler.Scheduler, error)

// Registry hands out per-tenant store/scheduler pairs, constructing each
// tenant's pair on first request. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	tenants map[string]*Pair
}

// New creates a registry around a factory.
func New(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		tenants: make(map[string]*Pair),
	}
}

// Get returns the tenant's pair, creating it on first request.
func (r *Registry) Get(tenant string) (*Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pair, ok := r.tenants[tenant]; ok {
		return pair, nil
	}

	store, sched, err := r.factory(tenant)
	if err != nil {
		return nil, err
	}

	pair := &Pair{Store: store, Scheduler: sched}
	r.tenants[tenant] = pair
	return pair, nil
}

// Remove stops the tenant's scheduler, closes its store and forgets the
// tenant. Removing an unknown tenant is a no-op.
func (r *Registry) Remove(tenant string) error {
	r.mu.Lock()
	pair, ok := r.tenants[tenant]
	delete(r.tenants, tenant)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return shutdown(pair)
}

// Tenants lists the tenants with live pairs.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tenants))
	for name := range r.tenants {
		names = append(names, name)
	}
	return names
}

// Close shuts down every tenant's pair, returning the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	pairs := make([]*Pair, 0, len(r.tenants))
	for _, pair := range r.tenants {
		pairs = append(pairs, pair)
	}
	r.tenants = make(map[string]*Pair)
	r.mu.Unlock()

	var firstErr error
	for _, pair := range pairs {
		if err := shutdown(pair); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func shutdown(pair *Pair) error {
	if pair.Scheduler != nil {
		pair.Scheduler.Stop()
	}
	if pair.Store != nil {
		return pair.Store.Close()
	}
	return nil
}
