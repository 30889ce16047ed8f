// Package sources wires the concrete source drivers behind the ingestion
// driver registry. Each driver lives in its own subpackage; this package
// only knows how to hold and hand them out.
package sources

import (
	"fmt"
	"sync"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// Registry is the in-process driver registry. Drivers register once at
// startup; lookups are concurrent-safe.
type Registry struct {
	mu      sync.RWMutex
	drivers map[ingestion.SourceCode]ingestion.SourceDriver
	order   []ingestion.SourceCode
}

// NewRegistry creates an empty driver registry
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[ingestion.SourceCode]ingestion.SourceDriver),
	}
}

// Register adds a driver. Registering a source code twice is a wiring bug
// and fails loudly.
func (r *Registry) Register(driver ingestion.SourceDriver) error {
	code := driver.SourceCode()
	if !code.IsValid() {
		return fmt.Errorf("%w: %s", ingestion.ErrDriverNotRegistered, code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.drivers[code]; exists {
		return fmt.Errorf("driver already registered for source %s", code)
	}
	r.drivers[code] = driver
	r.order = append(r.order, code)
	return nil
}

// Get returns the driver for a source code
func (r *Registry) Get(code ingestion.SourceCode) (ingestion.SourceDriver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	driver, ok := r.drivers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ingestion.ErrDriverNotRegistered, code)
	}
	return driver, nil
}

// List returns all registered drivers in registration order
func (r *Registry) List() []ingestion.SourceDriver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ingestion.SourceDriver, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.drivers[code])
	}
	return out
}

// Codes returns the registered source codes in registration order
func (r *Registry) Codes() []ingestion.SourceCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ingestion.SourceCode, len(r.order))
	copy(out, r.order)
	return out
}

var _ ingestion.DriverRegistry = (*Registry)(nil)
