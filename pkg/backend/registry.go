package backend

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// DefaultName is the backend preferred by Default.
const DefaultName = "cpu"

// Factory creates a backend instance.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register registers a backend factory under name. It is typically called
// from the init function of the backend package. A factory registered under
// an existing name replaces it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Get returns a new instance of the named backend.
func Get(name string) (Backend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrBackendNotAvailable, "%q (available: %v)", name, Available())
	}

	b := factory()
	if b == nil {
		return nil, errors.Wrapf(ErrBackendNotAvailable, "%q", name)
	}

	return b, nil
}

// Default returns the DefaultName backend when it is registered, or the
// first registered backend in name order.
func Default() (Backend, error) {
	if b, err := Get(DefaultName); err == nil {
		return b, nil
	}

	for _, name := range Available() {
		if b, err := Get(name); err == nil {
			return b, nil
		}
	}

	return nil, ErrBackendNotAvailable
}
