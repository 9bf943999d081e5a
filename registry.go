package mailstore

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/infodancer/mailstore/errors"
)

// StoreFactory builds a MsgStore from a StoreConfig. Factories validate
// the config and return an error wrapping errors.ErrStoreConfigInvalid when
// it is unusable.
type StoreFactory func(config StoreConfig) (MsgStore, error)

// StoreConfig selects and configures a store backend.
type StoreConfig struct {
	// Type names a registered backend, e.g. "maildir".
	Type string

	// BasePath is the directory holding every mailbox.
	BasePath string

	// Options carries backend settings as strings so they can come
	// straight from a config file. The maildir backend reads
	// "maildir_subdir", "path_template" and "lenient_count".
	Options map[string]string
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]StoreFactory)
)

// Register makes a backend available to Open. Backends call it from init.
// It panics on an empty name, a nil factory or a duplicate name.
func Register(name string, factory StoreFactory) {
	switch {
	case name == "":
		panic("mailstore: Register called with empty name")
	case factory == nil:
		panic("mailstore: Register called with nil factory for " + name)
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, dup := factories[name]; dup {
		panic("mailstore: Register called twice for " + name)
	}
	factories[name] = factory
}

// Open builds the store named by config.Type.
func Open(config StoreConfig) (MsgStore, error) {
	factoriesMu.RLock()
	factory, ok := factories[config.Type]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrStoreNotRegistered, config.Type)
	}
	return factory(config)
}

// RegisteredTypes returns the registered backend names in sorted order.
func RegisteredTypes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
