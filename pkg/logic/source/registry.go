package source

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"mercator-hq/carepath/pkg/logic/ast"
)

// Registry is a thread-safe in-memory store of loaded libraries.
// Libraries are treated as immutable once registered; updates swap the
// whole entry.
type Registry struct {
	mu        sync.RWMutex
	libraries map[string]*ast.Library
	version   string
	loadTime  time.Time
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		libraries: make(map[string]*ast.Library),
		loadTime:  time.Now(),
	}
}

// Register adds a library to the registry.
// If a library with the same name already exists, it will be replaced.
func (r *Registry) Register(lib *ast.Library) error {
	if err := checkLibrary("register", lib); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.libraries[lib.Name] = lib
	r.loadTime = time.Now()
	r.updateVersion()

	return nil
}

// Replace atomically replaces every library in the registry.
// On error the registry is left unchanged.
func (r *Registry) Replace(libs []*ast.Library) error {
	next := make(map[string]*ast.Library, len(libs))
	for _, lib := range libs {
		if err := checkLibrary("replace", lib); err != nil {
			return err
		}
		if _, dup := next[lib.Name]; dup {
			return &RegistryError{
				Library:   lib.Name,
				Operation: "replace",
				Message:   "duplicate library name",
			}
		}
		next[lib.Name] = lib
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.libraries = next
	r.loadTime = time.Now()
	r.updateVersion()

	return nil
}

// Get returns the named library.
func (r *Registry) Get(name string) (*ast.Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lib, ok := r.libraries[name]
	return lib, ok
}

// Condition returns a named condition from a named library.
func (r *Registry) Condition(library, condition string) (ast.Node, error) {
	lib, ok := r.Get(library)
	if !ok {
		return nil, &RegistryError{
			Library:   library,
			Operation: "lookup",
			Message:   "library not found",
		}
	}

	node, ok := lib.Get(condition)
	if !ok {
		return nil, &RegistryError{
			Library:   library,
			Operation: "lookup",
			Message:   "condition " + condition + " not found",
		}
	}
	return node, nil
}

// Names returns a sorted list of library names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.libraries))
	for name := range r.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of libraries in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.libraries)
}

// Version returns a digest of the registered library and condition names.
// It changes whenever the set of conditions changes.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

// LoadTime returns the time of the last update.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loadTime
}

// updateVersion must be called with the write lock held.
func (r *Registry) updateVersion() {
	names := make([]string, 0, len(r.libraries))
	for name := range r.libraries {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		lib := r.libraries[name]
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(lib.SourceFile))
		h.Write([]byte{0})
		for _, cond := range lib.Names() {
			h.Write([]byte(cond))
			h.Write([]byte{0})
		}
	}

	r.version = hex.EncodeToString(h.Sum(nil))[:16]
}

func checkLibrary(op string, lib *ast.Library) error {
	if lib == nil {
		return &RegistryError{Operation: op, Message: "library cannot be nil"}
	}
	if lib.Name == "" {
		return &RegistryError{Operation: op, Message: "library name cannot be empty"}
	}
	return nil
}
