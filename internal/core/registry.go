package core

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrTableExists is returned when a key is registered twice.
var ErrTableExists = errors.New("table already registered")

// Registry holds the table definitions the dashboard serves, keyed by
// TableInfo.Key.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]TableDefinition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]TableDefinition)}
}

// tables is the process-wide registry filled by init functions and the
// catalog loader.
var tables = NewRegistry()

// Add validates def, fills its defaults and stores it.
func (reg *Registry) Add(def TableDefinition) error {
	if err := checkDefinition(def); err != nil {
		return err
	}
	if def.OrderColumn == "" {
		def.OrderColumn = DefaultOrderColumn
	}
	if def.PageSize <= 0 {
		def.PageSize = DefaultPageSize
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.defs[def.Info.Key]; exists {
		return fmt.Errorf("%w: %s", ErrTableExists, def.Info.Key)
	}
	reg.defs[def.Info.Key] = def
	return nil
}

func checkDefinition(def TableDefinition) error {
	if def.Info.Key == "" {
		return errors.New("table definition has no key")
	}
	seen := make(map[string]bool, len(def.FieldSpecs))
	for _, f := range def.FieldSpecs {
		switch {
		case f.Name == "":
			return fmt.Errorf("table %s: field with empty name", def.Info.Key)
		case seen[f.Name]:
			return fmt.Errorf("table %s: duplicate field %s", def.Info.Key, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Get looks up a definition.
func (reg *Registry) Get(key string) (TableDefinition, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	def, ok := reg.defs[key]
	return def, ok
}

// All lists the definitions ordered by group, then key.
func (reg *Registry) All() []TableDefinition {
	return reg.filter(func(TableDefinition) bool { return true })
}

// ByGroup lists one group's definitions ordered by key.
func (reg *Registry) ByGroup(group string) []TableDefinition {
	return reg.filter(func(d TableDefinition) bool { return d.Info.Group == group })
}

func (reg *Registry) filter(keep func(TableDefinition) bool) []TableDefinition {
	reg.mu.RLock()
	var out []TableDefinition
	for _, def := range reg.defs {
		if keep(def) {
			out = append(out, def)
		}
	}
	reg.mu.RUnlock()

	slices.SortFunc(out, func(a, b TableDefinition) int {
		return cmp.Or(
			cmp.Compare(a.Info.Group, b.Info.Group),
			cmp.Compare(a.Info.Key, b.Info.Key),
		)
	})
	return out
}

// Groups lists the distinct group names in sidebar order.
func (reg *Registry) Groups() []string {
	reg.mu.RLock()
	seen := make(map[string]struct{})
	for _, def := range reg.defs {
		seen[def.Info.Group] = struct{}{}
	}
	reg.mu.RUnlock()
	return slices.Sorted(maps.Keys(seen))
}

// Len is the number of registered tables.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.defs)
}

// Reset drops every definition.
func (reg *Registry) Reset() {
	reg.mu.Lock()
	reg.defs = make(map[string]TableDefinition)
	reg.mu.Unlock()
}

// Register adds def to the default registry and panics when it is invalid
// or its key is taken. Built-in tables call it from init.
func Register(def TableDefinition) {
	if err := tables.Add(def); err != nil {
		panic(err.Error())
	}
}

// Add adds def to the default registry.
func Add(def TableDefinition) error { return tables.Add(def) }

// Get looks up a definition in the default registry.
func Get(key string) (TableDefinition, bool) { return tables.Get(key) }

// All lists the default registry.
func All() []TableDefinition { return tables.All() }

// ByGroup lists one group of the default registry.
func ByGroup(group string) []TableDefinition { return tables.ByGroup(group) }

// Groups lists the groups of the default registry.
func Groups() []string { return tables.Groups() }

// TableCount is the size of the default registry.
func TableCount() int { return tables.Len() }

// Clear empties the default registry. Tests use it to isolate
// registrations.
func Clear() { tables.Reset() }
