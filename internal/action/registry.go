package action

import (
	"fmt"
	"sort"
)

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Entry describes one named action.
type Entry struct {
	// Name is the token operators use in configuration.
	Name string
	// Usage documents the positional arguments, e.g. "(message: str, delay: int)".
	Usage string
	// Description is a one-line summary for listings.
	Description string
	// Factory creates a primed instance from arguments.
	Factory Factory
}

// Lookuper resolves an action name synchronously.
type Lookuper interface {
	Lookup(name string) (Entry, bool)
}

// Registry is a static name -> [Entry] table.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns a registry holding entries.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		r.Register(e)
	}
	return r
}

// Register adds e. It panics on an empty name, a nil factory, or a duplicate
// name, since all of these are programming errors in the static table.
func (r *Registry) Register(e Entry) {
	if e.Name == "" {
		panic("action: register entry with empty name")
	}
	if e.Factory == nil {
		panic(fmt.Sprintf("action: register %q with nil factory", e.Name))
	}
	if _, ok := r.entries[e.Name]; ok {
		panic(fmt.Sprintf("action: duplicate registration of %q", e.Name))
	}
	r.entries[e.Name] = e
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Entries returns every entry sorted by name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
