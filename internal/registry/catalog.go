package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

// Loader lazily constructs a Tool. Catalog entries carry a Loader instead
// of a live Tool so the registry can defer expensive construction
// (network clients, subprocess spawns) until a tool is actually selected.
type Loader func() (toolspec.Tool, error)

// Entry is one catalog record: enough metadata to run semantic search and
// list the tool without loading it, plus the Loader that produces the
// live Tool on demand.
type Entry struct {
	Name        string
	Description string
	Categories  []string
	Priority    int
	Sensitive   bool
	Load        Loader
}

// Catalog is the registry's static address book of known tools, keyed by
// name. It is independent of the dynamic cache: an Entry being in the
// catalog says nothing about whether its Tool is currently loaded.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// Register adds or replaces entry in the catalog. It is the only
// sanctioned way to mutate the catalog's contents, matching the
// registry's designed invariant that mutation never happens through any
// path other than Register/Unregister.
func (c *Catalog) Register(entry Entry) error {
	if entry.Name == "" {
		return fmt.Errorf("registry: catalog entry must have a name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[entry.Name]; !exists {
		c.order = append(c.order, entry.Name)
	}
	c.entries[entry.Name] = entry
	return nil
}

// Unregister removes name from the catalog. It is a no-op if name is
// absent.
func (c *Catalog) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return
	}
	delete(c.entries, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the catalog entry for name.
func (c *Catalog) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// List returns all entries, optionally filtered to those carrying
// category among their Categories. Order is insertion order, which keeps
// `tools list` output stable across runs of the same process.
func (c *Catalog) List(category string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.order))
	for _, name := range c.order {
		e := c.entries[name]
		if category == "" || hasCategory(e.Categories, category) {
			out = append(out, e)
		}
	}
	return out
}

// Names returns every registered tool name, sorted, used to compute the
// embedding index's names hash.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func hasCategory(cats []string, want string) bool {
	for _, c := range cats {
		if c == want {
			return true
		}
	}
	return false
}
