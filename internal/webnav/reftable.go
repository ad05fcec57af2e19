// internal/webnav/reftable.go
package webnav

import (
	"sort"
	"sync"

	"golang.org/x/net/html"
)

// RefTable maps the opaque reference handles produced by a snapshot to the
// elements they were captured from. A page owns at most one table; the
// snapshot collaborator fills a fresh table and installs it wholesale, and the
// action layer only reads it.
type RefTable struct {
	mu      sync.RWMutex
	entries map[string]*html.Node
}

// NewRefTable returns an empty table.
func NewRefTable() *RefTable {
	return &RefTable{entries: make(map[string]*html.Node)}
}

// Put records ref for n, replacing any earlier entry for the same ref.
func (t *RefTable) Put(ref string, n *html.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[ref] = n
}

// Lookup returns the element recorded for ref.
func (t *RefTable) Lookup(ref string) (*html.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.entries[ref]
	return n, ok
}

// Len reports the number of recorded refs.
func (t *RefTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Refs lists the recorded refs in lexical order.
func (t *RefTable) Refs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	refs := make([]string, 0, len(t.entries))
	for ref := range t.entries {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
