package editor

import "sync"

// Registry hands out one Editor per product id for the HTTP surface.
// Releasing an id drops its editor and with it the draft; the next load
// starts from a fresh fetch.
type Registry struct {
	mu      sync.Mutex
	editors map[string]*Editor
	factory func() *Editor
}

// NewRegistry creates a registry producing editors from factory.
func NewRegistry(factory func() *Editor) *Registry {
	return &Registry{
		editors: make(map[string]*Editor),
		factory: factory,
	}
}

// Get returns the editor for the given product id, creating one if needed.
func (r *Registry) Get(id string) *Editor {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.editors[id]
	if !ok {
		e = r.factory()
		r.editors[id] = e
	}
	return e
}

// Lookup returns the editor for id without creating one.
func (r *Registry) Lookup(id string) (*Editor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.editors[id]
	return e, ok
}

// Release discards the editor for id, destroying its draft.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.editors, id)
	r.mu.Unlock()
}
