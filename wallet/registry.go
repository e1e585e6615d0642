package wallet

import "sync"

// Registry holds the detected wallet providers. Lookup is by provider id;
// Detect preserves registration order.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	order     []string
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.Info().ID
	if _, ok := r.providers[id]; !ok {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
}

// Detect returns the ids of every available provider. An empty result is not
// an error.
func (r *Registry) Detect() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Lookup(id string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	return p, ok
}
