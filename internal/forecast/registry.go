package forecast

import (
	"fmt"
	"sync"
)

// Registry maps model IDs to adapters, keeping registration order for listings.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
	order  []string
}

// NewRegistry creates an empty model registry
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]Model),
		order:  make([]string, 0),
	}
}

// DefaultRegistry returns a registry holding every built-in model.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range []Model{
		&arimaModel{},
		&prophetModel{},
		&movingAverageModel{},
		&holtWintersModel{},
		linearRegressionModel(),
		randomForestModel(),
		svrModel(),
		&lstmModel{},
	} {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a model to the registry
func (r *Registry) Register(m Model) error {
	if m == nil {
		return fmt.Errorf("cannot register nil model")
	}
	id := m.Info().ID
	if id == "" {
		return fmt.Errorf("model ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[id]; exists {
		return fmt.Errorf("model with ID %s already registered", id)
	}
	r.models[id] = m
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a model by ID
func (r *Registry) Get(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	return m, ok
}

// List returns model descriptions in registration order
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id].Info())
	}
	return out
}

// ListIDs returns model IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
