package operations

import (
	"fmt"
	"sync"

	apperrors "fintastic/internal/errors"
)

// Registry maps operation IDs to operations, keeping registration order for listings.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]*Operation
	order []string
}

// NewRegistry creates an empty operation registry
func NewRegistry() *Registry {
	return &Registry{
		ops:   make(map[string]*Operation),
		order: make([]string, 0),
	}
}

// DefaultRegistry returns a registry holding every built-in operation.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, op := range builtins() {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []*Operation {
	return []*Operation{
		{
			ID:          OpFillMissing,
			Name:        "Fill Missing Values",
			Description: "Fill missing cells with the column mean, median, mode or a custom value",
			Params:      []string{"method", "value"},
			Apply:       fillMissing,
		},
		{
			ID:          OpRemoveBlanks,
			Name:        "Remove Blanks",
			Description: "Drop rows where every cell is missing, then columns where every cell is missing",
			Apply:       removeBlanks,
		},
		{
			ID:          OpRemoveColumns,
			Name:        "Remove Columns",
			Description: "Drop the selected columns",
			Params:      []string{"columns"},
			Apply:       removeColumns,
		},
		{
			ID:          OpAddColumns,
			Name:        "Add Columns",
			Description: "Append new columns filled with a default value",
			Params:      []string{"names", "default"},
			Apply:       addColumns,
		},
		{
			ID:          OpAddCalculation,
			Name:        "Add Calculation",
			Description: "Append a rolling average, growth percentage or cumulative sum of a numeric column",
			Params:      []string{"calc", "column", "window"},
			Apply:       addCalculation,
		},
		{
			ID:          OpNormalize,
			Name:        "Normalize",
			Description: "Replace every numeric column with its z-score",
			Apply:       normalize,
		},
		{
			ID:          OpDescribe,
			Name:        "Describe",
			Description: "Summary statistics of every numeric column",
			ReadOnly:    true,
			Apply:       describe,
		},
		{
			ID:          OpTransformDates,
			Name:        "Transform Dates",
			Description: "Parse a text column into dates",
			Params:      []string{"column"},
			Apply:       transformDates,
		},
		{
			ID:          OpRenameColumn,
			Name:        "Rename Column",
			Description: "Rename one column",
			Params:      []string{"from", "to"},
			Apply:       renameColumn,
		},
	}
}

// Register adds an operation to the registry
func (r *Registry) Register(op *Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}
	if op.ID == "" {
		return fmt.Errorf("operation ID cannot be empty")
	}
	if op.Apply == nil {
		return fmt.Errorf("operation %s has no apply function", op.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.ID]; exists {
		return fmt.Errorf("operation with ID %s already registered", op.ID)
	}

	r.ops[op.ID] = op
	r.order = append(r.order, op.ID)
	return nil
}

// Unregister removes an operation from the registry
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[id]; !exists {
		return fmt.Errorf("operation with ID %s not found", id)
	}

	delete(r.ops, id)

	newOrder := make([]string, 0, len(r.order)-1)
	for _, opID := range r.order {
		if opID != id {
			newOrder = append(newOrder, opID)
		}
	}
	r.order = newOrder

	return nil
}

// Get retrieves an operation by ID. Unknown IDs yield a NotFound error.
func (r *Registry) Get(id string) (*Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.ops[id]
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("operation %s", id))
	}

	return op, nil
}

// Has checks if an operation is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.ops[id]
	return exists
}

// List returns all registered operations in registration order
func (r *Registry) List() []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]*Operation, 0, len(r.order))
	for _, id := range r.order {
		if op, exists := r.ops[id]; exists {
			ops = append(ops, op)
		}
	}

	return ops
}

// ListIDs returns all registered operation IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered operations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.ops)
}

// Clear removes all registered operations
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops = make(map[string]*Operation)
	r.order = make([]string, 0)
}

// Clone creates a copy of the registry
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewRegistry()
	for _, id := range r.order {
		if op, exists := r.ops[id]; exists {
			clone.ops[id] = op
			clone.order = append(clone.order, id)
		}
	}

	return clone
}
