package param

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateID is returned when a parameter ID is registered twice.
var ErrDuplicateID = errors.New("param: duplicate parameter id")

// Registry manages the parameter table. Writes happen during construction;
// the audio thread keeps *Parameter pointers and never touches the map.
type Registry struct {
	params map[uint32]*Parameter
	order  []uint32 // Maintain order for indexed access
	mu     sync.RWMutex
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[uint32]*Parameter),
		order:  make([]uint32, 0, 64),
	}
}

// Add registers parameters. Nothing is added if any ID is already taken.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint32]struct{}, len(params))
	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			return fmt.Errorf("%w: %d (%s)", ErrDuplicateID, p.ID, p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %d (%s)", ErrDuplicateID, p.ID, p.Name)
		}
		seen[p.ID] = struct{}{}
	}
	for _, p := range params {
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return nil
}

// Merge registers every parameter of other, sharing the same *Parameter
// values so both registries observe the same atomics.
func (r *Registry) Merge(other *Registry) error {
	return r.Add(other.All()...)
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// GetByIndex retrieves a parameter by registration index
func (r *Registry) GetByIndex(index int) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.order) {
		return nil
	}
	return r.params[r.order[index]]
}

// Count returns the number of parameters
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// All returns all parameters in registration order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}
	return result
}

// ResetToDefaults restores every parameter's default value.
func (r *Registry) ResetToDefaults() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		r.params[id].Reset()
	}
}
