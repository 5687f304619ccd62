package registry

import (
	"errors"
	"sync"

	"go.uber.org/fx"
)

var ErrUnknownStructure = errors.New("unknown structure")

// Structure is one placement record. This registry is an in-process stand-in
// for the eventual placement service; the engine only needs register,
// reassign and snapshot.
type Structure struct {
	Blueprint string `json:"blueprint"`
}

type Registry struct {
	mu         sync.RWMutex
	structures map[string]Structure
}

func New() *Registry {
	return &Registry{structures: make(map[string]Structure)}
}

// Register records a structure, overwriting any previous record for id.
func (r *Registry) Register(id, blueprintID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structures[id] = Structure{Blueprint: blueprintID}
}

// Reassign re-points an existing structure's blueprint.
func (r *Registry) Reassign(id, blueprintID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.structures[id]; !ok {
		return ErrUnknownStructure
	}
	r.structures[id] = Structure{Blueprint: blueprintID}
	return nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.structures, id)
}

func (r *Registry) Snapshot() map[string]Structure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Structure, len(r.structures))
	for id, s := range r.structures {
		out[id] = s
	}
	return out
}

var Module = fx.Module("registry",
	fx.Provide(New),
)
