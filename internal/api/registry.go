package api

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"antsys/internal/aco"
	"antsys/internal/model"
)

// ColonyHandle is one live colony: the solver state plus its private RNG.
// Iterate calls are serialized per colony by mu; the pheromone matrix and
// the RNG sequence advance together.
type ColonyHandle struct {
	ID        string
	TenantID  string
	ProblemID string
	Params    model.SolverParams
	Labels    []string

	mu         sync.Mutex
	colony     *aco.Colony
	rng        *rand.Rand
	iterations int
}

// Iterate runs one iteration under the handle's lock and returns the
// solutions together with the 1-based iteration number just completed.
func (h *ColonyHandle) Iterate(sink aco.Sink) ([]aco.Solution, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sols, err := h.colony.RunIteration(sink, h.rng)
	if err != nil {
		return nil, h.iterations, err
	}
	h.iterations++
	return sols, h.iterations, nil
}

// Snapshot returns the colony description with its current pheromone matrix.
func (h *ColonyHandle) Snapshot() model.ColonyOut {
	h.mu.Lock()
	defer h.mu.Unlock()
	return model.ColonyOut{
		ID:         h.ID,
		ProblemID:  h.ProblemID,
		Params:     h.Params,
		Iterations: h.iterations,
		Pheromones: h.colony.Pheromones(),
	}
}

// Registry holds the live colonies of all tenants. Colonies are in-memory
// only; restarting the process discards them.
type Registry struct {
	mu       sync.Mutex
	colonies map[string]*ColonyHandle
}

func NewRegistry() *Registry {
	return &Registry{colonies: map[string]*ColonyHandle{}}
}

// Create builds a colony over the problem matrix and registers it. A zero
// seed falls back to the wall clock.
func (r *Registry) Create(tenantID string, prob model.Problem, params model.SolverParams, seed int64) (*ColonyHandle, error) {
	c, err := aco.New(prob.Matrix, aco.Params{
		Alpha:            params.Alpha,
		Beta:             params.Beta,
		Rho:              params.Rho,
		Q:                params.Q,
		Ants:             params.Ants,
		Start:            params.Start,
		InitialPheromone: params.InitialPheromone,
	})
	if err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	h := &ColonyHandle{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ProblemID: prob.ID,
		Params:    params,
		Labels:    prob.Labels,
		colony:    c,
		rng:       rand.New(rand.NewSource(seed)),
	}
	r.mu.Lock()
	r.colonies[h.ID] = h
	r.mu.Unlock()
	return h, nil
}

// Get returns the colony if it exists and belongs to the tenant.
func (r *Registry) Get(tenantID, id string) (*ColonyHandle, bool) {
	r.mu.Lock()
	h, ok := r.colonies[id]
	r.mu.Unlock()
	if !ok || h.TenantID != tenantID {
		return nil, false
	}
	return h, true
}

// List returns the tenant's colonies in unspecified order.
func (r *Registry) List(tenantID string) []*ColonyHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*ColonyHandle{}
	for _, h := range r.colonies {
		if h.TenantID == tenantID {
			out = append(out, h)
		}
	}
	return out
}

// Delete removes the colony if it belongs to the tenant.
func (r *Registry) Delete(tenantID, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.colonies[id]
	if !ok || h.TenantID != tenantID {
		return false
	}
	delete(r.colonies, id)
	return true
}
