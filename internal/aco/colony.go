// Package aco implements a single iteration of the Ant System metaheuristic
// over a directed cost matrix: stochastic path construction guided by
// pheromone and visibility signals, followed by pheromone evaporation and
// deposition.
package aco

// Params holds the immutable configuration of a colony.
type Params struct {
	Alpha            float64 // pheromone exponent
	Beta             float64 // visibility exponent
	Rho              float64 // evaporation retention factor in [0,1]
	Q                float64 // deposition scale
	Ants             int     // paths constructed per iteration
	Start            int     // fixed start location for every ant
	InitialPheromone float64
}

// Colony owns the problem data and the mutable pheromone state.
// The cost and visibility matrices never change after construction;
// the pheromone matrix is rewritten once per RunIteration call.
type Colony struct {
	Params

	distances  [][]float64
	visibility [][]float64
	pheromones [][]float64
}

// New builds a colony from a square cost matrix. Visibility is the
// element-wise reciprocal of the costs; pheromones start at
// p.InitialPheromone everywhere except the diagonal, which is fixed at 0.
// A zero off-diagonal cost is a caller error and is not checked here.
func New(distances [][]float64, p Params) (*Colony, error) {
	n := len(distances)
	if n == 0 {
		return nil, ErrInvalidDimension
	}
	for _, row := range distances {
		if len(row) != n {
			return nil, ErrInvalidDimension
		}
	}

	visibility := make([][]float64, n)
	pheromones := make([][]float64, n)
	for i := 0; i < n; i++ {
		visibility[i] = make([]float64, n)
		pheromones[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			visibility[i][j] = 1.0 / distances[i][j]
			if i != j {
				pheromones[i][j] = p.InitialPheromone
			}
		}
	}

	return &Colony{
		Params:     p,
		distances:  distances,
		visibility: visibility,
		pheromones: pheromones,
	}, nil
}

// Size returns the number of locations.
func (c *Colony) Size() int { return len(c.distances) }

// Pheromones returns a copy of the current pheromone matrix.
func (c *Colony) Pheromones() [][]float64 {
	out := make([][]float64, len(c.pheromones))
	for i, row := range c.pheromones {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Pheromone returns the current pheromone level of the directed edge (from, to).
func (c *Colony) Pheromone(from, to int) float64 { return c.pheromones[from][to] }
