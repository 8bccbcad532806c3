package aco

import "math"

// Sampler yields uniform draws in [0,1). *math/rand.Rand satisfies it.
type Sampler interface {
	Float64() float64
}

// Solution is one ant's completed path and its cost.
type Solution struct {
	Path []int   `json:"path"`
	Cost float64 `json:"cost"`
}

// RunIteration constructs one path per ant, scores every path, then rewrites
// the pheromone matrix in place (evaporation, then deposition per using ant).
// Solutions are returned in ant-index order. Every intermediate computation is
// reported to sink; a sink error aborts the call at the point of failure and
// leaves the pheromone matrix as-is up to the cells already rewritten.
func (c *Colony) RunIteration(sink Sink, rng Sampler) ([]Solution, error) {
	if sink == nil {
		sink = NopSink{}
	}

	paths := make([][]int, 0, c.Ants)
	for ant := 0; ant < c.Ants; ant++ {
		path, err := c.buildPath(ant, sink, rng)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	solutions := make([]Solution, 0, len(paths))
	for ant, path := range paths {
		cost := c.pathCost(path)
		ev := Event{Kind: EventPathScored, Ant: ant, Path: append([]int(nil), path...), Cost: cost}
		if err := sink.Write(ev); err != nil {
			return nil, err
		}
		solutions = append(solutions, Solution{Path: append([]int(nil), path...), Cost: cost})
	}

	if err := c.updatePheromones(paths, sink); err != nil {
		return nil, err
	}
	return solutions, nil
}

// buildPath grows a path from the fixed start until every location is
// visited. At each step the next location is drawn by roulette-wheel
// selection over the unvisited candidates in ascending index order. One
// uniform draw is consumed per step even when a single candidate remains.
func (c *Colony) buildPath(ant int, sink Sink, rng Sampler) ([]int, error) {
	n := c.Size()
	path := make([]int, 0, n)
	path = append(path, c.Start)
	visited := make([]bool, n)
	visited[c.Start] = true

	if err := sink.Write(Event{Kind: EventAntStarted, Ant: ant, To: c.Start}); err != nil {
		return nil, err
	}

	for len(path) < n {
		curr := path[len(path)-1]
		if err := sink.Write(Event{Kind: EventStepStarted, Ant: ant, Step: len(path), From: curr}); err != nil {
			return nil, err
		}

		sum := 0.0
		for city := 0; city < n; city++ {
			if visited[city] {
				continue
			}
			sum += c.edgeWeight(curr, city)
		}

		type candidate struct {
			city int
			prob float64
		}
		cands := make([]candidate, 0, n-len(path))
		for city := 0; city < n; city++ {
			if visited[city] {
				continue
			}
			weight := c.edgeWeight(curr, city)
			prob := weight / sum
			ev := Event{Kind: EventCandidateScored, Ant: ant, From: curr, To: city, Weight: weight, Probability: prob}
			if err := sink.Write(ev); err != nil {
				return nil, err
			}
			cands = append(cands, candidate{city: city, prob: prob})
		}

		draw := rng.Float64()
		if err := sink.Write(Event{Kind: EventRandomDrawn, Ant: ant, Value: draw}); err != nil {
			return nil, err
		}

		// Walk the candidates in ascending index order accumulating
		// probability mass; the last candidate absorbs any floating-point
		// shortfall below 1.0.
		next := cands[len(cands)-1].city
		acc := 0.0
		for _, cand := range cands {
			acc += cand.prob
			if draw < acc {
				next = cand.city
				break
			}
		}

		if err := sink.Write(Event{Kind: EventCitySelected, Ant: ant, To: next}); err != nil {
			return nil, err
		}
		path = append(path, next)
		visited[next] = true
	}

	if err := sink.Write(Event{Kind: EventPathCompleted, Ant: ant, Path: append([]int(nil), path...)}); err != nil {
		return nil, err
	}
	return path, nil
}

func (c *Colony) edgeWeight(from, to int) float64 {
	return math.Pow(c.pheromones[from][to], c.Alpha) * math.Pow(c.visibility[from][to], c.Beta)
}

// pathCost sums the costs of the consecutive directed edges of an open path.
// No wrap-around edge back to the start is added.
func (c *Colony) pathCost(path []int) float64 {
	total := 0.0
	for k := 0; k+1 < len(path); k++ {
		total += c.distances[path[k]][path[k+1]]
	}
	return total
}

// updatePheromones performs one evaporation-plus-deposition pass over every
// cell of the pheromone matrix. An ant deposits Q divided by its path cost on
// each directed edge its path traverses; deposits from all ants sum into the
// same cell within this pass.
func (c *Colony) updatePheromones(paths [][]int, sink Sink) error {
	costs := make([]float64, len(paths))
	for i, p := range paths {
		costs[i] = c.pathCost(p)
	}

	n := c.Size()
	for r := 0; r < n; r++ {
		for col := 0; col < n; col++ {
			evaporated := c.Rho * c.pheromones[r][col]
			c.pheromones[r][col] = evaporated

			deposits := make([]float64, len(paths))
			for ant, p := range paths {
				if !hasEdge(p, r, col) {
					continue
				}
				d := c.Q / costs[ant]
				deposits[ant] = d
				c.pheromones[r][col] += d
			}

			ev := Event{
				Kind:       EventEdgeUpdated,
				From:       r,
				To:         col,
				Evaporated: evaporated,
				Deposits:   deposits,
				Value:      c.pheromones[r][col],
			}
			if err := sink.Write(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// hasEdge reports whether the path traverses the directed edge (from, to).
func hasEdge(path []int, from, to int) bool {
	for k := 0; k+1 < len(path); k++ {
		if path[k] == from && path[k+1] == to {
			return true
		}
	}
	return false
}
