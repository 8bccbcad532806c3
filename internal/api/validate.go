package api

import (
	"fmt"

	"antsys/internal/model"
)

// validateProblemIn checks the cost matrix: it must be square with at least
// one location, zero on the diagonal, and strictly positive off the diagonal
// (visibility is the reciprocal of the cost).
func validateProblemIn(in *model.ProblemIn) error {
	n := len(in.Matrix)
	if n == 0 {
		return fmt.Errorf("matrix must not be empty")
	}
	for i, row := range in.Matrix {
		if len(row) != n {
			return fmt.Errorf("matrix row %d has %d entries, want %d", i, len(row), n)
		}
		for j, v := range row {
			if i == j && v != 0 {
				return fmt.Errorf("matrix[%d][%d] must be 0 on the diagonal", i, j)
			}
			if i != j && v <= 0 {
				return fmt.Errorf("matrix[%d][%d] must be > 0", i, j)
			}
		}
	}
	if len(in.Labels) > 0 && len(in.Labels) != n {
		return fmt.Errorf("labels must have %d entries, got %d", n, len(in.Labels))
	}
	return nil
}

// validateColonyRequest checks solver parameters after defaults were applied.
func validateColonyRequest(req *model.ColonyRequest, size int) error {
	if req.Rho < 0 || req.Rho > 1 {
		return fmt.Errorf("rho must be in [0,1]")
	}
	if req.Q <= 0 {
		return fmt.Errorf("q must be > 0")
	}
	if req.Ants < 1 {
		return fmt.Errorf("ants must be >= 1")
	}
	if req.Start < 0 || req.Start >= size {
		return fmt.Errorf("start must be in [0,%d)", size)
	}
	if req.Alpha < 0 || req.Beta < 0 {
		return fmt.Errorf("alpha and beta must be >= 0")
	}
	if req.InitialPheromone <= 0 {
		return fmt.Errorf("initialPheromone must be > 0")
	}
	return nil
}
