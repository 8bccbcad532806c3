// Package config loads solver defaults from an optional YAML file.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Solver holds the default Ant System parameters applied when a colony
// request leaves a field unset.
type Solver struct {
	Alpha            float64 `yaml:"alpha"`
	Beta             float64 `yaml:"beta"`
	Rho              float64 `yaml:"rho"`
	Q                float64 `yaml:"q"`
	Ants             int     `yaml:"ants"`
	InitialPheromone float64 `yaml:"initialPheromone"`
}

// DefaultSolver returns the built-in defaults.
func DefaultSolver() Solver {
	return Solver{Alpha: 1, Beta: 2, Rho: 0.5, Q: 100, Ants: 10, InitialPheromone: 1}
}

// LoadSolver reads defaults from a YAML file, overlaying the built-ins.
func LoadSolver(path string) (Solver, error) {
	s := DefaultSolver()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Rho < 0 || s.Rho > 1 {
		return s, fmt.Errorf("parse %s: rho must be in [0,1]", path)
	}
	if s.Ants < 1 {
		return s, fmt.Errorf("parse %s: ants must be >= 1", path)
	}
	return s, nil
}

// SolverFromEnv loads defaults from the file named by SOLVER_CONFIG, falling
// back to the built-ins when the variable is unset.
func SolverFromEnv() (Solver, error) {
	path := os.Getenv("SOLVER_CONFIG")
	if path == "" {
		return DefaultSolver(), nil
	}
	return LoadSolver(path)
}
