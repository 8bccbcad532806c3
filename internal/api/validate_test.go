package api

import (
	"testing"

	"antsys/internal/model"
)

func TestValidateProblemIn(t *testing.T) {
	ok := model.ProblemIn{Matrix: [][]float64{{0, 1}, {1, 0}}}
	if err := validateProblemIn(&ok); err != nil {
		t.Fatalf("valid matrix rejected: %v", err)
	}

	cases := map[string]model.ProblemIn{
		"empty":            {Matrix: [][]float64{}},
		"ragged":           {Matrix: [][]float64{{0, 1}, {1, 0, 2}}},
		"nonzero diagonal": {Matrix: [][]float64{{1, 1}, {1, 0}}},
		"zero cost":        {Matrix: [][]float64{{0, 0}, {1, 0}}},
		"negative cost":    {Matrix: [][]float64{{0, -1}, {1, 0}}},
		"label mismatch":   {Matrix: [][]float64{{0, 1}, {1, 0}}, Labels: []string{"A"}},
	}
	for name, in := range cases {
		if err := validateProblemIn(&in); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestValidateColonyRequest(t *testing.T) {
	base := func() model.ColonyRequest {
		return model.ColonyRequest{Alpha: 1, Beta: 2, Rho: 0.5, Q: 100, Ants: 4, Start: 0, InitialPheromone: 1}
	}
	good := base()
	if err := validateColonyRequest(&good, 3); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	mutations := map[string]func(*model.ColonyRequest){
		"rho > 1":        func(r *model.ColonyRequest) { r.Rho = 1.1 },
		"rho < 0":        func(r *model.ColonyRequest) { r.Rho = -0.1 },
		"q <= 0":         func(r *model.ColonyRequest) { r.Q = 0 },
		"ants < 1":       func(r *model.ColonyRequest) { r.Ants = 0 },
		"start too big":  func(r *model.ColonyRequest) { r.Start = 3 },
		"start negative": func(r *model.ColonyRequest) { r.Start = -1 },
		"bad pheromone":  func(r *model.ColonyRequest) { r.InitialPheromone = 0 },
	}
	for name, mutate := range mutations {
		req := base()
		mutate(&req)
		if err := validateColonyRequest(&req, 3); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
