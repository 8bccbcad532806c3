package aco

import (
	"errors"
	"testing"
)

func TestNewRejectsNonSquareMatrix(t *testing.T) {
	cases := [][][]float64{
		{},
		{{0, 1}, {1}},
		{{0, 1, 2}, {1, 0, 1}},
	}
	for i, dist := range cases {
		if _, err := New(dist, testParams(1)); !errors.Is(err, ErrInvalidDimension) {
			t.Fatalf("case %d: got %v, want ErrInvalidDimension", i, err)
		}
	}
}

func TestNewVisibilityIsReciprocal(t *testing.T) {
	c, err := New(testMatrix3(), testParams(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.visibility[0][2]; got != 0.5 {
		t.Fatalf("visibility(0,2): got %v want 0.5", got)
	}
	if got := c.visibility[1][0]; got != 1.0 {
		t.Fatalf("visibility(1,0): got %v want 1.0", got)
	}
}

func TestNewPheromoneInit(t *testing.T) {
	p := testParams(1)
	p.InitialPheromone = 3.5
	c, err := New(testMatrix3(), p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ph := c.Pheromones()
	for i := range ph {
		for j := range ph[i] {
			want := 3.5
			if i == j {
				want = 0
			}
			if ph[i][j] != want {
				t.Fatalf("pheromone(%d,%d): got %v want %v", i, j, ph[i][j], want)
			}
		}
	}
}

func TestPheromonesReturnsCopy(t *testing.T) {
	c, err := New(testMatrix3(), testParams(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ph := c.Pheromones()
	ph[0][1] = 42
	if c.Pheromone(0, 1) == 42 {
		t.Fatal("Pheromones must return a copy")
	}
}
