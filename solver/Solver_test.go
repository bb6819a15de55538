package solver

import (
	"encoding/json"
	"testing"
)

func TestSolverJSON(t *testing.T) {
	adam, err := NewDefaultAdam(1e-3, 32)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(adam)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != Adam || decoded.Config != adam.Config {
		t.Errorf("decoded solver\n\twant(%v %v)\n\thave(%v %v)", Adam,
			adam.Config, decoded.Type, decoded.Config)
	}
	if decoded.Solver == nil {
		t.Error("decoded solver should wrap a Gorgonia solver")
	}
}

func TestSolverErrors(t *testing.T) {
	if _, err := newSolver(Adam, VanillaConfig{StepSize: 1, Batch: 1}); err == nil {
		t.Error("expected error for mismatched type and config")
	}
	if _, err := NewVanilla(0, 1, 0); err == nil {
		t.Error("expected error for zero step size")
	}

	var s Solver
	if err := json.Unmarshal([]byte(`{"Type": "RMSProp"}`), &s); err == nil {
		t.Error("expected error for unknown solver type")
	}
}
