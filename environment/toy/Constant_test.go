package toy

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestConstant(t *testing.T) {
	env, err := NewConstant(3, 1.5, 2)
	if err != nil {
		t.Fatal(err)
	}

	for episode := 0; episode < 2; episode++ {
		first, err := env.Reset()
		if err != nil {
			t.Fatal(err)
		}
		if first.Observation.AtVec(0) != 0 {
			t.Errorf("first observation\n\twant(0)\n\thave(%v)",
				first.Observation.AtVec(0))
		}

		var ret float64
		steps := 0
		for done := false; !done; {
			step, last, err := env.Step(mat.NewVecDense(2, []float64{9, -9}))
			if err != nil {
				t.Fatal(err)
			}
			ret += step.Reward
			steps++
			done = last
		}
		if steps != 3 || ret != 4.5 {
			t.Errorf("episode\n\twant(3 steps, return 4.5)\n\thave(%v "+
				"steps, return %v)", steps, ret)
		}
	}

	if _, _, err := env.Step(mat.NewVecDense(2, nil)); err == nil {
		t.Error("stepping a finished episode should fail")
	}
}

func TestNewConstantErrors(t *testing.T) {
	if _, err := NewConstant(0, 1, 1); err == nil {
		t.Error("expected error for zero episode length")
	}
	if _, err := NewConstant(1, 1, 0); err == nil {
		t.Error("expected error for zero action dimensions")
	}
}
