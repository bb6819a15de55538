package pendulum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/nottombrown/parallel-trpo/environment"
)

func newUpright(t *testing.T, task func(environment.Starter, int) environment.Task,
	limit int) *Pendulum {
	t.Helper()
	s := environment.NewUniformStarter([]r1.Interval{{}, {}}, 1)
	p, first, err := New(task(s, limit))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !first.First() || first.Number != 0 {
		t.Errorf("first step\n\twant(First, 0)\n\thave(%v, %v)",
			first.StepType, first.Number)
	}
	return p
}

func swingUp(s environment.Starter, limit int) environment.Task {
	return NewSwingUp(s, limit)
}

func torqueCost(s environment.Starter, limit int) environment.Task {
	return NewTorqueCost(s, limit)
}

func TestStepLimit(t *testing.T) {
	const limit = 5
	p := newUpright(t, swingUp, limit)
	if p.TimestepLimit() != limit {
		t.Errorf("timestep limit\n\twant(%v)\n\thave(%v)", limit,
			p.TimestepLimit())
	}

	zero := mat.NewVecDense(1, nil)
	for i := 1; i <= limit; i++ {
		step, done, err := p.Step(zero)
		if err != nil {
			t.Fatalf("step %v: %v", i, err)
		}
		if done != (i == limit) || step.Last() != done {
			t.Errorf("step %v: done\n\twant(%v)\n\thave(%v)", i, i == limit,
				done)
		}
		if step.Number != i {
			t.Errorf("step number\n\twant(%v)\n\thave(%v)", i, step.Number)
		}
	}
}

func TestSwingUpReward(t *testing.T) {
	p := newUpright(t, swingUp, 10)

	// Upright and at rest, the pendulum barely moves
	step, _, err := p.Step(mat.NewVecDense(1, nil))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(step.Reward-1) > 1e-9 {
		t.Errorf("upright reward\n\twant(1)\n\thave(%v)", step.Reward)
	}
}

func TestTorqueCost(t *testing.T) {
	p := newUpright(t, torqueCost, 10)

	// Torque beyond the bound is clipped before it is charged
	step, _, err := p.Step(mat.NewVecDense(1, []float64{10}))
	if err != nil {
		t.Fatal(err)
	}
	want := -0.001 * TorqueBound * TorqueBound
	if math.Abs(step.Reward-want) > 1e-12 {
		t.Errorf("torque cost\n\twant(%v)\n\thave(%v)", want, step.Reward)
	}

	// Clipped torque moves the pendulum like the maximum torque
	thdot := 3.0 / (Mass * Length * Length) * TorqueBound * dt
	if got := step.Observation.AtVec(1); math.Abs(got-thdot) > 1e-9 {
		t.Errorf("angular velocity\n\twant(%v)\n\thave(%v)", thdot, got)
	}
}

func TestStepInvalidAction(t *testing.T) {
	p := newUpright(t, swingUp, 10)
	if _, _, err := p.Step(mat.NewVecDense(2, nil)); err == nil {
		t.Error("expected error for 2-dimensional action")
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi + 0.5, -math.Pi + 0.5},
		{-math.Pi - 0.5, math.Pi - 0.5},
		{7, 7 - 2*math.Pi},
	}
	for _, c := range cases {
		if got := normalizeAngle(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("normalizeAngle(%v)\n\twant(%v)\n\thave(%v)", c.in,
				c.want, got)
		}
	}
}
