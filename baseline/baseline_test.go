package baseline

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/initwfn"
	"github.com/nottombrown/parallel-trpo/network"
	"github.com/nottombrown/parallel-trpo/rollout"
	"github.com/nottombrown/parallel-trpo/solver"
)

// testPath returns a path with n timesteps of 2-D observations whose
// returns are ret(t, o)
func testPath(n int, ret func(t int, o []float64) float64) *rollout.Path {
	obs := mat.NewDense(n, 2, nil)
	returns := make([]float64, n)
	for t := 0; t < n; t++ {
		o := []float64{math.Sin(float64(t)), float64(t%7) / 7}
		obs.SetRow(t, o)
		returns[t] = ret(t, o)
	}
	return &rollout.Path{
		Obs:     obs,
		Rewards: make([]float64, n),
		Returns: returns,
	}
}

func TestLinearUnfit(t *testing.T) {
	l := NewLinear()
	p := testPath(5, func(int, []float64) float64 { return 1 })
	if pred := l.Predict(p); !floats.Equal(pred, make([]float64, 5)) {
		t.Errorf("unfit prediction\n\twant(zeros)\n\thave(%v)", pred)
	}
	if l.Coefficients() != nil {
		t.Error("unfit baseline should have no coefficients")
	}
}

func TestLinearFit(t *testing.T) {
	paths := []*rollout.Path{
		testPath(50, func(t int, o []float64) float64 {
			return 3*o[0] - o[1]*o[1] + 0.5*float64(t)/TimeScale + 1
		}),
		testPath(30, func(t int, o []float64) float64 {
			return 3*o[0] - o[1]*o[1] + 0.5*float64(t)/TimeScale + 1
		}),
	}

	l := NewLinear()
	if err := l.Fit(paths); err != nil {
		t.Fatal(err)
	}

	// The coefficients solve the regularized normal equations
	x := stackRows(paths, linearFeatures)
	var y []float64
	for _, p := range paths {
		y = append(y, p.Returns...)
	}
	c := mat.NewVecDense(len(l.Coefficients()), l.Coefficients())

	var lhs, xtx, rhs mat.VecDense
	var gram mat.Dense
	gram.Mul(x.T(), x)
	xtx.MulVec(&gram, c)
	lhs.AddScaledVec(&xtx, RidgeRegularizer, c)
	rhs.MulVec(x.T(), mat.NewVecDense(len(y), y))
	if !mat.EqualApprox(&lhs, &rhs, 1e-8) {
		t.Errorf("normal equations\n\twant(%v)\n\thave(%v)",
			mat.Formatted(rhs.T()), mat.Formatted(lhs.T()))
	}

	// The fit is close on the training data
	pred := l.Predict(paths[0])
	var sse float64
	for i, v := range pred {
		sse += (v - paths[0].Returns[i]) * (v - paths[0].Returns[i])
	}
	if mse := sse / float64(len(pred)); mse > 0.05 {
		t.Errorf("training mse\n\twant(<= 0.05)\n\thave(%v)", mse)
	}
}

func TestLinearFitErrors(t *testing.T) {
	l := NewLinear()
	if err := l.Fit(nil); err == nil {
		t.Error("expected error for no paths")
	}

	p := testPath(3, func(int, []float64) float64 { return 0 })
	p.Returns = nil
	if err := l.Fit([]*rollout.Path{p}); err == nil {
		t.Error("expected error for missing returns")
	}
}

func TestZero(t *testing.T) {
	p := testPath(4, func(int, []float64) float64 { return 2 })
	var z Zero
	if err := z.Fit([]*rollout.Path{p}); err != nil {
		t.Fatal(err)
	}
	if pred := z.Predict(p); !floats.Equal(pred, make([]float64, 4)) {
		t.Errorf("prediction\n\twant(zeros)\n\thave(%v)", pred)
	}
}

func TestDefaultNeuralConfig(t *testing.T) {
	c := DefaultNeuralConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	adam, ok := c.Solver.Config.(solver.AdamConfig)
	if !ok {
		t.Fatalf("solver config\n\twant(AdamConfig)\n\thave(%T)",
			c.Solver.Config)
	}

	// Gradients of the mean squared error are not rescaled again
	if adam.Batch != 1 {
		t.Errorf("solver batch\n\twant(1)\n\thave(%v)", adam.Batch)
	}
}

func TestNeuralFit(t *testing.T) {
	initFn, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}
	adam, err := solver.NewDefaultAdam(1e-2, 1)
	if err != nil {
		t.Fatal(err)
	}
	c := NeuralConfig{
		HiddenSizes: []int{16},
		Biases:      []bool{true},
		Activations: []*network.Activation{network.TanH()},
		InitWFn:     initFn,
		Solver:      adam,
		BatchSize:   16,
		GradSteps:   500,
	}

	n, err := NewNeural(2, c, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	// Prediction spans several padded batches
	p := testPath(40, func(int, []float64) float64 { return 5 })
	if pred := n.Predict(p); !floats.Equal(pred, make([]float64, 40)) {
		t.Errorf("unfit prediction\n\twant(zeros)\n\thave(%v)", pred)
	}

	if err := n.Fit([]*rollout.Path{p}); err != nil {
		t.Fatal(err)
	}
	pred := n.Predict(p)
	if len(pred) != 40 {
		t.Fatalf("prediction length\n\twant(40)\n\thave(%v)", len(pred))
	}
	for i, v := range pred {
		if math.Abs(v-5) > 1 {
			t.Errorf("prediction %v\n\twant(5 ± 1)\n\thave(%v)", i, v)
		}
	}
}

func TestNeuralConfigErrors(t *testing.T) {
	c := DefaultNeuralConfig()
	c.Biases = c.Biases[:1]
	if _, err := NewNeural(2, c, 0); err == nil {
		t.Error("expected error for mismatched biases")
	}

	c = DefaultNeuralConfig()
	c.Solver = nil
	if _, err := NewNeural(2, c, 0); err == nil {
		t.Error("expected error for missing solver")
	}

	if _, err := NewNeural(0, DefaultNeuralConfig(), 0); err == nil {
		t.Error("expected error for zero observation dimensions")
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		b, err := New(name, 3, 0)
		if err != nil {
			t.Errorf("new(%v): %v", name, err)
		}
		if b == nil {
			t.Errorf("new(%v) returned nil", name)
		}
	}

	if b, err := New("", 3, 0); err != nil {
		t.Error(err)
	} else if _, ok := b.(*Linear); !ok {
		t.Errorf("default baseline\n\twant(*Linear)\n\thave(%T)", b)
	}

	if _, err := New("gp", 3, 0); !errors.Is(err, ErrUnknownBaseline) {
		t.Errorf("unknown baseline\n\twant(%v)\n\thave(%v)",
			ErrUnknownBaseline, err)
	}
}
