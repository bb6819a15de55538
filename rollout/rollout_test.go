package rollout

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/environment/toy"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/timestep"
)

func TestDiscount(t *testing.T) {
	cases := []struct {
		x     []float64
		gamma float64
		want  []float64
	}{
		{[]float64{1, 1, 1}, 0.5, []float64{1.75, 1.5, 1}},
		{[]float64{1, 2, 3}, 1, []float64{6, 5, 3}},
		{[]float64{1, 2, 3}, 0, []float64{1, 2, 3}},
		{nil, 0.9, []float64{}},
	}
	for _, c := range cases {
		if got := Discount(c.x, c.gamma); !floats.Equal(got, c.want) {
			t.Errorf("discount(%v, %v)\n\twant(%v)\n\thave(%v)", c.x, c.gamma,
				c.want, got)
		}
	}
}

func TestNormalizeAdvantages(t *testing.T) {
	adv := []float64{1, 2, 3, 4, 10}
	NormalizeAdvantages(adv)

	if mean := stat.Mean(adv, nil); math.Abs(mean) > 1e-12 {
		t.Errorf("mean\n\twant(0)\n\thave(%v)", mean)
	}
	if std := stat.PopStdDev(adv, nil); math.Abs(std-1) > 1e-6 {
		t.Errorf("std\n\twant(1)\n\thave(%v)", std)
	}

	// Constant advantages normalize to zero rather than NaN
	constant := []float64{3, 3, 3}
	NormalizeAdvantages(constant)
	for _, v := range constant {
		if v != 0 {
			t.Fatalf("constant advantages\n\twant(0)\n\thave(%v)", constant)
		}
	}
}

func testPath(n, features, actDims int, offset float64) *Path {
	fill := func(r, c int) *mat.Dense {
		data := make([]float64, r*c)
		for i := range data {
			data[i] = offset + float64(i)
		}
		return mat.NewDense(r, c, data)
	}
	rewards := make([]float64, n)
	adv := make([]float64, n)
	for i := range rewards {
		rewards[i] = 1
		adv[i] = offset + float64(i)
	}
	return &Path{
		Obs:         fill(n, features),
		Actions:     fill(n, actDims),
		MeanDists:   fill(n, actDims),
		LogStdDists: fill(n, actDims),
		Rewards:     rewards,
		Advantage:   adv,
	}
}

func TestConcat(t *testing.T) {
	paths := []*Path{testPath(2, 3, 1, 0), testPath(3, 3, 1, 100)}
	b, err := Concat(paths)
	if err != nil {
		t.Fatal(err)
	}

	if b.Len() != 5 {
		t.Fatalf("batch length\n\twant(5)\n\thave(%v)", b.Len())
	}
	for _, m := range []*mat.Dense{b.Obs, b.Actions, b.MeanDists,
		b.LogStdDists} {
		if r, _ := m.Dims(); r != 5 {
			t.Errorf("rows\n\twant(5)\n\thave(%v)", r)
		}
	}

	// Rows keep path order
	if got := b.Obs.RawRowView(2); !floats.Equal(got, []float64{100, 101, 102}) {
		t.Errorf("first row of second path\n\twant([100 101 102])\n\thave(%v)",
			got)
	}
	want := []float64{0, 1, 100, 101, 102}
	if !floats.Equal(b.Advantages, want) {
		t.Errorf("advantages\n\twant(%v)\n\thave(%v)", want, b.Advantages)
	}
}

func TestConcatErrors(t *testing.T) {
	if _, err := Concat(nil); err == nil {
		t.Error("expected error for no paths")
	}

	p := testPath(2, 1, 1, 0)
	p.Advantage = p.Advantage[:1]
	if _, err := Concat([]*Path{p}); err == nil {
		t.Error("expected error for missing advantages")
	}

	p = testPath(2, 1, 1, 0)
	p.Obs = mat.NewDense(3, 1, nil)
	if _, err := Concat([]*Path{p}); err == nil {
		t.Error("expected error for inconsistent path")
	}
}

func constantFactory(length int) EnvFactory {
	return func(uint64) (environment.Environment, error) {
		return toy.NewConstant(length, 1, 1)
	}
}

func newTestPolicy(t *testing.T) *policy.GaussianMLP {
	t.Helper()
	p, err := policy.NewGaussianMLP(1, 1, policy.DefaultConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCollect(t *testing.T) {
	c, err := NewCollector(constantFactory(10), newTestPolicy(t), 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for round := 0; round < 3; round++ {
		paths, err := c.Collect(context.Background(), 25)
		if err != nil {
			t.Fatal(err)
		}

		total := 0
		for _, p := range paths {
			if err := p.Validate(); err != nil {
				t.Fatal(err)
			}
			if p.Len() != 10 || p.TotalReward() != 10 || !p.Terminated {
				t.Errorf("path\n\twant(length 10, reward 10, terminated)"+
					"\n\thave(length %v, reward %v, terminated %v)", p.Len(),
					p.TotalReward(), p.Terminated)
			}
			total += p.Len()
		}
		if total < 25 {
			t.Errorf("round %v: timesteps\n\twant(>= 25)\n\thave(%v)", round,
				total)
		}
	}
}

func TestCollectRecordsDistributions(t *testing.T) {
	prototype := newTestPolicy(t)
	c, err := NewCollector(constantFactory(4), prototype, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	paths, err := c.Collect(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	p := paths[0]
	tape := prototype.Forward(p.Obs)
	if !mat.EqualApprox(tape.Mean, p.MeanDists, 1e-12) {
		t.Error("recorded means should match the policy's forward pass")
	}
	for i := 0; i < p.Len(); i++ {
		if !floats.Equal(p.LogStdDists.RawRowView(i), prototype.LogStd()) {
			t.Errorf("row %v: recorded logstd\n\twant(%v)\n\thave(%v)", i,
				prototype.LogStd(), p.LogStdDists.RawRowView(i))
		}
	}
	for i := 0; i < p.Len(); i++ {
		if got, want := p.Obs.At(i, 0), float64(i)/4; got != want {
			t.Errorf("observation %v\n\twant(%v)\n\thave(%v)", i, want, got)
		}
	}
}

func TestSetParams(t *testing.T) {
	prototype := newTestPolicy(t)
	c, err := NewCollector(constantFactory(3), prototype, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	theta := make([]float64, prototype.NumParams())
	if err := c.SetParams(theta); err != nil {
		t.Fatal(err)
	}

	// With all parameters zero the means are exactly zero
	paths, err := c.Collect(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if mat.Max(p.MeanDists) != 0 || mat.Min(p.MeanDists) != 0 {
			t.Errorf("means after broadcast\n\twant(0)\n\thave(%v)",
				mat.Formatted(p.MeanDists))
		}
	}

	if err := c.SetParams(theta[1:]); err == nil {
		t.Error("expected error for wrong parameter length")
	}
}

func TestCollectCancelled(t *testing.T) {
	c, err := NewCollector(constantFactory(5), newTestPolicy(t), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Collect(ctx, 1_000_000); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled collect\n\twant(%v)\n\thave(%v)", context.Canceled,
			err)
	}

	// The collector is usable after a cancelled collection
	if _, err := c.Collect(context.Background(), 5); err != nil {
		t.Error(err)
	}
}

// failing is an environment whose steps always fail
type failing struct {
	*toy.Constant
}

func (f failing) Step(*mat.VecDense) (timestep.TimeStep, bool, error) {
	return timestep.TimeStep{}, true, errors.New("simulator crashed")
}

func TestCollectWorkerError(t *testing.T) {
	factory := func(uint64) (environment.Environment, error) {
		c, err := toy.NewConstant(5, 1, 1)
		return failing{c}, err
	}
	c, err := NewCollector(factory, newTestPolicy(t), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Collect(context.Background(), 10); err == nil {
		t.Error("expected worker error to be surfaced")
	}
}

func TestNewCollectorErrors(t *testing.T) {
	if _, err := NewCollector(constantFactory(5), newTestPolicy(t), 0,
		0); err == nil {
		t.Error("expected error for zero workers")
	}

	wide, err := policy.NewGaussianMLP(3, 1, policy.DefaultConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCollector(constantFactory(5), wide, 1, 0); err == nil {
		t.Error("expected error for mismatched dimensions")
	}

	broken := func(uint64) (environment.Environment, error) {
		return nil, errors.New("no simulator")
	}
	if _, err := NewCollector(broken, newTestPolicy(t), 1, 0); err == nil {
		t.Error("expected error for failing factory")
	}
}

func TestClose(t *testing.T) {
	c, err := NewCollector(constantFactory(5), newTestPolicy(t), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close\n\twant(nil)\n\thave(%v)", err)
	}
	if _, err := c.Collect(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("collect after close\n\twant(%v)\n\thave(%v)", ErrClosed, err)
	}
}
