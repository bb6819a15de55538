package rollout

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Batch concatenates the timesteps of many paths. Every matrix has one
// row per timestep and Advantages has one element per timestep.
type Batch struct {
	Obs         *mat.Dense
	Actions     *mat.Dense
	MeanDists   *mat.Dense
	LogStdDists *mat.Dense
	Advantages  []float64
}

// Len returns the number of timesteps in the batch
func (b *Batch) Len() int {
	return len(b.Advantages)
}

// Concat concatenates paths, in order, into a Batch. Each path must
// have its Advantage computed.
func Concat(paths []*Path) (*Batch, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("concat: no paths")
	}

	total := 0
	for i, p := range paths {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("concat: path %v: %v", i, err)
		}
		if len(p.Advantage) != p.Len() {
			return nil, fmt.Errorf("concat: path %v: advantage length"+
				"\n\twant(%v)\n\thave(%v)", i, p.Len(), len(p.Advantage))
		}
		total += p.Len()
	}

	b := &Batch{
		Obs:         stack(paths, total, func(p *Path) *mat.Dense { return p.Obs }),
		Actions:     stack(paths, total, func(p *Path) *mat.Dense { return p.Actions }),
		MeanDists:   stack(paths, total, func(p *Path) *mat.Dense { return p.MeanDists }),
		LogStdDists: stack(paths, total, func(p *Path) *mat.Dense { return p.LogStdDists }),
		Advantages:  make([]float64, 0, total),
	}
	for _, p := range paths {
		b.Advantages = append(b.Advantages, p.Advantage...)
	}
	return b, nil
}

// stack vertically stacks one matrix field of each path
func stack(paths []*Path, rows int, field func(*Path) *mat.Dense) *mat.Dense {
	_, cols := field(paths[0]).Dims()
	out := mat.NewDense(rows, cols, nil)

	row := 0
	for _, p := range paths {
		m := field(p)
		r, _ := m.Dims()
		out.Slice(row, row+r, 0, cols).(*mat.Dense).Copy(m)
		row += r
	}
	return out
}
