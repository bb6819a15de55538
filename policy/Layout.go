package policy

import "fmt"

// Param describes where a single parameter tensor of a policy lives in
// the policy's flat parameter vector. Vectors (biases, the log standard
// deviation) are stored as a single row.
type Param struct {
	Name   string
	Offset int
	Rows   int
	Cols   int
}

// Size returns the number of scalars in the parameter
func (p Param) Size() int {
	return p.Rows * p.Cols
}

// Layout is the ordered list of parameters of a policy. The same
// Layout is used both to flatten and to unflatten parameters, so the
// order here is the order of the flat parameter vector.
type Layout []Param

// newLayout returns the layout of an MLP with the given layer sizes
// followed by a log standard deviation vector of length actionDims.
// Parameters are ordered W1, b1, W2, b2, ..., logstd.
func newLayout(features int, hiddenSizes []int, actionDims int) Layout {
	sizes := append(append([]int{features}, hiddenSizes...), actionDims)

	layout := make(Layout, 0, 2*(len(sizes)-1)+1)
	offset := 0
	for i := 1; i < len(sizes); i++ {
		w := Param{fmt.Sprintf("W%d", i), offset, sizes[i-1], sizes[i]}
		offset += w.Size()
		b := Param{fmt.Sprintf("b%d", i), offset, 1, sizes[i]}
		offset += b.Size()
		layout = append(layout, w, b)
	}
	layout = append(layout, Param{"logstd", offset, 1, actionDims})

	return layout
}

// Len returns the total number of scalars described by the Layout
func (l Layout) Len() int {
	if len(l) == 0 {
		return 0
	}
	last := l[len(l)-1]
	return last.Offset + last.Size()
}

// Slice returns the segment of flat that holds parameter i
func (l Layout) Slice(flat []float64, i int) []float64 {
	p := l[i]
	return flat[p.Offset : p.Offset+p.Size()]
}

// Name returns the name and row-major position of the scalar at index
// of the flat parameter vector, for example "W2[3,1]"
func (l Layout) Name(index int) string {
	for _, p := range l {
		if index >= p.Offset && index < p.Offset+p.Size() {
			k := index - p.Offset
			return fmt.Sprintf("%s[%d,%d]", p.Name, k/p.Cols, k%p.Cols)
		}
	}
	return fmt.Sprintf("?[%d]", index)
}
