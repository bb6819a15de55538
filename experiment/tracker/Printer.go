package tracker

import (
	"fmt"
	"io"
	"strings"
)

// statsKeyWidth is the column the statistic values are printed at
const statsKeyWidth = 40

// Printer writes a progress report of every iteration
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Track implements the Tracker interface
func (p *Printer) Track(r Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "-------- Iteration %d ----------\n", r.Iteration)
	fmt.Fprintf(&b, "Total time: %.2f mins\n", r.TotalTime.Minutes())
	for _, e := range r.Stats.Entries() {
		pad := statsKeyWidth - len(e.Key)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(&b, "%s: %s%v\n", e.Key, strings.Repeat(" ", pad),
			e.Value)
	}
	fmt.Fprintf(&b, "Current steps is %d and KL is %v\n",
		r.TimestepsPerBatch, r.MaxKL)
	fmt.Fprintf(&b, "%d total steps have happened\n", r.TotalSteps)

	if _, err := io.WriteString(p.w, b.String()); err != nil {
		return fmt.Errorf("track: %v", err)
	}
	return nil
}

// Save implements the Tracker interface
func (p *Printer) Save() error {
	return nil
}
