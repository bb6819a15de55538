package tracker

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Progress draws a progress bar of the elapsed steps towards the step
// budget, redrawn in place after every iteration
type Progress struct {
	w         io.Writer
	width     int
	budget    int
	startTime time.Time
	last      Record
}

// NewProgress returns a Progress of the given width in characters which
// writes to w and is full once budget steps have elapsed
func NewProgress(w io.Writer, width, budget int) *Progress {
	return &Progress{
		w:         w,
		width:     width,
		budget:    budget,
		startTime: time.Now(),
	}
}

// Track implements the Tracker interface
func (p *Progress) Track(r Record) error {
	p.last = r
	if _, err := io.WriteString(p.w, "\n\033[1A\033[K"+p.bar()); err != nil {
		return fmt.Errorf("track: %v", err)
	}
	return nil
}

// bar renders the progress bar of the last Record
func (p *Progress) bar() string {
	fraction := float64(p.last.TotalSteps) / float64(p.budget)
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(p.width))

	var b strings.Builder
	b.WriteString("|")
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat(" ", p.width-filled))
	fmt.Fprintf(&b, "| [%.2f%% | iteration: %d | reward: %.2f | elapsed: %v]",
		fraction*100, p.last.Iteration, p.last.MeanReward,
		time.Since(p.startTime).Truncate(time.Second))
	return b.String()
}

// Save ends the progress bar line
func (p *Progress) Save() error {
	if _, err := io.WriteString(p.w, "\n"); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}
