package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nottombrown/parallel-trpo/trpo"
)

func testRecord(iteration int, reward float64) Record {
	return Record{
		Iteration:         iteration,
		MeanReward:        reward,
		ElapsedSteps:      1000 * (iteration - 1),
		TotalSteps:        1000 * iteration,
		TimestepsPerBatch: 1000,
		MaxKL:             0.01,
		TotalTime:         90 * time.Second,
		Stats: trpo.Stats{
			MeanReward: reward,
			Entropy:    1.5,
			MaxKL:      0.01,
			Timesteps:  1000,
			KLOldNew:   0.002,
		},
	}
}

func TestPrinter(t *testing.T) {
	var out strings.Builder
	p := NewPrinter(&out)
	if err := p.Track(testRecord(3, -120.5)); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"-------- Iteration 3 ----------",
		"Total time: 1.50 mins",
		"Average sum of rewards per episode:       -120.5",
		"Entropy:                                  1.5",
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %v\n\twant(%q)\n\thave(%q)", i, w, lines[i])
		}
	}

	last := lines[len(lines)-2:]
	if last[0] != "Current steps is 1000 and KL is 0.01" ||
		last[1] != "3000 total steps have happened" {
		t.Errorf("footer\n\twant(steps, KL, total)\n\thave(%q)", last)
	}
}

func TestReturn(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)
	for i, reward := range []float64{-3, 2, 7.5} {
		if err := r.Track(testRecord(i+1, reward)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := LoadData(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-3, 2, 7.5}
	if len(data) != len(want) {
		t.Fatalf("loaded data\n\twant(%v)\n\thave(%v)", want, data)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("loaded data\n\twant(%v)\n\thave(%v)", want, data)
		}
	}

	if _, err := LoadData(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error loading a missing file")
	}
}

// fakeStream records XAdd calls
type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestRedis(t *testing.T) {
	fake := &fakeStream{}
	r := NewRedis(fake, "pendulum", time.Second)
	if r.Stream() != "trpo:pendulum" {
		t.Errorf("stream\n\twant(trpo:pendulum)\n\thave(%v)", r.Stream())
	}

	if err := r.Track(testRecord(2, 4.25)); err != nil {
		t.Fatal(err)
	}
	if len(fake.args) != 1 {
		t.Fatalf("stream entries\n\twant(1)\n\thave(%v)", len(fake.args))
	}
	args := fake.args[0]
	values := args.Values.(map[string]interface{})
	if args.Stream != "trpo:pendulum" || values["iteration"] != 2 ||
		values["mean_reward"] != 4.25 || values["elapsed_steps"] != 1000 {
		t.Errorf("entry\n\twant(trpo:pendulum 2 4.25 1000)\n\thave(%v %v)",
			args.Stream, values)
	}

	fake.err = errors.New("connection refused")
	if err := r.Track(testRecord(3, 0)); err == nil {
		t.Error("expected error from failing stream")
	}
}

func TestPlot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "reward.png")
	p := NewPlot("Pendulum-v0", filename)

	// Nothing is written without data
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		t.Errorf("empty plot\n\twant(no file)\n\thave(%v)", err)
	}

	for i, reward := range []float64{-900, -600, -300} {
		if err := p.Track(testRecord(i+1, reward)); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
		t.Errorf("plot file\n\twant(non-empty file)\n\thave(%v, %v)", info,
			err)
	}
}

func TestProgress(t *testing.T) {
	var out strings.Builder
	p := NewProgress(&out, 10, 4000)

	if err := p.Track(testRecord(2, -50)); err != nil {
		t.Fatal(err)
	}
	bar := "|" + strings.Repeat("█", 5) + strings.Repeat(" ", 5) + "|"
	if !strings.Contains(out.String(), bar) ||
		!strings.Contains(out.String(), "[50.00% | iteration: 2 | reward: -50.00") {
		t.Errorf("half way\n\twant(%v)\n\thave(%v)", bar, out.String())
	}

	// Overshooting the budget keeps the bar full
	out.Reset()
	if err := p.Track(testRecord(5, 0)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "|"+strings.Repeat("█", 10)+"|") ||
		!strings.Contains(out.String(), "[100.00%") {
		t.Errorf("full bar\n\thave(%v)", out.String())
	}

	if err := p.Save(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Error("save should end the progress line")
	}
}
