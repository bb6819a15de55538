package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nottombrown/parallel-trpo/experiment/tracker"
	"github.com/nottombrown/parallel-trpo/trpo"
)

func get(t *testing.T, s *Server, path string, v interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET %v: status\n\twant(%v)\n\thave(%v)", path,
			http.StatusOK, rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("GET %v: %v", path, err)
	}
}

func TestHealth(t *testing.T) {
	s := New(":0", "run", nil)
	var body map[string]string
	get(t, s, "/healthz", &body)
	if body["status"] != "ok" {
		t.Errorf("health\n\twant(ok)\n\thave(%v)", body["status"])
	}
}

func TestStatus(t *testing.T) {
	s := New(":0", "pendulum", func() trpo.Phase { return trpo.Solving })

	var status Status
	get(t, s, "/status", &status)
	if status.Iteration != 0 || status.RunName != "pendulum" {
		t.Errorf("initial status\n\twant(iteration 0, run pendulum)"+
			"\n\thave(%+v)", status)
	}

	for i := 1; i <= 2; i++ {
		err := s.Track(tracker.Record{
			Iteration:         i,
			MeanReward:        float64(-100 * i),
			ElapsedSteps:      (i - 1) * 1000,
			TotalSteps:        i * 1000,
			TimestepsPerBatch: 1000,
			MaxKL:             0.01,
			Stats:             trpo.Stats{Entropy: 1.5},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	get(t, s, "/status", &status)
	want := Status{
		RunName:           "pendulum",
		Iteration:         2,
		MeanReward:        -200,
		ElapsedSteps:      1000,
		TimestepsPerBatch: 1000,
		MaxKL:             0.01,
		Entropy:           1.5,
		Phase:             "Solving",
	}
	status.Uptime = 0
	if status != want {
		t.Errorf("status\n\twant(%+v)\n\thave(%+v)", want, status)
	}

	var history struct {
		RunName    string  `json:"run_name"`
		Iterations []Point `json:"iterations"`
	}
	get(t, s, "/history", &history)
	if len(history.Iterations) != 2 {
		t.Fatalf("history length\n\twant(2)\n\thave(%v)",
			len(history.Iterations))
	}
	if p := history.Iterations[1]; p.Iteration != 2 || p.MeanReward != -200 ||
		p.ElapsedSteps != 1000 {
		t.Errorf("second point\n\twant({2 -200 1000})\n\thave(%+v)", p)
	}
	if p := history.Iterations[1]; p.ElapsedSteps != status.ElapsedSteps {
		t.Errorf("elapsed steps of status and history\n\twant(%v)"+
			"\n\thave(%v)", status.ElapsedSteps, p.ElapsedSteps)
	}
}

func TestStartShutdown(t *testing.T) {
	s := New("127.0.0.1:0", "run", nil)
	s.Start()
	if err := s.Shutdown(context.Background()); err != nil {
		t.Error(err)
	}
}
