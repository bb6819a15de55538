// Package monitor serves the progress of a training run over HTTP
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nottombrown/parallel-trpo/experiment/tracker"
	"github.com/nottombrown/parallel-trpo/trpo"
)

// Status is the training state reported by GET /status
type Status struct {
	RunName           string  `json:"run_name"`
	Iteration         int     `json:"iteration"`
	MeanReward        float64 `json:"mean_reward"`
	ElapsedSteps      int     `json:"elapsed_steps"`
	TimestepsPerBatch int     `json:"timesteps_per_batch"`
	MaxKL             float64 `json:"max_kl"`
	Entropy           float64 `json:"entropy"`
	KLOldNew          float64 `json:"kl_old_new"`
	Phase             string  `json:"phase"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Point is one iteration reported by GET /history
type Point struct {
	Iteration    int     `json:"iteration"`
	MeanReward   float64 `json:"mean_reward"`
	ElapsedSteps int     `json:"elapsed_steps"`
}

// Server is a Tracker which publishes each Record it receives to an
// HTTP endpoint. Handlers only read the snapshot taken by Track.
type Server struct {
	runName string
	phase   func() trpo.Phase
	started time.Time
	server  *http.Server

	mu      sync.RWMutex
	status  Status
	history []Point
}

// New returns a Server listening on addr once started. If phase is not
// nil it reports the phase of the learner.
func New(addr, runName string, phase func() trpo.Phase) *Server {
	s := &Server{
		runName: runName,
		phase:   phase,
		started: time.Now(),
		status:  Status{RunName: runName},
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/history", s.handleHistory)

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the HTTP handler of the Server
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves requests in a new goroutine
func (s *Server) Start() {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitor: %v", err)
		}
	}()
}

// Shutdown gracefully stops the Server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %v", err)
	}
	return nil
}

// Track implements the Tracker interface
func (s *Server) Track(r tracker.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Iteration = r.Iteration
	s.status.MeanReward = r.MeanReward
	s.status.ElapsedSteps = r.ElapsedSteps
	s.status.TimestepsPerBatch = r.TimestepsPerBatch
	s.status.MaxKL = r.MaxKL
	s.status.Entropy = r.Stats.Entropy
	s.status.KLOldNew = r.Stats.KLOldNew

	s.history = append(s.history, Point{
		Iteration:    r.Iteration,
		MeanReward:   r.MeanReward,
		ElapsedSteps: r.ElapsedSteps,
	})
	return nil
}

// Save implements the Tracker interface
func (s *Server) Save() error {
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	status.Phase = trpo.Idle.String()
	if s.phase != nil {
		status.Phase = s.phase().String()
	}
	status.Uptime = time.Since(s.started).Seconds()
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleHistory(c *gin.Context) {
	s.mu.RLock()
	history := make([]Point, len(s.history))
	copy(history, s.history)
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"run_name":   s.runName,
		"iterations": history,
	})
}
