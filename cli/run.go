package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/nottombrown/parallel-trpo/baseline"
	"github.com/nottombrown/parallel-trpo/environment/envconfig"
	"github.com/nottombrown/parallel-trpo/experiment"
	"github.com/nottombrown/parallel-trpo/experiment/checkpointer"
	"github.com/nottombrown/parallel-trpo/experiment/tracker"
	"github.com/nottombrown/parallel-trpo/monitor"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/rollout"
	"github.com/nottombrown/parallel-trpo/schedule"
	"github.com/nottombrown/parallel-trpo/trpo"
)

const (
	redisTimeout    = time.Second
	shutdownTimeout = 5 * time.Second
	progressWidth   = 50
)

// Run trains a policy as configured by c, writing progress to out. The
// trackers are saved even if training fails.
func Run(ctx context.Context, c experiment.Config, out io.Writer) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("run: %v", err)
	}

	factory, err := envconfig.FactoryFor(c.Task)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	probe, err := factory(c.Seed)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	obsDims := probe.ObservationSpec().Dims()
	actDims := probe.ActionSpec().Dims()
	probe.Close()

	p, err := policy.NewGaussianMLP(obsDims, actDims, c.Policy, c.Seed)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}

	collector, err := rollout.NewCollector(rollout.EnvFactory(factory), p,
		c.NumThreads, c.Seed)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	defer collector.Close()

	b, err := baseline.New(c.Baseline, obsDims, c.Seed)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	if closer, ok := b.(io.Closer); ok {
		defer closer.Close()
	}

	learner, err := trpo.NewLearner(p, b, c.TRPOConfig())
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	worker := trpo.NewWorker(learner, c.LearnerTimeout)
	defer worker.Close()

	s, err := schedule.New(c.DecayMethod, c.TimestepAdapt, c.KLAdapt)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}

	trainer, err := experiment.NewTrainer(collector, worker, s,
		c.InitialState(), c.NSteps)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}

	if c.Progress {
		trainer.Register(tracker.NewProgress(out, progressWidth, c.NSteps))
	} else {
		trainer.Register(tracker.NewPrinter(out))
	}
	if c.ReturnsFile != "" {
		trainer.Register(tracker.NewReturn(c.ReturnsFile))
	}
	if c.Plot != "" {
		title := fmt.Sprintf("%v on %v", c.RunName, c.Task)
		trainer.Register(tracker.NewPlot(title, c.Plot))
	}
	if c.Redis != "" {
		client := tracker.NewRedisClient(c.Redis)
		defer client.Close()
		trainer.Register(tracker.NewRedis(client, c.RunName, redisTimeout))
	}
	if c.Monitor {
		m := monitor.New(c.MonitorAddr, c.RunName, worker.Phase)
		m.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(),
				shutdownTimeout)
			defer cancel()
			if err := m.Shutdown(ctx); err != nil {
				log.Printf("run: %v", err)
			}
		}()
		log.Printf("monitor listening on %v", c.MonitorAddr)
		trainer.Register(m)
	}

	if c.HistoryEvery > 0 {
		filename := checkpointer.Fixed(c.HistoryFilename())
		if c.KeepHistory {
			filename = checkpointer.FilenameEnumerator(0, c.HistoryPrefix()+"-",
				".json")
		}
		h, err := checkpointer.NewNStep(c.HistoryEvery, trainer.History(),
			filename)
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		trainer.RegisterCheckpointer(h)
	}

	runErr := trainer.Run(ctx)
	if err := trainer.Save(); err != nil {
		if runErr == nil {
			return fmt.Errorf("run: %v", err)
		}
		log.Printf("run: %v", err)
	}
	return runErr
}
