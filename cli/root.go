// Package cli implements the trpo command line interface
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nottombrown/parallel-trpo/baseline"
	"github.com/nottombrown/parallel-trpo/environment/envconfig"
	"github.com/nottombrown/parallel-trpo/experiment"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/schedule"
)

// options holds the values of the command line flags
type options struct {
	config     experiment.Config
	configFile string

	// Policy flags are not bound to config directly
	hiddenSizes []int
	activation  string
}

// GetRootCommand returns the trpo command, which trains a Gaussian
// policy with TRPO
func GetRootCommand() *cobra.Command {
	o := &options{config: experiment.DefaultConfig()}

	rootCommand := &cobra.Command{
		Use:          "trpo",
		Short:        "Train a Gaussian policy with parallel TRPO",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return Run(ctx, c, cmd.OutOrStdout())
		},
	}
	o.addFlags(rootCommand.Flags())
	rootCommand.AddCommand(tasksCommand())
	return rootCommand
}

func (o *options) addFlags(f *pflag.FlagSet) {
	c := &o.config

	f.StringVar(&o.configFile, "config", "", "JSON configuration file, "+
		"explicitly set flags override it")

	f.StringVar(&c.Task, "task", c.Task, "Task to train on")
	f.StringVar(&c.RunName, "run_name", c.RunName, "Name of the run")
	f.IntVar(&c.TimestepsPerBatch, "timesteps_per_batch",
		c.TimestepsPerBatch, "Timesteps collected per iteration")
	f.IntVar(&c.NSteps, "n_steps", c.NSteps, "Total timesteps to train for")
	f.Float64Var(&c.Gamma, "gamma", c.Gamma, "Discount factor")
	f.Float64Var(&c.MaxKL, "max_kl", c.MaxKL, "Initial KL divergence "+
		"bound of each update")
	f.Float64Var(&c.CGDamping, "cg_damping", c.CGDamping, "Damping of the "+
		"Fisher-vector product")
	f.IntVar(&c.NumThreads, "num_threads", c.NumThreads, "Number of "+
		"rollout workers")
	f.BoolVar(&c.Monitor, "monitor", c.Monitor, "Serve the training "+
		"status over HTTP")
	f.StringVar(&c.MonitorAddr, "monitor_addr", c.MonitorAddr, "Address "+
		"of the monitor")

	f.StringVar(&c.DecayMethod, "decay_method", c.DecayMethod,
		"Hyperparameter schedule: none, adaptive, or adaptive-margin")
	f.IntVar(&c.TimestepAdapt, "timestep_adapt", c.TimestepAdapt,
		"Change of the batch size at each adaptation")
	f.Float64Var(&c.KLAdapt, "kl_adapt", c.KLAdapt, "Change of the KL "+
		"bound at each adaptation")

	f.Uint64Var(&c.Seed, "seed", c.Seed, "Random seed")
	f.StringVar(&c.Baseline, "baseline", c.Baseline, "Value baseline: "+
		strings.Join(baseline.Names(), ", "))
	f.BoolVar(&c.CommitLineSearch, "commit_linesearch", c.CommitLineSearch,
		"Commit the line search result instead of the full step")
	f.IntVar(&c.HistoryEvery, "history_every", c.HistoryEvery, "Dump the "+
		"training history every N iterations, 0 disables dumps")
	f.BoolVar(&c.KeepHistory, "keep_history", c.KeepHistory, "Write each "+
		"history dump to a new file")

	f.StringVar(&c.Redis, "redis", c.Redis, "Address of a Redis server "+
		"to log iterations to")
	f.StringVar(&c.Plot, "plot", c.Plot, "Save a reward curve to this PNG "+
		"file")
	f.StringVar(&c.ReturnsFile, "returns_file", c.ReturnsFile, "Save the "+
		"mean reward of each iteration to this file")
	f.BoolVar(&c.Progress, "progress", c.Progress, "Show a progress bar "+
		"instead of the per-iteration report")
	f.DurationVar(&c.LearnerTimeout, "learner_timeout", c.LearnerTimeout,
		"Bound on each learner request, 0 disables the bound")

	f.IntSliceVar(&o.hiddenSizes, "hidden_sizes", c.Policy.HiddenSizes,
		"Hidden layer sizes of the policy")
	f.StringVar(&o.activation, "activation", string(c.Policy.Activation),
		"Hidden layer activation of the policy: relu or tanh")
}

// resolve returns the configuration of the run. If a configuration
// file was given, flags set on the command line override its values.
func (o *options) resolve(f *pflag.FlagSet) (experiment.Config, error) {
	if o.configFile != "" {
		// Flags bound to config are replayed over the loaded file
		changed := make(map[string]string)
		f.Visit(func(flag *pflag.Flag) {
			switch flag.Name {
			case "config", "hidden_sizes", "activation":
			default:
				changed[flag.Name] = flag.Value.String()
			}
		})

		loaded, err := experiment.LoadConfig(o.configFile)
		if err != nil {
			return experiment.Config{}, err
		}
		o.config = loaded
		for name, value := range changed {
			if err := f.Set(name, value); err != nil {
				return experiment.Config{}, fmt.Errorf("resolve: %v", err)
			}
		}
	}

	c := o.config
	if f.Changed("hidden_sizes") {
		c.Policy.HiddenSizes = o.hiddenSizes
	}
	if f.Changed("activation") {
		c.Policy.Activation = policy.Activation(o.activation)
	}
	return c, c.Validate()
}

// tasksCommand lists the available tasks, baselines and schedules
func tasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the available tasks, baselines and decay methods",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tasks: %v\n", strings.Join(envconfig.Tasks(), ", "))
			fmt.Fprintf(out, "Baselines: %v\n", strings.Join(baseline.Names(), ", "))
			fmt.Fprintf(out, "Decay methods: none, %v, %v\n",
				schedule.AdaptiveReward, schedule.AdaptiveMargin)
		},
	}
}
