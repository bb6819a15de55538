package trpo

// Stats summarizes one learner update
type Stats struct {
	MeanReward float64
	Episodes   int
	Timesteps  int
	Entropy    float64
	MaxKL      float64

	// KLOldNew is the mean KL between the sampling distribution and the
	// updated policy
	KLOldNew float64

	SurrogateBefore float64
	SurrogateAfter  float64

	LineSearchAccepted bool
}

// Entry is one named statistic
type Entry struct {
	Key   string
	Value float64
}

// Entries returns the statistics reported after each update, in print
// order
func (s Stats) Entries() []Entry {
	return []Entry{
		{"Average sum of rewards per episode", s.MeanReward},
		{"Entropy", s.Entropy},
		{"max KL", s.MaxKL},
		{"Timesteps", float64(s.Timesteps)},
		{"KL between old and new distribution", s.KLOldNew},
		{"Surrogate loss", s.SurrogateAfter},
	}
}
