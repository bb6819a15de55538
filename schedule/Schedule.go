// Package schedule implements strategies that adapt the batch size and
// trust region size of TRPO between iterations based on the rewards
// observed.
package schedule

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/nottombrown/parallel-trpo/trpo"
)

// Type names a schedule strategy
type Type string

// Available schedule types
const (
	Fixed          Type = "fixed"
	AdaptiveReward Type = "adaptive"
	AdaptiveMargin Type = "adaptive-margin"
)

// configTypes maps each Type to the concrete Config describing it
var configTypes = map[Type]reflect.Type{
	Fixed:          reflect.TypeOf(FixedConfig{}),
	AdaptiveReward: reflect.TypeOf(AdaptiveConfig{}),
	AdaptiveMargin: reflect.TypeOf(AdaptiveConfig{}),
}

// Schedule adapts the training state after each iteration
type Schedule interface {
	// Adapt observes the mean episode reward of the iteration
	// s.Iteration and may change s.TimestepsPerBatch and s.MaxKL. It
	// returns whether s changed.
	Adapt(meanReward float64, s *trpo.State) bool
}

// Strategy wraps a Schedule so that it can be JSON marshalled and
// unmarshalled
type Strategy struct {
	Schedule `json:"-"`
	Type
	Config
}

// Config describes a Schedule and can create it
type Config interface {
	Create(Type) Schedule

	// ValidType returns whether a specific schedule type can be created
	// with the Config
	ValidType(Type) bool
}

// NewStrategy returns a new Strategy with the given type and
// configuration
func NewStrategy(t Type, c Config) (*Strategy, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newStrategy: invalid schedule type %v for "+
			"configuration %T", t, c)
	}
	return &Strategy{Schedule: c.Create(t), Type: t, Config: c}, nil
}

// New returns the Strategy with the given command line name. The names
// "none" and "" select the Fixed schedule.
func New(name string, timestepAdapt int, klAdapt float64) (*Strategy,
	error) {
	switch Type(name) {
	case "", "none", Fixed:
		return NewStrategy(Fixed, FixedConfig{})

	case AdaptiveReward, AdaptiveMargin:
		c := DefaultAdaptiveConfig()
		c.TimestepAdapt = timestepAdapt
		c.KLAdapt = klAdapt
		if Type(name) == AdaptiveMargin {
			c.MaxTimesteps = MarginMaxTimesteps
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("new: %v", err)
		}
		return NewStrategy(Type(name), c)
	}
	return nil, fmt.Errorf("new: unknown decay method %q", name)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	ty, ok := configTypes[raw.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown schedule type %q",
			raw.Type)
	}
	value := reflect.New(ty)
	if ty == reflect.TypeOf(AdaptiveConfig{}) {
		value.Elem().Set(reflect.ValueOf(DefaultAdaptiveConfig()))
	}
	if len(raw.Config) > 0 {
		if err := json.Unmarshal(raw.Config, value.Interface()); err != nil {
			return fmt.Errorf("unmarshalJSON: %v", err)
		}
	}

	s.Type = raw.Type
	s.Config = value.Elem().Interface().(Config)
	s.Schedule = s.Config.Create(s.Type)
	return nil
}

// FixedConfig configures a schedule that never changes the state
type FixedConfig struct{}

// Create implements the Config interface
func (FixedConfig) Create(Type) Schedule { return fixed{} }

// ValidType implements the Config interface
func (FixedConfig) ValidType(t Type) bool { return t == Fixed }

type fixed struct{}

func (fixed) Adapt(float64, *trpo.State) bool { return false }
