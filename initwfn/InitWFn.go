// Package initwfn wraps Gorgonia weight initializers so that they can
// be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type names a kind of weight initializer
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	Uniform Type = "Uniform"
	Zeroes  Type = "Zeroes"
)

// configTypes maps each Type to its concrete Config
var configTypes = map[Type]reflect.Type{
	GlorotU: reflect.TypeOf(GlorotUConfig{}),
	GlorotN: reflect.TypeOf(GlorotNConfig{}),
	Uniform: reflect.TypeOf(UniformConfig{}),
	Zeroes:  reflect.TypeOf(ZeroesConfig{}),
}

// InitWFn wraps a Gorgonia InitWFn together with the Config that
// created it
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// Config describes a Gorgonia InitWFn and can create it
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// ValidType returns whether a specific InitWFn type can be created
	// with the Config
	ValidType(Type) bool
}

// New returns a new InitWFn of type t described by c
func New(t Type, c Config) (*InitWFn, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("new: invalid initializer type %v for "+
			"configuration %T", t, c)
	}
	return &InitWFn{initWFn: c.Create(), Type: t, Config: c}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	ty, ok := configTypes[raw.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown initializer type %q",
			raw.Type)
	}

	value := reflect.New(ty)
	if len(raw.Config) > 0 {
		if err := json.Unmarshal(raw.Config, value.Interface()); err != nil {
			return fmt.Errorf("unmarshalJSON: %v", err)
		}
	}
	config := value.Elem().Interface().(Config)

	i.Type = raw.Type
	i.Config = config
	i.initWFn = config.Create()
	return nil
}

// GlorotUConfig configures Glorot uniform initialization
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return New(GlorotU, GlorotUConfig{Gain: gain})
}

func (g GlorotUConfig) Create() G.InitWFn     { return G.GlorotU(g.Gain) }
func (g GlorotUConfig) ValidType(t Type) bool { return t == GlorotU }

// GlorotNConfig configures Glorot normal initialization
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return New(GlorotN, GlorotNConfig{Gain: gain})
}

func (g GlorotNConfig) Create() G.InitWFn     { return G.GlorotN(g.Gain) }
func (g GlorotNConfig) ValidType(t Type) bool { return t == GlorotN }

// UniformConfig configures weights drawn from U[Low, High]
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	if high < low {
		return nil, fmt.Errorf("newUniform: high %v < low %v", high, low)
	}
	return New(Uniform, UniformConfig{Low: low, High: high})
}

func (u UniformConfig) Create() G.InitWFn     { return G.Uniform(u.Low, u.High) }
func (u UniformConfig) ValidType(t Type) bool { return t == Uniform }

// ZeroesConfig configures all-zero weights
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() (*InitWFn, error) {
	return New(Zeroes, ZeroesConfig{})
}

func (z ZeroesConfig) Create() G.InitWFn     { return G.Zeroes() }
func (z ZeroesConfig) ValidType(t Type) bool { return t == Zeroes }
