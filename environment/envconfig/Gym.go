//go:build gym

package envconfig

import "github.com/nottombrown/parallel-trpo/environment/gym"

// With the gym build tag, any task without a registered factory is
// created through OpenAI Gym
func init() {
	SetFallback(gym.New)
}
