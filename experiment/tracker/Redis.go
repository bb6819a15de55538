package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamPrefix prefixes the run name to form the stream key
const StreamPrefix = "trpo:"

// StreamAdder appends entries to a Redis stream. *redis.Client
// satisfies it.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Redis logs every iteration as an entry of a Redis stream keyed by the
// run name
type Redis struct {
	client  StreamAdder
	stream  string
	timeout time.Duration
}

// NewRedis returns a Redis Tracker writing to the stream of runName
func NewRedis(client StreamAdder, runName string,
	timeout time.Duration) *Redis {
	return &Redis{
		client:  client,
		stream:  StreamPrefix + runName,
		timeout: timeout,
	}
}

// NewRedisClient returns a Redis client for the server at addr
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: time.Second,
	})
}

// Stream returns the key of the stream written to
func (r *Redis) Stream() string {
	return r.stream
}

// Track implements the Tracker interface
func (r *Redis) Track(rec Record) error {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"iteration":     rec.Iteration,
			"mean_reward":   rec.MeanReward,
			"elapsed_steps": rec.ElapsedSteps,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("track: could not add to stream %v: %v", r.stream,
			err)
	}
	return nil
}

// Save implements the Tracker interface
func (r *Redis) Save() error {
	return nil
}
