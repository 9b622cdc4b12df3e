package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the evidence polling queue.
type QueueConfig struct {
	MaxWorkers   int           // concurrent workers (default: 4)
	MaxRetries   int           // attempts per job before it is discarded (default: 10)
	PollInterval time.Duration // delay before a re-poll job runs (default: 15s)
	JobTimeout   time.Duration // per-job deadline (default: 1m)
}

// DefaultQueueConfig returns the shipped queue settings. Evidence extraction
// usually lands within a minute, so the chain stays short.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:   4,
		MaxRetries:   10,
		PollInterval: 15 * time.Second,
		JobTimeout:   time.Minute,
	}
}

// RiverQueueConfig maps the settings onto River's queue configuration.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: c.MaxWorkers},
	}
}
