package confirming

import "time"

// Config carries the confirming set's batching parameters (spec.md §4.5).
type Config struct {
	// BatchTime bounds how long a single write transaction stays open
	// draining the processing set before it is committed.
	BatchTime time.Duration
	// NotificationWorkers sizes the dedicated pool that dispatches
	// cemented-block observer callbacks, kept off the confirmation
	// write path so observers never block cementation.
	NotificationWorkers int
}

func DefaultConfig() Config {
	return Config{
		BatchTime:           250 * time.Millisecond,
		NotificationWorkers: 1,
	}
}
