package symdex

import "time"

const (
	// DefaultBatchSize is the number of files drained per scheduler batch.
	DefaultBatchSize = 15

	// MaxBatchSize is the hard ceiling protecting the symbol provider from
	// overload. Configured values outside (0, MaxBatchSize] clamp to it.
	MaxBatchSize = 200

	// DefaultBatchDelay is the cooperative yield between batches so search
	// queries sharing the process are not starved by indexing.
	DefaultBatchDelay = 100 * time.Millisecond

	// mtimeToleranceMs absorbs timestamp-precision differences across file
	// systems when reconciling stored mtimes against the workspace.
	mtimeToleranceMs int64 = 1000

	// maxFileFailures bounds consecutive per-file failures before a path is
	// no longer re-enqueued (until its mtime changes or a full rebuild).
	maxFileFailures = 3
)

// Config tunes the engine's scheduler and discovery behavior.
type Config struct {
	// BatchSize is the drain batch size; see MaxBatchSize for clamping.
	BatchSize int

	// BatchDelay is the pause between drained batches.
	BatchDelay time.Duration

	// Include, when non-empty, whitelists discovered files by glob
	// (doublestar syntax, matched against the workspace-relative path).
	Include []string

	// Exclude globs always subtract, applied after VCS-ignore rules.
	Exclude []string
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:  DefaultBatchSize,
		BatchDelay: DefaultBatchDelay,
	}
}

// effectiveBatchSize returns BatchSize if it lies in (0, MaxBatchSize],
// otherwise MaxBatchSize.
func (c Config) effectiveBatchSize() int {
	if c.BatchSize > 0 && c.BatchSize <= MaxBatchSize {
		return c.BatchSize
	}
	return MaxBatchSize
}
