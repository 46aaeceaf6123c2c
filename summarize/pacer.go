package summarize

import (
	"time"

	"golang.org/x/time/rate"
)

// NewPacer returns a token-bucket pacer that allows one call
// immediately and then one call per interval, matching the provider's
// requests-per-minute ceiling. The bucket is shared across all pipeline
// stages so stage boundaries are paced too.
func NewPacer(interval time.Duration) Pacer {
	return rate.NewLimiter(rate.Every(interval), 1)
}
