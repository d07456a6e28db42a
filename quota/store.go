package quota

import (
	"context"
	"time"
)

// record is the persisted per-identity quota state. The count is only
// meaningful for the stored date; a stale date means the quota has reset.
type record struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// dateKey formats the quota day. Days roll over at UTC midnight.
func dateKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// remainingIn computes the spins left given a stored record. A record
// dated before today counts as unused; only Consume writes, so reads
// never race a concurrent increment.
func remainingIn(rec record, today string, max int) int {
	if rec.Date != today {
		return max
	}
	remaining := max - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Store tracks how many spins each identity has used today. The daily
// reset is lazy: a record from a previous day counts as zero.
type Store interface {
	// Remaining returns the number of spins the identity has left today.
	Remaining(ctx context.Context, identity string) (int, error)

	// Consume atomically uses one spin and returns the number left after
	// the consume. It returns errors.ErrQuotaExceeded (as an AppError)
	// without mutating state when the quota is exhausted.
	Consume(ctx context.Context, identity string) (int, error)
}

// Clock abstracts time for tests.
type Clock func() time.Time
