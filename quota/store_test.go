package quota

import (
	"context"
	"testing"
	"time"
)

func TestRemainingIn(t *testing.T) {
	tests := []struct {
		name  string
		rec   record
		today string
		max   int
		want  int
	}{
		{"missing record", record{}, "2026-08-30", 3, 3},
		{"stale record counts as unused", record{Date: "2026-08-29", Count: 3}, "2026-08-30", 3, 3},
		{"current record", record{Date: "2026-08-30", Count: 1}, "2026-08-30", 3, 2},
		{"exhausted", record{Date: "2026-08-30", Count: 3}, "2026-08-30", 3, 0},
		{"over-consumed clamps to zero", record{Date: "2026-08-30", Count: 5}, "2026-08-30", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remainingIn(tt.rec, tt.today, tt.max); got != tt.want {
				t.Errorf("remainingIn(%+v) = %d, want %d", tt.rec, got, tt.want)
			}
		})
	}
}

func TestRemainingDoesNotRewriteStaleRecords(t *testing.T) {
	day := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(3).WithClock(func() time.Time { return day })

	ctx := context.Background()
	if _, err := store.Consume(ctx, "0xabc"); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	// Next day: a read must not write a fresh record over anything a
	// concurrent Consume may have stored in the meantime.
	day = day.Add(24 * time.Hour)
	remaining, err := store.Remaining(ctx, "0xabc")
	if err != nil || remaining != 3 {
		t.Fatalf("Remaining() = %d, %v, want 3 after day change", remaining, err)
	}
	if rec := store.records["0xabc"]; rec.Date != "2026-08-29" || rec.Count != 1 {
		t.Errorf("Remaining() mutated the stored record: %+v", rec)
	}
}
