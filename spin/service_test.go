package spin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/errors"
	"github.com/spinwin-labs/spin-reward-service/quota"
	"github.com/spinwin-labs/spin-reward-service/wheel"
)

func testTable(t *testing.T) *wheel.Table {
	t.Helper()
	table := &wheel.Table{Outcomes: []wheel.Outcome{
		{Label: "0.05 SOL", Weight: 45, Amount: decimal.RequireFromString("0.05"), AssetSymbol: "SOL"},
		{Label: "0.5 SOL", Weight: 5, Amount: decimal.RequireFromString("0.5"), AssetSymbol: "SOL"},
		{Label: "1 SOL", Weight: 0, Amount: decimal.RequireFromString("1"), AssetSymbol: "SOL"},
		{Label: "Try Again", Weight: 50, AssetSymbol: "SOL"},
	}}
	if err := table.Validate(); err != nil {
		t.Fatalf("test table invalid: %v", err)
	}
	return table
}

func newTestService(t *testing.T, maxSpins int) (*Service, *MemoryClaimStore) {
	t.Helper()
	claims := NewMemoryClaimStore()
	svc := NewService(quota.NewMemoryStore(maxSpins), testTable(t), claims, "test-seed", zerolog.Nop())
	return svc, claims
}

func TestExecuteConsumesQuota(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 3)

	seen := map[int]bool{}
	for want := 2; want >= 0; want-- {
		receipt, err := svc.Execute(ctx, "0xabc")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if receipt.Remaining != want {
			t.Errorf("Remaining = %d, want %d", receipt.Remaining, want)
		}
		if receipt.SpinID == "" {
			t.Error("empty spin id")
		}
		seen[receipt.Outcome.Index] = true
	}

	if seen[2] {
		t.Error("zero-weight outcome selected")
	}

	_, err := svc.Execute(ctx, "0xabc")
	if errors.GetCode(err) != errors.ErrQuotaExceeded {
		t.Fatalf("fourth Execute() error = %v, want quota exceeded", err)
	}
}

func TestExecuteWinCreatesPendingClaim(t *testing.T) {
	ctx := context.Background()
	svc, claims := newTestService(t, 100)

	// Spin until a winning outcome lands; the table wins half the time.
	var receipt *Receipt
	for i := 0; i < 100; i++ {
		r, err := svc.Execute(ctx, "0xabc")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if r.Outcome.Amount.IsPositive() {
			receipt = r
			break
		}
		if r.ClaimID != "" {
			t.Fatalf("losing outcome %q carries claim %s", r.Outcome.Label, r.ClaimID)
		}
	}
	if receipt == nil {
		t.Fatal("no winning outcome in 100 spins")
	}

	if receipt.ClaimID == "" {
		t.Fatal("winning receipt has no claim id")
	}
	claim, err := claims.Get(ctx, receipt.ClaimID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if claim.Status != ClaimPending {
		t.Errorf("claim status = %s, want pending", claim.Status)
	}
	if !claim.Amount.Equal(receipt.Outcome.Amount) {
		t.Errorf("claim amount = %s, want %s", claim.Amount, receipt.Outcome.Amount)
	}
	if claim.Identity != "0xabc" {
		t.Errorf("claim identity = %s", claim.Identity)
	}

	select {
	case <-svc.PendingClaims():
	default:
		t.Error("win did not signal the reconciler")
	}
}

func TestExecuteDeterministicForSeed(t *testing.T) {
	ctx := context.Background()
	svcA, _ := newTestService(t, 10)
	svcB, _ := newTestService(t, 10)

	for i := 0; i < 10; i++ {
		a, err := svcA.Execute(ctx, "0xabc")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		b, err := svcB.Execute(ctx, "0xabc")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if a.Outcome.Index != b.Outcome.Index {
			t.Fatalf("spin %d diverged: %d vs %d", i, a.Outcome.Index, b.Outcome.Index)
		}
		if a.Proof.Nonce != uint64(i) {
			t.Errorf("spin %d proof nonce = %d", i, a.Proof.Nonce)
		}
	}
}

func TestExecuteConcurrentSameIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 1000)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Execute(ctx, "0xabc")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && errors.GetCode(err) != errors.ErrSpinInFlight {
			t.Errorf("unexpected error: %v", err)
		}
	}
}

func TestClaimLookup(t *testing.T) {
	ctx := context.Background()
	svc, claims := newTestService(t, 3)

	claim := NewClaim("0xabc", "0.5 SOL", decimal.RequireFromString("0.5"), "SOL")
	if err := claims.Create(ctx, claim); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Claim(ctx, claim.ClaimID)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if got.ClaimID != claim.ClaimID {
		t.Errorf("ClaimID = %s, want %s", got.ClaimID, claim.ClaimID)
	}

	if _, err := svc.Claim(ctx, "missing"); errors.GetCode(err) != errors.ErrClaimNotFound {
		t.Errorf("missing claim error = %v", err)
	}
}

func TestNewClaimTimestamps(t *testing.T) {
	before := time.Now().UTC()
	claim := NewClaim("0xabc", "0.5 SOL", decimal.RequireFromString("0.5"), "SOL")
	after := time.Now().UTC()

	if claim.CreatedAt.Before(before) || claim.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v outside [%v, %v]", claim.CreatedAt, before, after)
	}
	if !claim.CreatedAt.Equal(claim.UpdatedAt) {
		t.Error("fresh claim should have equal timestamps")
	}
}
