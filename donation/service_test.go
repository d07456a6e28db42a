package donation

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/errors"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

type fakeSessions struct {
	connected map[string]bool
}

func (f *fakeSessions) HasSession(_ context.Context, identity string) (bool, error) {
	return f.connected[identity], nil
}

type fakeChain struct {
	submitted  []*providers.TransferRequest
	submitErr  error
	confirmErr error
	confirmed  bool
}

func (f *fakeChain) SubmitTransfer(_ context.Context, req *providers.TransferRequest) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return "0xtx", nil
}

func (f *fakeChain) AwaitConfirmation(_ context.Context, txHash string) (*providers.TransferResult, error) {
	if f.confirmErr != nil {
		return &providers.TransferResult{TxHash: txHash, Confirmed: false}, f.confirmErr
	}
	return &providers.TransferResult{TxHash: txHash, Confirmed: f.confirmed}, nil
}

func donationConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Donation = config.DonationConfig{
		MinAmount: decimal.RequireFromString("0.001"),
		Recipient: "0x2222222222222222222222222222222222222222",
	}
	cfg.Chain.ConfirmTimeout = time.Second
	return cfg
}

func newTestService(sessions *fakeSessions, chain *fakeChain) *Service {
	return NewService(donationConfig(), sessions, chain, zerolog.Nop())
}

func TestDonateBelowMinimumNeverTouchesChain(t *testing.T) {
	chain := &fakeChain{confirmed: true}
	svc := newTestService(&fakeSessions{connected: map[string]bool{"0xabc": true}}, chain)

	_, err := svc.Donate(context.Background(), "0xabc", decimal.RequireFromString("0.0005"))
	if errors.GetCode(err) != errors.ErrInvalidAmount {
		t.Fatalf("Donate() error = %v, want invalid amount", err)
	}
	if len(chain.submitted) != 0 {
		t.Error("undersized donation reached the chain")
	}
}

func TestDonateRequiresSession(t *testing.T) {
	chain := &fakeChain{confirmed: true}
	svc := newTestService(&fakeSessions{connected: map[string]bool{}}, chain)

	_, err := svc.Donate(context.Background(), "0xabc", decimal.RequireFromString("0.01"))
	if errors.GetCode(err) != errors.ErrWalletNotConnected {
		t.Fatalf("Donate() error = %v, want wallet not connected", err)
	}
	if len(chain.submitted) != 0 {
		t.Error("sessionless donation reached the chain")
	}
}

func TestDonateConfirmed(t *testing.T) {
	chain := &fakeChain{confirmed: true}
	svc := newTestService(&fakeSessions{connected: map[string]bool{"0xabc": true}}, chain)

	receipt, err := svc.Donate(context.Background(), "0xabc", decimal.RequireFromString("0.01"))
	if err != nil {
		t.Fatalf("Donate() error = %v", err)
	}
	if !receipt.Confirmed || receipt.TxHash != "0xtx" {
		t.Errorf("receipt = %+v", receipt)
	}
	if receipt.Recipient != "0x2222222222222222222222222222222222222222" {
		t.Errorf("recipient = %s", receipt.Recipient)
	}

	if len(chain.submitted) != 1 {
		t.Fatalf("submitted %d transfers, want 1", len(chain.submitted))
	}
	if !chain.submitted[0].Amount.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("transfer amount = %s", chain.submitted[0].Amount)
	}
}

func TestDonateMinimumExactlyAccepted(t *testing.T) {
	chain := &fakeChain{confirmed: true}
	svc := newTestService(&fakeSessions{connected: map[string]bool{"0xabc": true}}, chain)

	if _, err := svc.Donate(context.Background(), "0xabc", decimal.RequireFromString("0.001")); err != nil {
		t.Fatalf("Donate() at exact minimum error = %v", err)
	}
}

func TestDonateConfirmationTimeoutFails(t *testing.T) {
	chain := &fakeChain{confirmErr: context.DeadlineExceeded}
	svc := newTestService(&fakeSessions{connected: map[string]bool{"0xabc": true}}, chain)

	receipt, err := svc.Donate(context.Background(), "0xabc", decimal.RequireFromString("0.01"))
	if err == nil {
		t.Fatalf("Donate() = %+v, want error for unconfirmed transfer", receipt)
	}
	if errors.GetCode(err) != errors.ErrChainError {
		t.Errorf("Donate() error = %v, want chain error", err)
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || !strings.Contains(appErr.DebugMessage, "0xtx") {
		t.Errorf("error detail = %v, the broadcast hash must surface", err)
	}
}

func TestDonateSubmitFailure(t *testing.T) {
	chain := &fakeChain{submitErr: errors.New(errors.ErrChainError, "failed to broadcast transaction")}
	svc := newTestService(&fakeSessions{connected: map[string]bool{"0xabc": true}}, chain)

	if _, err := svc.Donate(context.Background(), "0xabc", decimal.RequireFromString("0.01")); errors.GetCode(err) != errors.ErrChainError {
		t.Fatalf("Donate() error = %v, want chain error", err)
	}
}
