package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutRequest is the claim submitted to the external payout service.
type PayoutRequest struct {
	ClaimID string          `json:"claimId"`
	Address string          `json:"address"`
	Reward  string          `json:"reward"`
	Amount  decimal.Decimal `json:"amount"`
	Chain   string          `json:"chain"`
}

// PayoutResult is the payout service's decision on a claim. Exactly one of
// TxReference and ErrorMessage is set.
type PayoutResult struct {
	Accepted     bool
	TxReference  string
	ErrorMessage string
}

// PayoutProvider submits reward claims to the payout service. A returned
// error means the service could not be reached or gave an unusable
// response; a non-nil result carries the service's accept/decline
// decision.
type PayoutProvider interface {
	Claim(ctx context.Context, req *PayoutRequest) (*PayoutResult, error)
}

// Winner is one entry of the recent-winners feed.
type Winner struct {
	Address   string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
	TxHash    string          `json:"txHash"`
	Timestamp time.Time       `json:"timestamp"`
}

// WinnersProvider fetches the recent-winners list from the payout service.
type WinnersProvider interface {
	Recent(ctx context.Context, limit int) ([]Winner, error)
}

// TransferRequest describes an on-chain native-asset transfer.
type TransferRequest struct {
	Recipient string
	Amount    decimal.Decimal
}

// TransferResult reports a submitted transfer. Confirmed reflects whether
// the transfer reached the requested commitment before the wait ended.
type TransferResult struct {
	TxHash    string
	Confirmed bool
}

// ChainProvider submits and confirms native-asset transfers.
type ChainProvider interface {
	// SubmitTransfer signs and broadcasts a transfer, returning its hash.
	SubmitTransfer(ctx context.Context, req *TransferRequest) (string, error)

	// AwaitConfirmation blocks until the transaction reaches the
	// configured commitment level or the context expires.
	AwaitConfirmation(ctx context.Context, txHash string) (*TransferResult, error)
}

// SessionProvider reports whether an identity has a live wallet session.
// The wallet handshake itself happens elsewhere; this only checks the
// session record it leaves behind.
type SessionProvider interface {
	HasSession(ctx context.Context, identity string) (bool, error)
}
