package provider

import (
	"context"
	"crypto/ecdsa"
	stderrors "errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/errors"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

// Commitment levels map to confirmation depths: a transaction is
// "processed" once it has a successful receipt, "confirmed" after one
// extra block, "finalized" after thirty-two.
var commitmentDepth = map[string]uint64{
	"processed": 0,
	"confirmed": 1,
	"finalized": 32,
}

// RPCClient is the subset of the node RPC the provider uses.
type RPCClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// ChainProvider submits native-asset transfers through a node RPC
// endpoint and waits for them to reach a commitment level.
type ChainProvider struct {
	client       RPCClient
	signerKey    *ecdsa.PrivateKey
	from         common.Address
	chainID      *big.Int
	decimals     int32
	depth        uint64
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewChainProvider dials the configured endpoint and prepares the signing
// key.
func NewChainProvider(cfg *config.Config, logger zerolog.Logger) (*ChainProvider, error) {
	endpoint := strings.TrimSpace(cfg.Chain.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("chain endpoint required")
	}
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain endpoint: %w", err)
	}
	return newChainProvider(client, cfg, logger)
}

func newChainProvider(client RPCClient, cfg *config.Config, logger zerolog.Logger) (*ChainProvider, error) {
	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(cfg.Chain.SignerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}

	depth, ok := commitmentDepth[cfg.Chain.Commitment]
	if !ok {
		return nil, fmt.Errorf("unknown commitment level %q", cfg.Chain.Commitment)
	}

	pollInterval := cfg.Chain.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}

	return &ChainProvider{
		client:       client,
		signerKey:    key,
		from:         gethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:      big.NewInt(cfg.Chain.ChainID),
		decimals:     cfg.Chain.Decimals,
		depth:        depth,
		pollInterval: pollInterval,
		logger:       logger.With().Str("component", "chain_provider").Logger(),
	}, nil
}

// toBaseUnits converts a decimal asset amount into the chain's smallest
// unit. Sub-unit precision is rejected rather than truncated.
func (p *ChainProvider) toBaseUnits(amount decimal.Decimal) (*big.Int, error) {
	scaled := amount.Shift(p.decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, p.decimals)
	}
	return scaled.BigInt(), nil
}

// SubmitTransfer signs and broadcasts a native transfer, returning the
// transaction hash.
func (p *ChainProvider) SubmitTransfer(ctx context.Context, req *providers.TransferRequest) (string, error) {
	if !common.IsHexAddress(req.Recipient) {
		return "", errors.New(errors.ErrChainError, "invalid recipient address")
	}
	value, err := p.toBaseUnits(req.Amount)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidAmount, "unrepresentable transfer amount")
	}

	nonce, err := p.client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrChainError, "failed to fetch nonce")
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrChainError, "failed to fetch gas price")
	}

	tx := gethtypes.NewTransaction(nonce, common.HexToAddress(req.Recipient), value, 21000, gasPrice, nil)
	signed, err := gethtypes.SignTx(tx, gethtypes.NewEIP155Signer(p.chainID), p.signerKey)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrChainError, "failed to sign transaction")
	}

	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return "", errors.Wrap(err, errors.ErrChainError, "failed to broadcast transaction")
	}

	hash := signed.Hash().Hex()
	p.logger.Info().
		Str("tx_hash", hash).
		Str("recipient", req.Recipient).
		Str("amount", req.Amount.String()).
		Msg("transfer broadcast")
	return hash, nil
}

// AwaitConfirmation polls for the receipt until the transaction reaches
// the configured commitment level or the context expires.
func (p *ChainProvider) AwaitConfirmation(ctx context.Context, txHash string) (*providers.TransferResult, error) {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		confirmed, err := p.checkConfirmed(ctx, hash)
		if err != nil {
			return nil, err
		}
		if confirmed {
			return &providers.TransferResult{TxHash: txHash, Confirmed: true}, nil
		}

		select {
		case <-ctx.Done():
			return &providers.TransferResult{TxHash: txHash, Confirmed: false},
				errors.Wrap(ctx.Err(), errors.ErrChainError, "confirmation wait expired")
		case <-ticker.C:
		}
	}
}

func (p *ChainProvider) checkConfirmed(ctx context.Context, hash common.Hash) (bool, error) {
	receipt, err := p.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if stderrors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrChainError, "failed to fetch receipt")
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return false, errors.New(errors.ErrChainError, "transaction reverted")
	}
	if p.depth == 0 {
		return true, nil
	}

	header, err := p.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrChainError, "failed to fetch head")
	}
	if header.Number.Cmp(receipt.BlockNumber) < 0 {
		return false, nil
	}
	confirmations := new(big.Int).Sub(header.Number, receipt.BlockNumber)
	return confirmations.Cmp(new(big.Int).SetUint64(p.depth)) >= 0, nil
}
