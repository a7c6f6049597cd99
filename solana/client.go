package vault_protocol

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultEndpoint       = "http://localhost:8899"
	DefaultConfirmTimeout = 60 * time.Second

	defaultPollInterval = 500 * time.Millisecond
)

// ErrTransactionFailed is returned when a transaction landed but the program
// rejected it.
var ErrTransactionFailed = errors.New("transaction failed")

// Config holds the connection settings of a Client.
type Config struct {
	Endpoints      []string
	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// AccountInfo is the on-chain state of one account.
type AccountInfo struct {
	Owner    solana.PublicKey
	Data     []byte
	Lamports uint64
}

// Client talks to one or more RPC endpoints of the same cluster. Calls start
// at the next endpoint in turn and fail over to the others on error.
type Client struct {
	endpoints []string
	clients   []*rpc.Client
	next      atomic.Uint32

	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration

	logger zerolog.Logger
}

// NewClient creates a Client for the configured endpoints.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	var endpoints []string
	for _, e := range cfg.Endpoints {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	if len(endpoints) == 0 {
		endpoints = []string{DefaultEndpoint}
	}

	commitment, err := ParseCommitment(string(cfg.Commitment))
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoints:      endpoints,
		commitment:     commitment,
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   cfg.PollInterval,
		logger: logger.With().
			Str("component", "rpc_client").
			Logger(),
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = DefaultConfirmTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	for _, e := range endpoints {
		c.clients = append(c.clients, rpc.New(e))
	}

	c.logger.Debug().
		Strs("endpoints", endpoints).
		Str("commitment", string(commitment)).
		Msg("rpc client created")
	return c, nil
}

// ParseCommitment validates a commitment name. Empty means confirmed.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch c := rpc.CommitmentType(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return rpc.CommitmentConfirmed, nil
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported commitment %q", s)
	}
}

// executeWithFailover runs fn against each endpoint in turn until one
// succeeds. Context errors end the loop immediately.
func (c *Client) executeWithFailover(ctx context.Context, operation string, fn func(*rpc.Client) error) error {
	start := int(c.next.Add(1)-1) % len(c.clients)

	var lastErr error
	for attempt := 0; attempt < len(c.clients); attempt++ {
		i := (start + attempt) % len(c.clients)

		begin := time.Now()
		err := fn(c.clients[i])
		latency := time.Since(begin)
		if err == nil {
			c.logger.Debug().
				Str("operation", operation).
				Str("url", c.endpoints[i]).
				Dur("latency", latency).
				Int("attempt", attempt+1).
				Msg("operation completed successfully")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		c.logger.Warn().
			Str("operation", operation).
			Str("url", c.endpoints[i]).
			Dur("latency", latency).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return fmt.Errorf("%s failed on all %d endpoints: %w", operation, len(c.clients), lastErr)
}

// Submit signs instructions into one transaction, sends it, and waits until
// it reaches the configured commitment. The first signer pays the fee.
func (c *Client) Submit(ctx context.Context, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error) {
	if len(signers) == 0 {
		return solana.Signature{}, errors.New("at least one signer is required")
	}

	var latestBlockhash *rpc.GetLatestBlockhashResult
	err := c.executeWithFailover(ctx, "get_latest_blockhash", func(client *rpc.Client) error {
		var innerErr error
		latestBlockhash, innerErr = client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		return innerErr
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(signers[0].PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			for i := range signers {
				if signers[i].PublicKey().Equals(key) {
					return &signers[i]
				}
			}
			return nil
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	var sig solana.Signature
	err = c.executeWithFailover(ctx, "send_transaction", func(client *rpc.Client) error {
		var innerErr error
		sig, innerErr = client.SendTransactionWithOpts(
			ctx,
			tx,
			rpc.TransactionOpts{
				SkipPreflight:       false,
				PreflightCommitment: c.commitment,
			},
		)
		return innerErr
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Debug().
		Str("signature", sig.String()).
		Int("instructions", len(instructions)).
		Msg("transaction sent")

	if err := c.waitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

var confirmationRank = map[rpc.ConfirmationStatusType]int{
	rpc.ConfirmationStatusProcessed: 1,
	rpc.ConfirmationStatusConfirmed: 2,
	rpc.ConfirmationStatusFinalized: 3,
}

var commitmentRank = map[rpc.CommitmentType]int{
	rpc.CommitmentProcessed: 1,
	rpc.CommitmentConfirmed: 2,
	rpc.CommitmentFinalized: 3,
}

// waitForConfirmation polls the signature status until the configured
// commitment is reached, the transaction fails, or the timeout elapses.
func (c *Client) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	want := commitmentRank[c.commitment]
	for {
		var statuses *rpc.GetSignatureStatusesResult
		err := c.executeWithFailover(ctx, "get_signature_statuses", func(client *rpc.Client) error {
			var innerErr error
			statuses, innerErr = client.GetSignatureStatuses(ctx, false, sig)
			return innerErr
		})
		if err != nil {
			c.logger.Debug().Err(err).Msg("error checking transaction status")
		} else if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err)
			}
			if confirmationRank[status.ConfirmationStatus] >= want {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to confirm transaction %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetAccountInfo returns nil without an error when the account does not
// exist.
func (c *Client) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	var resp *rpc.GetAccountInfoResult
	err := c.executeWithFailover(ctx, "get_account_info", func(client *rpc.Client) error {
		var innerErr error
		resp, innerErr = client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Commitment: c.commitment,
		})
		if errors.Is(innerErr, rpc.ErrNotFound) {
			resp, innerErr = nil, nil
		}
		return innerErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}
	if resp == nil || resp.Value == nil {
		return nil, nil
	}

	return &AccountInfo{
		Owner:    resp.Value.Owner,
		Data:     resp.Value.Data.GetBinary(),
		Lamports: resp.Value.Lamports,
	}, nil
}

// GetBalance retrieves the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	var balance uint64
	err := c.executeWithFailover(ctx, "get_balance", func(client *rpc.Client) error {
		resp, innerErr := client.GetBalance(ctx, address, c.commitment)
		if innerErr != nil {
			return innerErr
		}
		balance = resp.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	var lamports uint64
	err := c.executeWithFailover(ctx, "get_minimum_balance_for_rent_exemption", func(client *rpc.Client) error {
		var innerErr error
		lamports, innerErr = client.GetMinimumBalanceForRentExemption(ctx, size, c.commitment)
		return innerErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get rent exemption minimum: %w", err)
	}
	return lamports, nil
}

// RequestAirdrop asks the cluster faucet for lamports and waits for the
// airdrop to confirm.
func (c *Client) RequestAirdrop(ctx context.Context, address solana.PublicKey, lamports uint64) error {
	var sig solana.Signature
	err := c.executeWithFailover(ctx, "request_airdrop", func(client *rpc.Client) error {
		var innerErr error
		sig, innerErr = client.RequestAirdrop(ctx, address, lamports, c.commitment)
		return innerErr
	})
	if err != nil {
		return fmt.Errorf("failed to request airdrop: %w", err)
	}

	c.logger.Debug().
		Str("address", address.String()).
		Uint64("lamports", lamports).
		Str("signature", sig.String()).
		Msg("airdrop requested")

	return c.waitForConfirmation(ctx, sig)
}
