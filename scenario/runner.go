// Package scenario runs end-to-end setups and exploits against a chain. It
// is the only place where derived addresses, builders and exploit plans meet
// the network.
package scenario

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"vault-cli/exploit"
	vault_protocol "vault-cli/solana"
)

// Chain is what a scenario needs from the cluster.
type Chain interface {
	Submit(ctx context.Context, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error)
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*vault_protocol.AccountInfo, error)
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	RequestAirdrop(ctx context.Context, address solana.PublicKey, lamports uint64) error
}

// Programs holds the deployed program ids of each level.
type Programs struct {
	Level0   solana.PublicKey
	Level1   solana.PublicKey
	Level2   solana.PublicKey
	Level3   solana.PublicKey
	Attacker solana.PublicKey
}

// Params configures a Runner.
type Params struct {
	Programs Programs
	Keys     map[exploit.Role]solana.PrivateKey

	// Victim is the authority whose funds the exploits target. It defaults
	// to the public key of the authority role.
	Victim solana.PublicKey
}

// Report summarizes one run.
type Report struct {
	Level      string
	Accounts   map[string]solana.PublicKey
	Signatures []solana.Signature

	// exploit runs only
	Target        solana.PublicKey
	Amount        uint64
	BalanceBefore uint64
	BalanceAfter  uint64
}

func newReport(level string) *Report {
	return &Report{Level: level, Accounts: make(map[string]solana.PublicKey)}
}

type Runner struct {
	chain    Chain
	programs Programs
	keys     map[exploit.Role]solana.PrivateKey
	victim   solana.PublicKey
	logger   zerolog.Logger
}

func NewRunner(chain Chain, params Params, logger zerolog.Logger) *Runner {
	keys := make(map[exploit.Role]solana.PrivateKey, len(params.Keys))
	for role, key := range params.Keys {
		keys[role] = key
	}

	victim := params.Victim
	if victim.IsZero() {
		if authority, ok := keys[exploit.RoleAuthority]; ok {
			victim = authority.PublicKey()
		}
	}

	return &Runner{
		chain:    chain,
		programs: params.Programs,
		keys:     keys,
		victim:   victim,
		logger: logger.With().
			Str("component", "scenario").
			Logger(),
	}
}

func (r *Runner) key(role exploit.Role) (solana.PrivateKey, error) {
	key, ok := r.keys[role]
	if !ok {
		return nil, fmt.Errorf("no key configured for role %q", role)
	}
	return key, nil
}

func (r *Runner) victimAuthority() (solana.PublicKey, error) {
	if r.victim.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("no victim authority configured")
	}
	return r.victim, nil
}

// submit sends one transaction and records its signature in report.
func (r *Runner) submit(ctx context.Context, report *Report, name string, instructions []solana.Instruction, signers ...solana.PrivateKey) error {
	sig, err := r.chain.Submit(ctx, instructions, signers...)
	if err != nil {
		return fmt.Errorf("step %q failed: %w", name, err)
	}

	r.logger.Info().
		Str("level", report.Level).
		Str("step", name).
		Str("signature", sig.String()).
		Msg("step confirmed")

	report.Signatures = append(report.Signatures, sig)
	return nil
}

// Execute submits each step of plan in order, each confirmed before the next.
func (r *Runner) Execute(ctx context.Context, report *Report, plan *exploit.Plan) error {
	for name, addr := range plan.Accounts {
		report.Accounts[name] = addr
	}

	for _, step := range plan.Steps {
		signers := make([]solana.PrivateKey, 0, len(step.Signers))
		for _, role := range step.Signers {
			key, err := r.key(role)
			if err != nil {
				return fmt.Errorf("step %q: %w", step.Name, err)
			}
			signers = append(signers, key)
		}

		if err := r.submit(ctx, report, step.Name, step.Instructions, signers...); err != nil {
			return err
		}
	}
	return nil
}

// ensureFunds airdrops lamports to address when its balance is below min.
func (r *Runner) ensureFunds(ctx context.Context, name string, address solana.PublicKey, min, airdrop uint64) error {
	balance, err := r.chain.GetBalance(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get %s balance: %w", name, err)
	}
	if balance >= min {
		return nil
	}

	if err := r.chain.RequestAirdrop(ctx, address, airdrop); err != nil {
		return fmt.Errorf("failed to fund %s: %w", name, err)
	}

	balance, err = r.chain.GetBalance(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get %s balance: %w", name, err)
	}
	r.logger.Info().
		Str("account", name).
		Str("address", address.String()).
		Uint64("balance", balance).
		Msg("airdrop complete")
	return nil
}
