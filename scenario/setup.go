package scenario

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"vault-cli/exploit"
	"vault-cli/programs/tip"
	"vault-cli/programs/walletv0"
	"vault-cli/programs/walletv2"
)

const (
	// DepositAmount is what the rich account puts into each victim.
	DepositAmount = 42 * solana.LAMPORTS_PER_SOL

	setupAirdrop     = 100 * solana.LAMPORTS_PER_SOL
	authorityMinimum = solana.LAMPORTS_PER_SOL
	richMinimum      = DepositAmount + solana.LAMPORTS_PER_SOL
)

func (r *Runner) setupKeys(ctx context.Context) (authority, rich solana.PrivateKey, err error) {
	if authority, err = r.key(exploit.RoleAuthority); err != nil {
		return nil, nil, err
	}
	if rich, err = r.key(exploit.RoleRich); err != nil {
		return nil, nil, err
	}

	r.logger.Info().
		Str("authority", authority.PublicKey().String()).
		Str("rich", rich.PublicKey().String()).
		Msg("setting up")

	if err := r.ensureFunds(ctx, "authority", authority.PublicKey(), authorityMinimum, setupAirdrop); err != nil {
		return nil, nil, err
	}
	if err := r.ensureFunds(ctx, "rich", rich.PublicKey(), richMinimum, setupAirdrop); err != nil {
		return nil, nil, err
	}
	return authority, rich, nil
}

// SetupLevel0 opens the authority's wallet-v0 wallet, has the rich account
// deposit into it, and makes one legitimate withdraw back.
func (r *Runner) SetupLevel0(ctx context.Context) (*Report, error) {
	report := newReport("level0")
	program := r.programs.Level0

	authority, rich, err := r.setupKeys(ctx)
	if err != nil {
		return nil, err
	}

	initIx, err := walletv0.Initialize(program, authority.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize: %w", err)
	}
	if err := r.submit(ctx, report, "initialize", []solana.Instruction{initIx}, authority); err != nil {
		return nil, err
	}

	depositIx, err := walletv0.Deposit(program, authority.PublicKey(), rich.PublicKey(), DepositAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to build deposit: %w", err)
	}
	if err := r.submit(ctx, report, "deposit", []solana.Instruction{depositIx}, rich); err != nil {
		return nil, err
	}

	wallet, _, err := walletv0.WalletAddress(program, authority.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to derive wallet: %w", err)
	}
	info, err := r.chain.GetAccountInfo(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("wallet %s not found after initialize", wallet)
	}
	_, vault, err := walletv0.DecodeWalletData(info.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wallet %s: %w", wallet, err)
	}
	report.Accounts["wallet"] = wallet
	report.Accounts["vault"] = vault

	vaultBalance, err := r.chain.GetBalance(ctx, vault)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("vault", vault.String()).
		Uint64("balance", vaultBalance).
		Msg("deposit complete")

	withdrawIx := walletv0.Withdraw(program, wallet, vault, authority.PublicKey(), rich.PublicKey(), solana.LAMPORTS_PER_SOL)
	if err := r.submit(ctx, report, "withdraw", []solana.Instruction{withdrawIx}, authority, rich); err != nil {
		return nil, err
	}
	return report, nil
}

// SetupLevel2 opens the authority's wallet-v2 wallet and funds it from the
// rich account.
func (r *Runner) SetupLevel2(ctx context.Context) (*Report, error) {
	report := newReport("level2")
	program := r.programs.Level2

	authority, rich, err := r.setupKeys(ctx)
	if err != nil {
		return nil, err
	}

	initIx, wallet, err := walletv2.Initialize(program, authority.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize: %w", err)
	}
	report.Accounts["wallet"] = wallet
	if err := r.submit(ctx, report, "initialize", []solana.Instruction{initIx}, authority); err != nil {
		return nil, err
	}

	depositIx, err := walletv2.Deposit(program, authority.PublicKey(), rich.PublicKey(), DepositAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to build deposit: %w", err)
	}
	if err := r.submit(ctx, report, "deposit", []solana.Instruction{depositIx}, rich); err != nil {
		return nil, err
	}

	balance, err := r.chain.GetBalance(ctx, wallet)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("wallet", wallet.String()).
		Uint64("balance", balance).
		Msg("deposit complete")
	return report, nil
}

// SetupLevel3 initializes the tip vault, allocates and registers a pool for
// the authority, and has the rich account tip into it.
func (r *Runner) SetupLevel3(ctx context.Context) (*Report, error) {
	report := newReport("level3")
	program := r.programs.Level3

	authority, rich, err := r.setupKeys(ctx)
	if err != nil {
		return nil, err
	}

	initIx, vault, err := tip.Initialize(program, authority.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize: %w", err)
	}
	report.Accounts["vault"] = vault
	if err := r.submit(ctx, report, "initialize", []solana.Instruction{initIx}, authority); err != nil {
		return nil, err
	}

	pool := solana.NewWallet().PrivateKey
	report.Accounts["pool"] = pool.PublicKey()

	rent, err := r.chain.GetMinimumBalanceForRentExemption(ctx, tip.PoolLen)
	if err != nil {
		return nil, err
	}
	allocIx := system.NewCreateAccountInstruction(
		rent,
		tip.PoolLen,
		program,
		authority.PublicKey(),
		pool.PublicKey(),
	).Build()
	if err := r.submit(ctx, report, "allocate pool", []solana.Instruction{allocIx}, authority, pool); err != nil {
		return nil, err
	}

	createIx := tip.CreatePool(program, vault, authority.PublicKey(), pool.PublicKey())
	if err := r.submit(ctx, report, "create pool", []solana.Instruction{createIx}, authority); err != nil {
		return nil, err
	}

	tipIx := tip.Tip(program, vault, pool.PublicKey(), rich.PublicKey(), DepositAmount)
	if err := r.submit(ctx, report, "tip", []solana.Instruction{tipIx}, rich); err != nil {
		return nil, err
	}

	balance, err := r.chain.GetBalance(ctx, vault)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("vault", vault.String()).
		Uint64("balance", balance).
		Msg("tip complete")
	return report, nil
}
