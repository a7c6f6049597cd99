// Package walletv1 builds instructions for the second wallet program, which
// folds the vault into the wallet account.
package walletv1

import (
	"github.com/gagliardetto/solana-go"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs"
)

// WalletAddress derives the wallet account owned by authority.
func WalletAddress(programID, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return pda.Derive(programID, authority[:])
}

// Withdraw moves amount out of wallet. The program never asks the authority
// to sign, so anyone can name it.
func Withdraw(programID, wallet, authority, dest solana.PublicKey, amount uint64) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Wallet
	//   1. [WRITE] Authority
	//   2. [WRITE] Destination
	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpWithdraw).U64(amount).Bytes(),
		programs.Writable(wallet),
		programs.Writable(authority),
		programs.Writable(dest),
	)
}
