// Package walletv2 builds instructions for the third wallet program. The
// wallet account holds the funds itself and stores only its authority.
package walletv2

import (
	"github.com/gagliardetto/solana-go"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs"
)

// WalletLen is the size of the wallet account, which stores the authority.
const WalletLen = 32

// WalletAddress derives the wallet account owned by authority.
func WalletAddress(programID, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return pda.Derive(programID, authority[:])
}

// Initialize creates the authority's wallet and returns its address with the
// instruction.
func Initialize(programID, authority solana.PublicKey) (*solana.GenericInstruction, solana.PublicKey, error) {
	// # Account references
	//   0. [WRITE] Wallet, derived from [authority]
	//   1. [WRITE, SIGNER] Authority
	//   2. [] Rent sysvar
	//   3. [] System program
	wallet, _, err := WalletAddress(programID, authority)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	ix := programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpInitialize).Bytes(),
		programs.Writable(wallet),
		programs.WritableSigner(authority),
		programs.Readonly(solana.SysVarRentPubkey),
		programs.Readonly(solana.SystemProgramID),
	)
	return ix, wallet, nil
}

func Deposit(programID, authority, source solana.PublicKey, amount uint64) (*solana.GenericInstruction, error) {
	// # Account references
	//   0. [WRITE] Wallet
	//   1. [WRITE, SIGNER] Source of the funds
	//   2. [] System program
	wallet, _, err := WalletAddress(programID, authority)
	if err != nil {
		return nil, err
	}

	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpDeposit).U64(amount).Bytes(),
		programs.Writable(wallet),
		programs.WritableSigner(source),
		programs.Readonly(solana.SystemProgramID),
	), nil
}

func Withdraw(programID, wallet, authority, dest solana.PublicKey, amount uint64) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Wallet
	//   1. [WRITE, SIGNER] Authority
	//   2. [WRITE] Destination
	//   3. [] Rent sysvar
	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpWithdraw).U64(amount).Bytes(),
		programs.Writable(wallet),
		programs.WritableSigner(authority),
		programs.Writable(dest),
		programs.Readonly(solana.SysVarRentPubkey),
	)
}
