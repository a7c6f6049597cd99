// Package walletv0 builds instructions for the first wallet program, which
// keeps funds in a separate vault account derived from the authority.
package walletv0

import (
	"github.com/gagliardetto/solana-go"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs"
)

// WalletLen is the size of the wallet account: authority followed by vault.
const WalletLen = 64

var vaultSeed = []byte("VAULT")

var walletLayout = []codec.FieldSpec{
	codec.KeyField("authority"),
	codec.KeyField("vault"),
}

// WalletAddress derives the wallet account owned by authority.
func WalletAddress(programID, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return pda.Derive(programID, authority[:])
}

// VaultAddress derives the vault account that holds the wallet's funds.
func VaultAddress(programID, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return pda.Derive(programID, authority[:], vaultSeed)
}

func Initialize(programID, authority solana.PublicKey) (*solana.GenericInstruction, error) {
	// # Account references
	//   0. [WRITE] Wallet, derived from [authority]
	//   1. [WRITE] Vault, derived from [authority, "VAULT"]
	//   2. [WRITE, SIGNER] Authority
	//   3. [] Rent sysvar
	//   4. [] System program
	wallet, _, err := WalletAddress(programID, authority)
	if err != nil {
		return nil, err
	}
	vault, _, err := VaultAddress(programID, authority)
	if err != nil {
		return nil, err
	}

	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpInitialize).Bytes(),
		programs.Writable(wallet),
		programs.Writable(vault),
		programs.WritableSigner(authority),
		programs.Readonly(solana.SysVarRentPubkey),
		programs.Readonly(solana.SystemProgramID),
	), nil
}

func Deposit(programID, authority, source solana.PublicKey, amount uint64) (*solana.GenericInstruction, error) {
	// # Account references
	//   0. [WRITE] Wallet
	//   1. [WRITE] Vault
	//   2. [WRITE, SIGNER] Source of the funds
	//   3. [] System program
	wallet, _, err := WalletAddress(programID, authority)
	if err != nil {
		return nil, err
	}
	vault, _, err := VaultAddress(programID, authority)
	if err != nil {
		return nil, err
	}

	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpDeposit).U64(amount).Bytes(),
		programs.Writable(wallet),
		programs.Writable(vault),
		programs.WritableSigner(source),
		programs.Readonly(solana.SystemProgramID),
	), nil
}

// Withdraw takes the wallet and vault explicitly. The program matches them by
// position, which is what lets a forged wallet stand in for the real one.
func Withdraw(programID, wallet, vault, authority, dest solana.PublicKey, amount uint64) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Wallet
	//   1. [WRITE] Vault
	//   2. [WRITE, SIGNER] Authority
	//   3. [WRITE, SIGNER] Destination
	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpWithdraw).U64(amount).Bytes(),
		programs.Writable(wallet),
		programs.Writable(vault),
		programs.WritableSigner(authority),
		programs.WritableSigner(dest),
	)
}

// WalletData is the state stored in a wallet account.
type WalletData struct {
	Authority solana.PublicKey
	Vault     solana.PublicKey
}

// EncodeWalletData returns the 64 byte account image of d.
func EncodeWalletData(d WalletData) []byte {
	return codec.NewWriter().Key(d.Authority).Key(d.Vault).Bytes()
}

// DecodeWalletData reads the authority and vault from wallet account data.
func DecodeWalletData(b []byte) (authority, vault solana.PublicKey, err error) {
	rec, err := codec.DecodeFixedStruct(b, walletLayout)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	authority, _ = rec.Key("authority")
	vault, _ = rec.Key("vault")
	return authority, vault, nil
}
