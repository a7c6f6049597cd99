// Package tip builds instructions for the tip program and decodes its
// account state.
//
// The program keeps one vault per program id, derived from no seeds, and any
// number of pools that record how much of the vault each withdraw authority
// may take. The vault's fee field is a float64 kept only for layout
// compatibility; the program ignores it.
package tip

import (
	"github.com/gagliardetto/solana-go"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs"
)

const (
	// VaultLen is creator, fee, fee recipient and bump seed.
	VaultLen = 73
	// PoolLen is withdraw authority, value and vault.
	PoolLen = 72
)

var vaultLayout = []codec.FieldSpec{
	codec.KeyField("creator"),
	codec.F64Field("fee"),
	codec.KeyField("fee_recipient"),
	codec.U8Field("seed"),
}

var poolLayout = []codec.FieldSpec{
	codec.KeyField("withdraw_authority"),
	codec.U64Field("value"),
	codec.KeyField("vault"),
}

// VaultAddress derives the program's vault from an empty seed set.
func VaultAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return pda.Derive(programID)
}

// Initialize creates the program vault with a zero fee and the initializer as
// fee recipient. It returns the vault address with the instruction.
func Initialize(programID, initializer solana.PublicKey) (*solana.GenericInstruction, solana.PublicKey, error) {
	vault, bump, err := VaultAddress(programID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	var feeSlot [codec.F64Size]byte
	copy(feeSlot[:], codec.EncodeF64(0.0))
	return initialize(programID, vault, bump, initializer, feeSlot, initializer), vault, nil
}

// InitializeRaw is Initialize with every payload field chosen by the caller.
// The vault is recomputed from bump alone, and feeSlot is written verbatim, so
// the slot may carry any 8 byte image rather than a float.
func InitializeRaw(programID solana.PublicKey, bump uint8, initializer solana.PublicKey, feeSlot [codec.F64Size]byte, feeRecipient solana.PublicKey) (*solana.GenericInstruction, solana.PublicKey, error) {
	vault, err := pda.DeriveWithExplicitBump(programID, bump)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return initialize(programID, vault, bump, initializer, feeSlot, feeRecipient), vault, nil
}

func initialize(programID, vault solana.PublicKey, bump uint8, initializer solana.PublicKey, feeSlot [codec.F64Size]byte, feeRecipient solana.PublicKey) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Vault
	//   1. [WRITE, SIGNER] Initializer
	//   2. [] Rent sysvar
	//   3. [] System program
	//
	// Initialize {
	//   bump: u8,
	//   fee: f64, // unused
	//   fee_recipient: Pubkey,
	// }
	data := codec.NewPayload(programs.OpTipInitialize).
		U8(bump).
		Raw(feeSlot[:]).
		Key(feeRecipient).
		Bytes()

	return programs.NewInstruction(
		programID,
		data,
		programs.Writable(vault),
		programs.WritableSigner(initializer),
		programs.Readonly(solana.SysVarRentPubkey),
		programs.Readonly(solana.SystemProgramID),
	)
}

// CreatePool registers pool, an account already allocated to the program
// with PoolLen bytes, under vault.
func CreatePool(programID, vault, authority, pool solana.PublicKey) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Vault
	//   1. [SIGNER] Withdraw authority of the new pool
	//   2. [WRITE] Pool
	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpCreatePool).Bytes(),
		programs.Writable(vault),
		programs.ReadonlySigner(authority),
		programs.Writable(pool),
	)
}

func Tip(programID, vault, pool, source solana.PublicKey, amount uint64) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Vault
	//   1. [WRITE] Pool credited with the tip
	//   2. [WRITE, SIGNER] Source of the funds
	//   3. [] System program
	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpTip).U64(amount).Bytes(),
		programs.Writable(vault),
		programs.Writable(pool),
		programs.WritableSigner(source),
		programs.Readonly(solana.SystemProgramID),
	)
}

func Withdraw(programID, vault, pool, withdrawer solana.PublicKey, amount uint64) *solana.GenericInstruction {
	// # Account references
	//   0. [WRITE] Vault
	//   1. [WRITE] Pool
	//   2. [WRITE, SIGNER] Withdraw authority of the pool
	return programs.NewInstruction(
		programID,
		codec.NewPayload(programs.OpTipWithdraw).U64(amount).Bytes(),
		programs.Writable(vault),
		programs.Writable(pool),
		programs.WritableSigner(withdrawer),
	)
}

// Vault is the state stored in the vault account.
type Vault struct {
	Creator      solana.PublicKey
	Fee          float64
	FeeRecipient solana.PublicKey
	Seed         uint8
}

// Pool is the state stored in a pool account.
type Pool struct {
	WithdrawAuthority solana.PublicKey
	Value             uint64
	Vault             solana.PublicKey
}

func DecodeVault(b []byte) (*Vault, error) {
	rec, err := codec.DecodeFixedStruct(b, vaultLayout)
	if err != nil {
		return nil, err
	}

	v := &Vault{}
	v.Creator, _ = rec.Key("creator")
	v.Fee, _ = rec.F64("fee")
	v.FeeRecipient, _ = rec.Key("fee_recipient")
	v.Seed, _ = rec.U8("seed")
	return v, nil
}

// DecodePool reads pool state. Since a vault and a pool share their leading
// fields' offsets, vault data also decodes as a pool, with the fee's raw bytes
// read back as the value and the fee recipient as the pool's vault.
func DecodePool(b []byte) (*Pool, error) {
	rec, err := codec.DecodeFixedStruct(b, poolLayout)
	if err != nil {
		return nil, err
	}

	p := &Pool{}
	p.WithdrawAuthority, _ = rec.Key("withdraw_authority")
	p.Value, _ = rec.U64("value")
	p.Vault, _ = rec.Key("vault")
	return p, nil
}

// EncodeVault returns the account image of v.
func EncodeVault(v Vault) []byte {
	return codec.NewWriter().
		Key(v.Creator).
		LegacyF64(v.Fee).
		Key(v.FeeRecipient).
		U8(v.Seed).
		Bytes()
}
