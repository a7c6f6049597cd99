// Package programs holds the pieces of the on-chain ABI shared by every
// builder family: program kinds, opcodes and instruction construction. The
// per-program builders live in the subpackages.
package programs

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Kind names one program ABI version.
type Kind string

const (
	WalletV0 Kind = "wallet-v0"
	WalletV1 Kind = "wallet-v1"
	WalletV2 Kind = "wallet-v2"
	Tip      Kind = "tip"
	Attacker Kind = "attacker"
)

// Kinds lists every supported program kind in a stable order.
var Kinds = []Kind{WalletV0, WalletV1, WalletV2, Tip, Attacker}

// Wallet program opcodes, shared by v0, v1 and v2.
const (
	OpInitialize uint8 = iota
	OpDeposit
	OpWithdraw
)

// Tip program opcodes.
const (
	OpTipInitialize uint8 = iota
	OpCreatePool
	OpTip
	OpTipWithdraw
)

// OpForgeWallet is the only instruction of the attacker program.
const OpForgeWallet uint8 = 0

var (
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrUnknownProgram = errors.New("unknown program")
)

// ParseKind resolves a program kind by name. Matching ignores case and
// accepts the name without its dash, e.g. "walletv0".
func ParseKind(name string) (Kind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	for _, k := range Kinds {
		if strings.ReplaceAll(string(k), "-", "") == normalized {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownProgram, "%q", name)
}

// NewInstruction assembles an instruction with accounts in ABI order.
func NewInstruction(programID solana.PublicKey, data []byte, accounts ...*solana.AccountMeta) *solana.GenericInstruction {
	return solana.NewInstruction(programID, accounts, data)
}

// Writable is a writable non-signer slot.
func Writable(k solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(k, true, false)
}

// WritableSigner is a writable signer slot.
func WritableSigner(k solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(k, true, true)
}

// Readonly is a read-only non-signer slot.
func Readonly(k solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(k, false, false)
}

// ReadonlySigner is a read-only signer slot.
func ReadonlySigner(k solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(k, false, true)
}
