package programs

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"vault-cli/codec"
)

// View is an instruction payload parsed back into its fields. Only the
// fields carried by the opcode are set.
type View struct {
	Program Kind
	Opcode  uint8
	Name    string

	Amount *uint64

	// tip initialize
	Bump         *uint8
	FeeSlot      []byte
	Fee          *float64
	FeeAsU64     *uint64
	FeeRecipient *solana.PublicKey

	// attacker forge wallet
	Authority *solana.PublicKey
	Vault     *solana.PublicKey
}

type opcodeSpec struct {
	name   string
	fields []codec.FieldSpec
}

var amountFields = []codec.FieldSpec{codec.U64Field("amount")}

var walletOpcodes = map[uint8]opcodeSpec{
	OpInitialize: {name: "initialize"},
	OpDeposit:    {name: "deposit", fields: amountFields},
	OpWithdraw:   {name: "withdraw", fields: amountFields},
}

var opcodeTables = map[Kind]map[uint8]opcodeSpec{
	WalletV0: walletOpcodes,
	WalletV1: {
		OpWithdraw: {name: "withdraw", fields: amountFields},
	},
	WalletV2: walletOpcodes,
	Tip: {
		OpTipInitialize: {name: "initialize", fields: []codec.FieldSpec{
			codec.U8Field("bump"),
			codec.F64Field("fee"),
			codec.KeyField("fee_recipient"),
		}},
		OpCreatePool:  {name: "create_pool"},
		OpTip:         {name: "tip", fields: amountFields},
		OpTipWithdraw: {name: "withdraw", fields: amountFields},
	},
	Attacker: {
		OpForgeWallet: {name: "forge_wallet", fields: []codec.FieldSpec{
			codec.KeyField("authority"),
			codec.KeyField("vault"),
		}},
	},
}

// Decode parses an instruction payload of the given program kind. An empty
// payload or an opcode the program does not define yields ErrUnknownOpcode;
// a payload shorter than its opcode's layout yields a *codec.LayoutError.
func Decode(kind Kind, data []byte) (*View, error) {
	table, ok := opcodeTables[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProgram, "%q", kind)
	}
	if len(data) == 0 {
		return nil, errors.Wrap(ErrUnknownOpcode, "empty payload")
	}

	spec, ok := table[data[0]]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOpcode, "%s opcode 0x%02x", kind, data[0])
	}

	rec, err := codec.DecodeFixedStruct(data[1:], spec.fields)
	if err != nil {
		return nil, err
	}

	v := &View{Program: kind, Opcode: data[0], Name: spec.name}
	for _, f := range spec.fields {
		switch f.Name {
		case "amount":
			amount, _ := rec.U64(f.Name)
			v.Amount = &amount
		case "bump":
			bump, _ := rec.U8(f.Name)
			v.Bump = &bump
		case "fee":
			v.FeeSlot = rec[f.Name]
			fee, _ := rec.F64(f.Name)
			asU64, _ := rec.U64(f.Name)
			v.Fee = &fee
			v.FeeAsU64 = &asU64
		case "fee_recipient":
			recipient, _ := rec.Key(f.Name)
			v.FeeRecipient = &recipient
		case "authority":
			authority, _ := rec.Key(f.Name)
			v.Authority = &authority
		case "vault":
			vault, _ := rec.Key(f.Name)
			v.Vault = &vault
		}
	}
	return v, nil
}

func (v *View) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s (0x%02x)", v.Program, v.Name, v.Opcode)
	if v.Amount != nil {
		fmt.Fprintf(&sb, " amount=%d", *v.Amount)
	}
	if v.Bump != nil {
		fmt.Fprintf(&sb, " bump=%d", *v.Bump)
	}
	if v.Fee != nil {
		fmt.Fprintf(&sb, " fee=%g fee_as_u64=%d", *v.Fee, *v.FeeAsU64)
	}
	if v.FeeRecipient != nil {
		fmt.Fprintf(&sb, " fee_recipient=%s", v.FeeRecipient)
	}
	if v.Authority != nil {
		fmt.Fprintf(&sb, " authority=%s", v.Authority)
	}
	if v.Vault != nil {
		fmt.Fprintf(&sb, " vault=%s", v.Vault)
	}
	return sb.String()
}
