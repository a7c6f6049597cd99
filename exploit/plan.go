// Package exploit composes instruction sequences that pass a vulnerable
// program's account checks while breaking the authorization it was meant to
// enforce. Composers are fixed recipes: they derive addresses and call
// builders, and never touch the network.
package exploit

import (
	"github.com/gagliardetto/solana-go"
)

// Role names a key pair that must sign a step. Roles are resolved to keys by
// whoever submits the plan.
type Role string

const (
	RoleAttacker  Role = "attacker"
	RoleAuthority Role = "authority"
	RoleRich      Role = "rich"
)

// Step is one transaction. It must be confirmed before the next step is
// sent. The first signer pays the fee.
type Step struct {
	Name         string
	Instructions []solana.Instruction
	Signers      []Role
}

// Plan is an ordered list of steps plus the addresses they introduce.
type Plan struct {
	Name     string
	Steps    []Step
	Accounts map[string]solana.PublicKey
}

func newPlan(name string) *Plan {
	return &Plan{Name: name, Accounts: make(map[string]solana.PublicKey)}
}

func (p *Plan) add(name string, signers []Role, instructions ...solana.Instruction) {
	p.Steps = append(p.Steps, Step{
		Name:         name,
		Instructions: instructions,
		Signers:      signers,
	})
}

var attackerOnly = []Role{RoleAttacker}
