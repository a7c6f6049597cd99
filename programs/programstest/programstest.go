// Package programstest has assertions shared by the builder tests.
package programstest

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Slot is the expected content of one account slot.
type Slot struct {
	Key      solana.PublicKey
	Writable bool
	Signer   bool
}

func W(k solana.PublicKey) Slot  { return Slot{Key: k, Writable: true} }
func WS(k solana.PublicKey) Slot { return Slot{Key: k, Writable: true, Signer: true} }
func R(k solana.PublicKey) Slot  { return Slot{Key: k} }
func RS(k solana.PublicKey) Slot { return Slot{Key: k, Signer: true} }

// RequireInstruction checks program id, account slots in order and the
// payload, returning the payload for further checks.
func RequireInstruction(t *testing.T, ix solana.Instruction, programID solana.PublicKey, slots ...Slot) []byte {
	t.Helper()

	require.NotNil(t, ix)
	assert.Equal(t, programID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, len(slots))
	for i, expected := range slots {
		assert.Equal(t, expected.Key, accounts[i].PublicKey, "slot %d key", i)
		assert.Equal(t, expected.Writable, accounts[i].IsWritable, "slot %d writable", i)
		assert.Equal(t, expected.Signer, accounts[i].IsSigner, "slot %d signer", i)
	}

	data, err := ix.Data()
	require.NoError(t, err)
	return data
}

// Keys returns n fresh key pair addresses.
func Keys(n int) []solana.PublicKey {
	keys := make([]solana.PublicKey, n)
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}
	return keys
}
