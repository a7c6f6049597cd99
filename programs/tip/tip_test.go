package tip

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-cli/codec"
	"vault-cli/pda"
	"vault-cli/programs"
	pt "vault-cli/programs/programstest"
)

func TestInitialize(t *testing.T) {
	keys := pt.Keys(2)
	programID, initializer := keys[0], keys[1]

	ix, vault, err := Initialize(programID, initializer)
	require.NoError(t, err)

	expected, bump, err := pda.Derive(programID)
	require.NoError(t, err)
	assert.Equal(t, expected, vault)

	data := pt.RequireInstruction(t, ix, programID,
		pt.W(vault),
		pt.WS(initializer),
		pt.R(solana.SysVarRentPubkey),
		pt.R(solana.SystemProgramID),
	)
	require.Len(t, data, 1+1+8+32)
	assert.EqualValues(t, programs.OpTipInitialize, data[0])
	assert.Equal(t, bump, data[1])
	assert.Equal(t, make([]byte, 8), data[2:10])
	assert.Equal(t, initializer[:], data[10:42])

	recomputed, err := pda.CreateProgramAddress(programID, []byte{data[1]})
	require.NoError(t, err)
	assert.Equal(t, vault, recomputed)
}

func TestInitializeRaw(t *testing.T) {
	keys := pt.Keys(3)
	programID, initializer, recipient := keys[0], keys[1], keys[2]

	_, canonicalBump, err := VaultAddress(programID)
	require.NoError(t, err)

	// find a second valid bump below the canonical one
	var bump uint8
	var expected solana.PublicKey
	for b := int(canonicalBump) - 1; b >= 0; b-- {
		expected, err = pda.DeriveWithExplicitBump(programID, uint8(b))
		if err == nil {
			bump = uint8(b)
			break
		}
	}
	require.NoError(t, err)

	var feeSlot [8]byte
	copy(feeSlot[:], codec.EncodeU64(42*solana.LAMPORTS_PER_SOL))

	ix, vault, err := InitializeRaw(programID, bump, initializer, feeSlot, recipient)
	require.NoError(t, err)
	assert.Equal(t, expected, vault)

	data := pt.RequireInstruction(t, ix, programID,
		pt.W(vault),
		pt.WS(initializer),
		pt.R(solana.SysVarRentPubkey),
		pt.R(solana.SystemProgramID),
	)
	require.Len(t, data, 42)
	assert.Equal(t, bump, data[1])
	assert.Equal(t, feeSlot[:], data[2:10])
	assert.Equal(t, recipient[:], data[10:42])

	view, err := programs.Decode(programs.Tip, data)
	require.NoError(t, err)
	assert.Equal(t, "initialize", view.Name)
	assert.EqualValues(t, 42*solana.LAMPORTS_PER_SOL, *view.FeeAsU64)
	assert.Equal(t, recipient, *view.FeeRecipient)
}

func TestInitializeRaw_OnCurveBump(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	for b := 0; b <= math.MaxUint8; b++ {
		if _, err := pda.DeriveWithExplicitBump(programID, uint8(b)); err == pda.ErrOnCurve {
			_, _, err := InitializeRaw(programID, uint8(b), programID, [8]byte{}, programID)
			assert.Equal(t, pda.ErrOnCurve, err)
			return
		}
	}
	t.Skip("no on-curve bump for this program id")
}

func TestCreatePool(t *testing.T) {
	keys := pt.Keys(4)
	programID, vault, authority, pool := keys[0], keys[1], keys[2], keys[3]

	data := pt.RequireInstruction(t, CreatePool(programID, vault, authority, pool), programID,
		pt.W(vault),
		pt.RS(authority),
		pt.W(pool),
	)
	assert.Equal(t, []byte{programs.OpCreatePool}, data)
}

func TestTip(t *testing.T) {
	keys := pt.Keys(4)
	programID, vault, pool, source := keys[0], keys[1], keys[2], keys[3]

	data := pt.RequireInstruction(t, Tip(programID, vault, pool, source, 42*solana.LAMPORTS_PER_SOL), programID,
		pt.W(vault),
		pt.W(pool),
		pt.WS(source),
		pt.R(solana.SystemProgramID),
	)
	require.Len(t, data, 9)
	assert.EqualValues(t, programs.OpTip, data[0])
	assert.Equal(t, codec.EncodeU64(42*solana.LAMPORTS_PER_SOL), data[1:])
}

func TestWithdraw(t *testing.T) {
	keys := pt.Keys(4)
	programID, vault, pool, withdrawer := keys[0], keys[1], keys[2], keys[3]

	data := pt.RequireInstruction(t, Withdraw(programID, vault, pool, withdrawer, 5), programID,
		pt.W(vault),
		pt.W(pool),
		pt.WS(withdrawer),
	)
	require.Len(t, data, 9)
	assert.EqualValues(t, programs.OpTipWithdraw, data[0])
	assert.Equal(t, codec.EncodeU64(5), data[1:])
}

func TestDecodeVault(t *testing.T) {
	keys := pt.Keys(2)

	data := EncodeVault(Vault{Creator: keys[0], Fee: 0.25, FeeRecipient: keys[1], Seed: 254})
	require.Len(t, data, VaultLen)

	v, err := DecodeVault(data)
	require.NoError(t, err)
	assert.Equal(t, keys[0], v.Creator)
	assert.Equal(t, 0.25, v.Fee)
	assert.Equal(t, keys[1], v.FeeRecipient)
	assert.EqualValues(t, 254, v.Seed)

	_, err = DecodeVault(data[:VaultLen-1])
	var layoutErr *codec.LayoutError
	assert.ErrorAs(t, err, &layoutErr)
}

func TestDecodePool(t *testing.T) {
	keys := pt.Keys(2)

	data := codec.NewWriter().Key(keys[0]).U64(1234).Key(keys[1]).Bytes()
	require.Len(t, data, PoolLen)

	p, err := DecodePool(data)
	require.NoError(t, err)
	assert.Equal(t, keys[0], p.WithdrawAuthority)
	assert.EqualValues(t, 1234, p.Value)
	assert.Equal(t, keys[1], p.Vault)

	_, err = DecodePool(data[:PoolLen-1])
	var layoutErr *codec.LayoutError
	assert.ErrorAs(t, err, &layoutErr)
}

func TestVaultReadAsPool(t *testing.T) {
	keys := pt.Keys(2)
	amount := uint64(42 * solana.LAMPORTS_PER_SOL)

	fee, err := codec.DecodeF64(codec.EncodeU64(amount))
	require.NoError(t, err)

	data := EncodeVault(Vault{Creator: keys[0], Fee: fee, FeeRecipient: keys[1], Seed: 0x2f})

	p, err := DecodePool(data)
	require.NoError(t, err)
	assert.Equal(t, keys[0], p.WithdrawAuthority)
	assert.Equal(t, amount, p.Value)
	assert.Equal(t, keys[1], p.Vault)
}
