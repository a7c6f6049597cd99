package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vault-cli/codec"
	"vault-cli/exploit"
	"vault-cli/pda"
	"vault-cli/programs"
	"vault-cli/programs/tip"
	"vault-cli/programs/walletv0"
	"vault-cli/programs/walletv2"
	vault_protocol "vault-cli/solana"
)

// MockChain is a mock implementation of the Chain interface
type MockChain struct {
	mock.Mock
}

func (m *MockChain) Submit(ctx context.Context, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error) {
	args := m.Called(ctx, instructions, signers)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockChain) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*vault_protocol.AccountInfo, error) {
	args := m.Called(ctx, address)
	info, _ := args.Get(0).(*vault_protocol.AccountInfo)
	return info, args.Error(1)
}

func (m *MockChain) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChain) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	args := m.Called(ctx, size)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChain) RequestAirdrop(ctx context.Context, address solana.PublicKey, lamports uint64) error {
	args := m.Called(ctx, address, lamports)
	return args.Error(0)
}

type submission struct {
	instructions []solana.Instruction
	signers      []solana.PrivateKey
}

func (m *MockChain) submissions() []submission {
	var out []submission
	for _, call := range m.Calls {
		if call.Method != "Submit" {
			continue
		}
		out = append(out, submission{
			instructions: call.Arguments.Get(1).([]solana.Instruction),
			signers:      call.Arguments.Get(2).([]solana.PrivateKey),
		})
	}
	return out
}

type fixture struct {
	chain     *MockChain
	programs  Programs
	authority solana.PrivateKey
	rich      solana.PrivateKey
	attacker  solana.PrivateKey
	runner    *Runner
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		chain: &MockChain{},
		programs: Programs{
			Level0:   solana.NewWallet().PublicKey(),
			Level1:   solana.NewWallet().PublicKey(),
			Level2:   solana.NewWallet().PublicKey(),
			Level3:   solana.NewWallet().PublicKey(),
			Attacker: solana.NewWallet().PublicKey(),
		},
		authority: solana.NewWallet().PrivateKey,
		rich:      solana.NewWallet().PrivateKey,
		attacker:  solana.NewWallet().PrivateKey,
	}
	f.runner = NewRunner(f.chain, Params{
		Programs: f.programs,
		Keys: map[exploit.Role]solana.PrivateKey{
			exploit.RoleAuthority: f.authority,
			exploit.RoleRich:      f.rich,
			exploit.RoleAttacker:  f.attacker,
		},
	}, zerolog.Nop())

	f.chain.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{1}, nil)
	return f
}

func (f *fixture) funded() {
	f.chain.On("GetBalance", mock.Anything, f.authority.PublicKey()).Return(100*solana.LAMPORTS_PER_SOL, nil)
	f.chain.On("GetBalance", mock.Anything, f.rich.PublicKey()).Return(100*solana.LAMPORTS_PER_SOL, nil)
}

func (f *fixture) attackerFunded() {
	f.chain.On("RequestAirdrop", mock.Anything, f.attacker.PublicKey(), AttackerAirdrop).Return(nil)
	f.chain.On("GetBalance", mock.Anything, f.attacker.PublicKey()).Return(solana.LAMPORTS_PER_SOL, nil).Once()
	f.chain.On("GetBalance", mock.Anything, f.attacker.PublicKey()).Return(43*solana.LAMPORTS_PER_SOL, nil).Once()
}

func opcode(t *testing.T, ix solana.Instruction) uint8 {
	data, err := ix.Data()
	require.NoError(t, err)
	require.NotEmpty(t, data)
	return data[0]
}

func TestSetupLevel0(t *testing.T) {
	f := newFixture(t)
	f.funded()

	wallet, _, err := walletv0.WalletAddress(f.programs.Level0, f.authority.PublicKey())
	require.NoError(t, err)
	vault, _, err := walletv0.VaultAddress(f.programs.Level0, f.authority.PublicKey())
	require.NoError(t, err)

	f.chain.On("GetAccountInfo", mock.Anything, wallet).Return(&vault_protocol.AccountInfo{
		Owner: f.programs.Level0,
		Data:  walletv0.EncodeWalletData(walletv0.WalletData{Authority: f.authority.PublicKey(), Vault: vault}),
	}, nil)
	f.chain.On("GetBalance", mock.Anything, vault).Return(DepositAmount, nil)

	report, err := f.runner.SetupLevel0(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wallet, report.Accounts["wallet"])
	assert.Equal(t, vault, report.Accounts["vault"])
	assert.Len(t, report.Signatures, 3)

	subs := f.chain.submissions()
	require.Len(t, subs, 3)

	assert.Equal(t, programs.OpInitialize, opcode(t, subs[0].instructions[0]))
	assert.Equal(t, []solana.PrivateKey{f.authority}, subs[0].signers)

	assert.Equal(t, programs.OpDeposit, opcode(t, subs[1].instructions[0]))
	assert.Equal(t, []solana.PrivateKey{f.rich}, subs[1].signers)

	withdraw := subs[2].instructions[0]
	assert.Equal(t, programs.OpWithdraw, opcode(t, withdraw))
	assert.Equal(t, vault, withdraw.Accounts()[1].PublicKey)
	assert.Equal(t, []solana.PrivateKey{f.authority, f.rich}, subs[2].signers)

	f.chain.AssertNotCalled(t, "RequestAirdrop", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetupLevel0_Airdrop(t *testing.T) {
	f := newFixture(t)

	f.chain.On("GetBalance", mock.Anything, f.authority.PublicKey()).Return(uint64(0), nil).Once()
	f.chain.On("GetBalance", mock.Anything, f.authority.PublicKey()).Return(100*solana.LAMPORTS_PER_SOL, nil)
	f.chain.On("GetBalance", mock.Anything, f.rich.PublicKey()).Return(42*solana.LAMPORTS_PER_SOL, nil).Once()
	f.chain.On("GetBalance", mock.Anything, f.rich.PublicKey()).Return(142*solana.LAMPORTS_PER_SOL, nil)
	f.chain.On("RequestAirdrop", mock.Anything, mock.Anything, setupAirdrop).Return(nil)
	f.chain.On("GetAccountInfo", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := f.runner.SetupLevel0(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	f.chain.AssertCalled(t, "RequestAirdrop", mock.Anything, f.authority.PublicKey(), setupAirdrop)
	f.chain.AssertCalled(t, "RequestAirdrop", mock.Anything, f.rich.PublicKey(), setupAirdrop)
}

func TestSetupLevel2(t *testing.T) {
	f := newFixture(t)
	f.funded()

	wallet, _, err := walletv2.WalletAddress(f.programs.Level2, f.authority.PublicKey())
	require.NoError(t, err)
	f.chain.On("GetBalance", mock.Anything, wallet).Return(DepositAmount, nil)

	report, err := f.runner.SetupLevel2(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wallet, report.Accounts["wallet"])

	subs := f.chain.submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, programs.OpInitialize, opcode(t, subs[0].instructions[0]))
	assert.Equal(t, []solana.PrivateKey{f.authority}, subs[0].signers)
	assert.Equal(t, programs.OpDeposit, opcode(t, subs[1].instructions[0]))
	assert.Equal(t, []solana.PrivateKey{f.rich}, subs[1].signers)
}

func TestSetupLevel3(t *testing.T) {
	f := newFixture(t)
	f.funded()

	vault, _, err := tip.VaultAddress(f.programs.Level3)
	require.NoError(t, err)
	f.chain.On("GetMinimumBalanceForRentExemption", mock.Anything, uint64(tip.PoolLen)).Return(uint64(1_392_000), nil)
	f.chain.On("GetBalance", mock.Anything, vault).Return(DepositAmount, nil)

	report, err := f.runner.SetupLevel3(context.Background())
	require.NoError(t, err)
	pool := report.Accounts["pool"]
	assert.Equal(t, vault, report.Accounts["vault"])

	subs := f.chain.submissions()
	require.Len(t, subs, 4)

	assert.Equal(t, programs.OpTipInitialize, opcode(t, subs[0].instructions[0]))

	alloc := subs[1].instructions[0]
	assert.Equal(t, solana.SystemProgramID, alloc.ProgramID())
	require.Len(t, subs[1].signers, 2)
	assert.Equal(t, f.authority, subs[1].signers[0])
	assert.Equal(t, pool, subs[1].signers[1].PublicKey())

	create := subs[2].instructions[0]
	assert.Equal(t, programs.OpCreatePool, opcode(t, create))
	assert.Equal(t, pool, create.Accounts()[2].PublicKey)

	tipIx := subs[3].instructions[0]
	assert.Equal(t, programs.OpTip, opcode(t, tipIx))
	assert.Equal(t, []solana.PrivateKey{f.rich}, subs[3].signers)
}

func TestExploitLevel0(t *testing.T) {
	f := newFixture(t)
	f.attackerFunded()

	wallet, _, err := walletv0.WalletAddress(f.programs.Level0, f.authority.PublicKey())
	require.NoError(t, err)
	vault := solana.NewWallet().PublicKey()
	f.chain.On("GetAccountInfo", mock.Anything, wallet).Return(&vault_protocol.AccountInfo{
		Data: walletv0.EncodeWalletData(walletv0.WalletData{Authority: f.authority.PublicKey(), Vault: vault}),
	}, nil)
	f.chain.On("GetBalance", mock.Anything, vault).Return(DepositAmount, nil)

	report, err := f.runner.ExploitLevel0(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vault, report.Target)
	assert.Equal(t, DepositAmount, report.Amount)
	assert.Equal(t, solana.LAMPORTS_PER_SOL, report.BalanceBefore)
	assert.Equal(t, 43*solana.LAMPORTS_PER_SOL, report.BalanceAfter)

	fakeWallet, _, err := pda.Derive(f.programs.Attacker, f.attacker.PublicKey().Bytes())
	require.NoError(t, err)

	subs := f.chain.submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, f.programs.Attacker, subs[0].instructions[0].ProgramID())
	assert.Equal(t, []solana.PrivateKey{f.attacker}, subs[0].signers)

	withdraw := subs[1].instructions[0]
	assert.Equal(t, f.programs.Level0, withdraw.ProgramID())
	assert.Equal(t, fakeWallet, withdraw.Accounts()[0].PublicKey)
	assert.Equal(t, vault, withdraw.Accounts()[1].PublicKey)

	data, err := withdraw.Data()
	require.NoError(t, err)
	assert.Equal(t, codec.EncodeU64(DepositAmount), data[1:])
}

func TestExploitLevel0_NoVictimWallet(t *testing.T) {
	f := newFixture(t)
	f.attackerFunded()
	f.chain.On("GetAccountInfo", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := f.runner.ExploitLevel0(context.Background())
	assert.Error(t, err)
	assert.Empty(t, f.chain.submissions())
}

func TestExploitLevel1(t *testing.T) {
	f := newFixture(t)
	f.attackerFunded()

	wallet, _, err := pda.Derive(f.programs.Level1, f.authority.PublicKey().Bytes())
	require.NoError(t, err)
	f.chain.On("GetBalance", mock.Anything, wallet).Return(uint64(5_000), nil)

	report, err := f.runner.ExploitLevel1(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5_000, report.Amount)

	subs := f.chain.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, []solana.PrivateKey{f.attacker}, subs[0].signers)

	accounts := subs[0].instructions[0].Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, f.authority.PublicKey(), accounts[1].PublicKey)
	assert.False(t, accounts[1].IsSigner)
	assert.Equal(t, f.attacker.PublicKey(), accounts[2].PublicKey)
}

func TestExploitLevel2(t *testing.T) {
	for _, tc := range []struct {
		name     string
		existing *vault_protocol.AccountInfo
		submits  int
	}{
		{name: "fresh", existing: nil, submits: 1 + 4},
		{name: "existing wallet", existing: &vault_protocol.AccountInfo{Data: make([]byte, walletv2.WalletLen)}, submits: 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.attackerFunded()

			victimWallet, _, err := walletv2.WalletAddress(f.programs.Level2, f.authority.PublicKey())
			require.NoError(t, err)
			attackerWallet, _, err := walletv2.WalletAddress(f.programs.Level2, f.attacker.PublicKey())
			require.NoError(t, err)

			f.chain.On("GetBalance", mock.Anything, victimWallet).Return(uint64(10), nil)
			f.chain.On("GetMinimumBalanceForRentExemption", mock.Anything, uint64(walletv2.WalletLen)).Return(uint64(3), nil)
			f.chain.On("GetAccountInfo", mock.Anything, attackerWallet).Return(tc.existing, nil)

			_, err = f.runner.ExploitLevel2(context.Background())
			require.NoError(t, err)

			subs := f.chain.submissions()
			require.Len(t, subs, tc.submits)

			for _, sub := range subs[tc.submits-4:] {
				ix := sub.instructions[0]
				assert.Equal(t, programs.OpWithdraw, opcode(t, ix))
				assert.Equal(t, attackerWallet, ix.Accounts()[0].PublicKey)
				assert.Equal(t, victimWallet, ix.Accounts()[2].PublicKey)

				data, err := ix.Data()
				require.NoError(t, err)
				assert.Equal(t, codec.EncodeU64(codec.WrappingNeg(3)), data[1:])
			}
		})
	}
}

func TestExploitLevel3(t *testing.T) {
	f := newFixture(t)
	f.attackerFunded()

	vault, _, err := tip.VaultAddress(f.programs.Level3)
	require.NoError(t, err)
	f.chain.On("GetBalance", mock.Anything, vault).Return(DepositAmount, nil)

	report, err := f.runner.ExploitLevel3(context.Background())
	require.NoError(t, err)

	fakePool := report.Accounts["fake_pool"]
	assert.NotEqual(t, vault, fakePool)

	subs := f.chain.submissions()
	require.Len(t, subs, 2)

	data, err := subs[0].instructions[0].Data()
	require.NoError(t, err)
	assert.Equal(t, codec.EncodeU64(DepositAmount), data[2:10])
	assert.Equal(t, vault[:], data[10:42])

	withdraw := subs[1].instructions[0]
	assert.Equal(t, programs.OpTipWithdraw, opcode(t, withdraw))
	assert.Equal(t, vault, withdraw.Accounts()[0].PublicKey)
	assert.Equal(t, fakePool, withdraw.Accounts()[1].PublicKey)
}

func TestExecute_MissingRole(t *testing.T) {
	chain := &MockChain{}
	runner := NewRunner(chain, Params{Victim: solana.NewWallet().PublicKey()}, zerolog.Nop())

	plan, err := exploit.MissingSigner(solana.NewWallet().PublicKey(), runner.victim, solana.NewWallet().PublicKey(), 1)
	require.NoError(t, err)

	err = runner.Execute(context.Background(), newReport("level1"), plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attacker")
	chain.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_StopsOnFailure(t *testing.T) {
	chain := &MockChain{}
	attacker := solana.NewWallet().PrivateKey
	runner := NewRunner(chain, Params{
		Keys: map[exploit.Role]solana.PrivateKey{exploit.RoleAttacker: attacker},
	}, zerolog.Nop())

	failure := errors.New("blockhash not found")
	chain.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{}, failure).Once()

	plan, err := exploit.WrappedDrain(solana.NewWallet().PublicKey(), attacker.PublicKey(), solana.NewWallet().PublicKey(), 100, 10)
	require.NoError(t, err)

	err = runner.Execute(context.Background(), newReport("level2"), plan)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "initialize attacker wallet")
	chain.AssertNumberOfCalls(t, "Submit", 1)
}

func TestNewRunner_Victim(t *testing.T) {
	authority := solana.NewWallet().PrivateKey
	runner := NewRunner(&MockChain{}, Params{
		Keys: map[exploit.Role]solana.PrivateKey{exploit.RoleAuthority: authority},
	}, zerolog.Nop())
	assert.Equal(t, authority.PublicKey(), runner.victim)

	explicit := solana.NewWallet().PublicKey()
	runner = NewRunner(&MockChain{}, Params{
		Keys:   map[exploit.Role]solana.PrivateKey{exploit.RoleAuthority: authority},
		Victim: explicit,
	}, zerolog.Nop())
	assert.Equal(t, explicit, runner.victim)

	runner = NewRunner(&MockChain{}, Params{}, zerolog.Nop())
	_, err := runner.ExploitLevel1(context.Background())
	assert.Error(t, err)
}
