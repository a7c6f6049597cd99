package vault_protocol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// fakeNode answers JSON-RPC calls from a method to result table and records
// the methods it saw.
type fakeNode struct {
	mu      sync.Mutex
	results map[string]any
	calls   []string
	fail    bool
}

func newFakeNode(t *testing.T, results map[string]any) (*fakeNode, *httptest.Server) {
	n := &fakeNode{results: results}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	fail := n.fail
	result, ok := n.results[req.Method]
	n.mu.Unlock()

	if fail {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32601, "message": "method not found"},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func (n *fakeNode) methods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func withContext(v any) map[string]any {
	return map[string]any{"context": map[string]any{"slot": 1}, "value": v}
}

func signatureStatus(status string, txErr any) map[string]any {
	return withContext([]any{map[string]any{
		"slot":               1,
		"confirmations":      nil,
		"err":                txErr,
		"confirmationStatus": status,
	}})
}

func newTestClient(t *testing.T, endpoints ...string) *Client {
	c, err := NewClient(Config{
		Endpoints:      endpoints,
		Commitment:     rpc.CommitmentConfirmed,
		ConfirmTimeout: 2 * time.Second,
		PollInterval:   10 * time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestParseCommitment(t *testing.T) {
	for in, expected := range map[string]rpc.CommitmentType{
		"":           rpc.CommitmentConfirmed,
		"processed":  rpc.CommitmentProcessed,
		"Confirmed":  rpc.CommitmentConfirmed,
		" finalized": rpc.CommitmentFinalized,
	} {
		actual, err := ParseCommitment(in)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseCommitment("max")
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultEndpoint}, c.endpoints)
	assert.Equal(t, rpc.CommitmentConfirmed, c.commitment)
	assert.Equal(t, DefaultConfirmTimeout, c.confirmTimeout)

	_, err = NewClient(Config{Commitment: "bogus"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestGetBalance(t *testing.T) {
	_, srv := newFakeNode(t, map[string]any{
		"getBalance": withContext(42_000_000_000),
	})
	c := newTestClient(t, srv.URL)

	balance, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.EqualValues(t, 42_000_000_000, balance)
}

func TestGetBalance_Failover(t *testing.T) {
	down, downSrv := newFakeNode(t, nil)
	down.fail = true
	up, upSrv := newFakeNode(t, map[string]any{
		"getBalance": withContext(7),
	})
	c := newTestClient(t, downSrv.URL, upSrv.URL)

	for i := 0; i < 4; i++ {
		balance, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey())
		require.NoError(t, err)
		assert.EqualValues(t, 7, balance)
	}
	assert.Len(t, up.methods(), 4)
	assert.NotEmpty(t, down.methods())
}

func TestGetBalance_AllEndpointsDown(t *testing.T) {
	a, aSrv := newFakeNode(t, nil)
	a.fail = true
	b, bSrv := newFakeNode(t, nil)
	b.fail = true
	c := newTestClient(t, aSrv.URL, bSrv.URL)

	_, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 endpoints")
}

func TestGetAccountInfo(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	data := []byte{1, 2, 3, 4}

	_, srv := newFakeNode(t, map[string]any{
		"getAccountInfo": withContext(map[string]any{
			"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
			"executable": false,
			"lamports":   1_113_600,
			"owner":      owner.String(),
			"rentEpoch":  0,
		}),
	})
	c := newTestClient(t, srv.URL)

	info, err := c.GetAccountInfo(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, owner, info.Owner)
	assert.Equal(t, data, info.Data)
	assert.EqualValues(t, 1_113_600, info.Lamports)
}

func TestGetAccountInfo_Missing(t *testing.T) {
	_, srv := newFakeNode(t, map[string]any{
		"getAccountInfo": withContext(nil),
	})
	c := newTestClient(t, srv.URL)

	info, err := c.GetAccountInfo(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetMinimumBalanceForRentExemption(t *testing.T) {
	_, srv := newFakeNode(t, map[string]any{
		"getMinimumBalanceForRentExemption": 1_113_600,
	})
	c := newTestClient(t, srv.URL)

	rent, err := c.GetMinimumBalanceForRentExemption(context.Background(), 32)
	require.NoError(t, err)
	assert.EqualValues(t, 1_113_600, rent)
}

func TestRequestAirdrop(t *testing.T) {
	sig := solana.SignatureFromBytes(make([]byte, 64))
	node, srv := newFakeNode(t, map[string]any{
		"requestAirdrop":        sig.String(),
		"getSignatureStatuses": signatureStatus("confirmed", nil),
	})
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.RequestAirdrop(context.Background(), solana.NewWallet().PublicKey(), solana.LAMPORTS_PER_SOL))
	assert.Equal(t, []string{"requestAirdrop", "getSignatureStatuses"}, node.methods())
}

func submitResults(status map[string]any) map[string]any {
	return map[string]any{
		"getLatestBlockhash": withContext(map[string]any{
			"blockhash":            solana.NewWallet().PublicKey().String(),
			"lastValidBlockHeight": 100,
		}),
		"sendTransaction":      solana.SignatureFromBytes(make([]byte, 64)).String(),
		"getSignatureStatuses": status,
	}
}

func testInstruction(signer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		solana.AccountMetaSlice{solana.NewAccountMeta(signer, true, true)},
		[]byte{0},
	)
}

func TestSubmit(t *testing.T) {
	node, srv := newFakeNode(t, submitResults(signatureStatus("finalized", nil)))
	c := newTestClient(t, srv.URL)

	payer := solana.NewWallet().PrivateKey
	_, err := c.Submit(context.Background(), []solana.Instruction{testInstruction(payer.PublicKey())}, payer)
	require.NoError(t, err)
	assert.Equal(t, []string{"getLatestBlockhash", "sendTransaction", "getSignatureStatuses"}, node.methods())
}

func TestSubmit_WaitsForCommitment(t *testing.T) {
	node, srv := newFakeNode(t, submitResults(signatureStatus("processed", nil)))
	c := newTestClient(t, srv.URL)

	go func() {
		time.Sleep(50 * time.Millisecond)
		node.mu.Lock()
		node.results["getSignatureStatuses"] = signatureStatus("confirmed", nil)
		node.mu.Unlock()
	}()

	payer := solana.NewWallet().PrivateKey
	_, err := c.Submit(context.Background(), []solana.Instruction{testInstruction(payer.PublicKey())}, payer)
	require.NoError(t, err)

	var polls int
	for _, m := range node.methods() {
		if m == "getSignatureStatuses" {
			polls++
		}
	}
	assert.Greater(t, polls, 1)
}

func TestSubmit_TransactionError(t *testing.T) {
	txErr := map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}}
	_, srv := newFakeNode(t, submitResults(signatureStatus("confirmed", txErr)))
	c := newTestClient(t, srv.URL)

	payer := solana.NewWallet().PrivateKey
	_, err := c.Submit(context.Background(), []solana.Instruction{testInstruction(payer.PublicKey())}, payer)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestSubmit_Timeout(t *testing.T) {
	_, srv := newFakeNode(t, submitResults(withContext([]any{nil})))
	c, err := NewClient(Config{
		Endpoints:      []string{srv.URL},
		ConfirmTimeout: 50 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)

	payer := solana.NewWallet().PrivateKey
	_, err = c.Submit(context.Background(), []solana.Instruction{testInstruction(payer.PublicKey())}, payer)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_NoSigners(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	_, err := c.Submit(context.Background(), nil)
	assert.Error(t, err)
}
