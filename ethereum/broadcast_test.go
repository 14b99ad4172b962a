package ethereum

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// fakeBackend accepts every transaction and mines only what the test tells it to.
// Methods the adapter does not use are left to the nil embedded interface.
type fakeBackend struct {
	bind.ContractBackend

	mu       sync.Mutex
	sent     []*ethtypes.Transaction
	receipts map[common.Hash]*ethtypes.Receipt
	dropped  map[common.Hash]bool
	nonce    uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		receipts: make(map[common.Hash]*ethtypes.Receipt),
		dropped:  make(map[common.Hash]bool),
	}
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*ethtypes.Header, error) {
	return &ethtypes.Header{Number: big.NewInt(100), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (b *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonce, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	delete(b.dropped, tx.Hash())
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dropped[hash] {
		return nil, false, ethereum.NotFound
	}
	for _, tx := range b.sent {
		if tx.Hash() == hash {
			_, mined := b.receipts[hash]
			return tx, !mined, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (b *fakeBackend) Close() {}

func (b *fakeBackend) transactions() []*ethtypes.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*ethtypes.Transaction(nil), b.sent...)
}

func (b *fakeBackend) mine(tx *ethtypes.Transaction, status uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts[tx.Hash()] = &ethtypes.Receipt{Status: status, TxHash: tx.Hash(), BlockNumber: big.NewInt(101)}
}

func (b *fakeBackend) drop(tx *ethtypes.Transaction, nonce uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped[tx.Hash()] = true
	b.nonce = nonce
}

func testChain(t *testing.T, b *fakeBackend) *Ethereum {
	t.Helper()
	e, err := NewChain("sepolia", 40161, 11155111, "http://localhost:8545", "", endpointV2.Hex(), testKey, 0, 0)
	require.NoError(t, err)
	e.rpcClient = b
	e.txConfirmation = 50 * time.Millisecond
	e.sequences.Put(e.eid, 7)
	return e
}

func TestPendingTransactionIsAwaitedNotResent(t *testing.T) {
	b := newFakeBackend()
	e := testChain(t, b)
	ctx := context.Background()
	local := types.Endpoint{EID: 40161, Address: watchedOApp.Hex()}
	peer := types.Bytes32{31: 0x01}

	_, err := e.SetPeer(ctx, local, 40106, peer)
	require.True(t, types.IsTransient(err))
	sent := b.transactions()
	require.Len(t, sent, 1)
	require.Equal(t, uint64(7), sent[0].Nonce())
	require.Equal(t, watchedOApp, *sent[0].To())

	// still unmined: wait again, nothing new goes out
	_, err = e.SetPeer(ctx, local, 40106, peer)
	require.True(t, types.IsTransient(err))
	require.Len(t, b.transactions(), 1)

	b.mine(sent[0], ethtypes.ReceiptStatusSuccessful)
	receipt, err := e.SetPeer(ctx, local, 40106, peer)
	require.NoError(t, err)
	require.Equal(t, sent[0].Hash().Hex(), receipt.TxHash)
	require.Equal(t, uint64(101), receipt.BlockNumber)
	require.Len(t, b.transactions(), 1)
	require.Equal(t, uint64(8), e.sequences.Next(e.eid))
}

func TestPendingTransactionKeyedByCalldata(t *testing.T) {
	b := newFakeBackend()
	e := testChain(t, b)
	ctx := context.Background()
	local := types.Endpoint{EID: 40161, Address: watchedOApp.Hex()}

	_, err := e.SetPeer(ctx, local, 40106, types.Bytes32{31: 0x01})
	require.Error(t, err)
	_, err = e.SetPeer(ctx, local, 40267, types.Bytes32{31: 0x01})
	require.Error(t, err)

	sent := b.transactions()
	require.Len(t, sent, 2)
	require.Equal(t, uint64(7), sent[0].Nonce())
	require.Equal(t, uint64(8), sent[1].Nonce())
}

func TestDroppedTransactionResubmitted(t *testing.T) {
	b := newFakeBackend()
	e := testChain(t, b)
	ctx := context.Background()
	local := types.Endpoint{EID: 40161, Address: watchedOApp.Hex()}
	lib := common.HexToAddress("0xcc1ae8Cf5D3904Cef3360A9532B477529b177cCE")

	_, err := e.SetSendLibrary(ctx, local, 40106, lib)
	require.True(t, types.IsTransient(err))
	first := b.transactions()[0]
	require.Equal(t, endpointV2, *first.To())

	// evicted from the mempool, so its nonce is free again
	b.drop(first, 7)
	_, err = e.SetSendLibrary(ctx, local, 40106, lib)
	require.True(t, types.IsTransient(err))

	sent := b.transactions()
	require.Len(t, sent, 2)
	require.Equal(t, uint64(7), sent[1].Nonce())

	b.mine(sent[1], ethtypes.ReceiptStatusFailed)
	_, err = e.SetSendLibrary(ctx, local, 40106, lib)
	var reverted *types.WriteRevertedError
	require.ErrorAs(t, err, &reverted)
	require.Equal(t, sent[1].Hash().Hex(), reverted.TxHash)
	require.Len(t, b.transactions(), 2)
	require.Empty(t, e.pending)
}
