package chain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aptokit/aptokit/chain"
	"github.com/aptokit/aptokit/testhelper"
	"github.com/aptokit/aptokit/types"
)

func setupNode(t *testing.T) (chain.Client, *testhelper.MockNode) {
	t.Helper()
	node := testhelper.NewMockNode()
	t.Cleanup(node.Close)

	client, err := chain.NewClient(node.URL())
	require.NoError(t, err)
	return client, node
}

func TestNewClientValidation(t *testing.T) {
	_, err := chain.NewClient("")
	require.Equal(t, types.ErrInvalidArgument, types.CodeOf(err))
}

func TestLedgerInfo(t *testing.T) {
	client, _ := setupNode(t)

	info, err := client.LedgerInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint8(4), info.ChainID)
}

func TestAccountAndBalance(t *testing.T) {
	ctx := context.Background()
	client, node := setupNode(t)
	addr := testhelper.FakeAddress("holder")

	_, err := client.Account(ctx, addr)
	require.Equal(t, types.ErrNetwork, types.CodeOf(err))

	node.Chain.PutAccount(addr, &chain.AccountInfo{SequenceNumber: "5", AuthenticationKey: "0xkey"})
	info, err := client.Account(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, "5", info.SequenceNumber)

	node.Chain.PutResource(addr, "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>",
		map[string]interface{}{"coin": map[string]interface{}{"value": "1500"}})
	balance, err := client.AccountBalance(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1500), balance)
}

func TestTransactionByHash(t *testing.T) {
	ctx := context.Background()
	client, node := setupNode(t)
	hash := testhelper.FakeHash("tx1")

	// unknown hash is "not yet", not an error
	resp, finalized, err := client.TransactionByHash(ctx, hash)
	require.NoError(t, err)
	require.False(t, finalized)
	require.Nil(t, resp)

	node.Chain.PutTransaction(&types.TransactionResponse{
		Hash: hash, Success: true, VMStatus: "Executed successfully", GasUsed: "11",
	}, 0)
	resp, finalized, err = client.TransactionByHash(ctx, hash)
	require.NoError(t, err)
	require.True(t, finalized)
	require.Equal(t, hash, resp.Hash)
	require.Equal(t, "11", resp.GasUsed)
}

func TestSubmitAndSimulate(t *testing.T) {
	ctx := context.Background()
	client, node := setupNode(t)

	signed := &types.SignedTransaction{
		Payload: types.TransactionPayload{
			Function:      types.FunctionID{Address: "0x1", Module: "coin", Name: "transfer"},
			TypeArguments: []string{},
			Arguments:     []types.MoveValue{},
		},
		Sender:    testhelper.FakeAddress("sender"),
		Signature: []byte("sig"),
	}
	hash, err := client.SubmitTransaction(ctx, signed)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.Len(t, node.Chain.Submitted(), 1)

	result, err := client.SimulateTransaction(ctx, signed.Payload, signed.Sender)
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestView(t *testing.T) {
	ctx := context.Background()
	client, node := setupNode(t)

	node.Chain.PutViewResult("0x42::marketplace::listing_count",
		[]types.MoveValue{types.U64(12), types.Str("open")})

	vals, err := client.View(ctx, &chain.ViewRequest{
		Function:      types.FunctionID{Address: "0x42", Module: "marketplace", Name: "listing_count"},
		TypeArguments: []string{},
		Arguments:     []types.MoveValue{},
	})
	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.Equal(t, uint64(12), vals[0].U64())
	require.Equal(t, "open", vals[1].Str())
}

func TestEventsByHandle(t *testing.T) {
	ctx := context.Background()
	client, node := setupNode(t)
	handle, err := types.ParseEventHandleID("0x42::marketplace::ListingEvent")
	require.NoError(t, err)

	node.Chain.AppendEvents(handle,
		types.ContractEvent{Type: handle.String(), SequenceNumber: "0"},
		types.ContractEvent{Type: handle.String(), SequenceNumber: "1"},
		types.ContractEvent{Type: handle.String(), SequenceNumber: "2"},
	)

	start := uint64(1)
	events, err := client.EventsByHandle(ctx, handle, &start, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "1", events[0].SequenceNumber)

	// tail query for baselining
	events, err = client.EventsByHandle(ctx, handle, nil, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "2", events[0].SequenceNumber)
}

func TestModuleABICaching(t *testing.T) {
	ctx := context.Background()
	client, node := setupNode(t)

	node.Chain.PutABI(&chain.ModuleABI{
		Address:          "0x42",
		Name:             "marketplace",
		ExposedFunctions: []chain.ABIFunction{{Name: "list_item", IsEntry: true}},
	})

	abi, err := client.ModuleABI(ctx, "0x42", "marketplace")
	require.NoError(t, err)
	require.Len(t, abi.ExposedFunctions, 1)

	// the ABI changed server-side, but a published module's ABI is cached
	node.Chain.PutABI(&chain.ModuleABI{Address: "0x42", Name: "marketplace"})
	abi, err = client.ModuleABI(ctx, "0x42", "marketplace")
	require.NoError(t, err)
	require.Len(t, abi.ExposedFunctions, 1)
}

func TestNetworkErrorCarriesEndpoint(t *testing.T) {
	node := testhelper.NewMockNode()
	client, err := chain.NewClient(node.URL())
	require.NoError(t, err)
	node.Close() // nothing listens anymore

	_, err = client.LedgerInfo(context.Background())
	require.Error(t, err)
	require.Equal(t, types.ErrNetwork, types.CodeOf(err))

	var se *types.SDKError
	require.ErrorAs(t, err, &se)
	require.NotEmpty(t, se.Detail("endpoint"))
}
