package aptokit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aptokit/aptokit"
	"github.com/aptokit/aptokit/config"
	"github.com/aptokit/aptokit/testhelper"
	"github.com/aptokit/aptokit/txn"
	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
)

func setupSDK(t *testing.T) (*aptokit.SDK, *testhelper.MemChain, *testhelper.MemProvider) {
	t.Helper()
	provider := testhelper.NewMemProvider("providerA", testhelper.FakeAddress("sender"))
	memChain := testhelper.NewMemChain()

	sdk, err := aptokit.New(nil,
		aptokit.WithChainClient(memChain),
		aptokit.WithStore(testhelper.NewMemStore()),
		aptokit.WithProviders(provider),
	)
	require.NoError(t, err)
	t.Cleanup(sdk.Close)
	return sdk, memChain, provider
}

func TestNewRequiresANode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network = nil

	_, err := aptokit.New(cfg, aptokit.WithStore(testhelper.NewMemStore()))
	require.Equal(t, types.ErrInvalidArgument, types.CodeOf(err))
}

func TestEndToEndTransfer(t *testing.T) {
	ctx := context.Background()
	sdk, memChain, _ := setupSDK(t)

	require.Equal(t, []string{"providerA"}, sdk.Wallet().DetectProviders())
	require.NoError(t, sdk.Wallet().Connect(ctx, "providerA"))

	info, ok := sdk.WalletInfo()
	require.True(t, ok)
	require.Equal(t, "providerA", info.ID)

	payload, err := sdk.Transactions().Transfer(txn.TransferOptions{To: "0x2", Amount: 100})
	require.NoError(t, err)
	hash, err := sdk.Transactions().SignAndSubmit(ctx, payload)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.Len(t, memChain.Submitted(), 1)
}

func TestContractBinding(t *testing.T) {
	sdk, memChain, _ := setupSDK(t)

	c, err := sdk.Contract("0x42", "marketplace")
	require.NoError(t, err)

	memChain.PutViewResult("0x42::marketplace::listing_count", []types.MoveValue{types.U64(3)})
	vals, err := c.View(context.Background(), "listing_count", nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3), vals[0].U64())

	_, err = sdk.Contract("bogus", "marketplace")
	require.Equal(t, types.ErrInvalidAddress, types.CodeOf(err))
}

func TestCloseTearsDown(t *testing.T) {
	ctx := context.Background()
	sdk, _, provider := setupSDK(t)
	require.NoError(t, sdk.Wallet().Connect(ctx, "providerA"))

	_, err := sdk.Events().Subscribe("0x42::marketplace::ListingEvent", func(types.ContractEvent) {})
	require.NoError(t, err)
	require.Equal(t, 1, sdk.Events().SubscriptionCount())
	require.Equal(t, 3, provider.ListenerCount())

	sdk.Close()
	require.Equal(t, 0, sdk.Events().SubscriptionCount())
	require.Equal(t, 0, provider.ListenerCount())
	require.Equal(t, wallet.Connected, sdk.Wallet().State()) // Close never signs the wallet off
}
