package wallet

import (
	"context"

	"github.com/aptokit/aptokit/types"
)

// Account is the identity a provider resolves on connect.
type Account struct {
	Address   types.Address
	PublicKey []byte
}

// Info is the display metadata of a provider.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Provider is an external wallet capability. The SDK never signs itself, it
// delegates to a Provider. Change registrations return an unsubscribe func;
// every handler attached through them must be detachable.
type Provider interface {
	Info() Info

	Connect(ctx context.Context) (*Account, error)
	Disconnect(ctx context.Context) error

	// SignTransaction signs payload with sender's key. The payload is taken
	// by value and never mutated.
	SignTransaction(ctx context.Context, payload types.TransactionPayload, sender types.Address) (*types.SignedTransaction, error)

	OnAccountChanged(fn func(Account)) (unsubscribe func())
	OnNetworkChanged(fn func(network string)) (unsubscribe func())
	OnDisconnected(fn func()) (unsubscribe func())
}
