package wallet

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/aptokit/aptokit/metrics"
	"github.com/aptokit/aptokit/types"
)

var log = logging.Logger("wallet")

// State is the connection state machine position.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Manager owns the wallet connection state. At most one provider is
// connected at a time; all mutation goes through its methods. One Manager is
// constructed per SDK instance, never shared ambiently.
type Manager struct {
	mu       sync.Mutex
	registry *Registry
	store    Store

	state    State
	wstate   types.WalletState
	provider Provider
	detach   []func()

	em *emitter
}

func NewManager(registry *Registry, store Store) *Manager {
	return &Manager{
		registry: registry,
		store:    store,
		em:       newEmitter(),
	}
}

// DetectProviders lists available provider ids. Side-effect free; an empty
// list is a valid answer, not an error.
func (m *Manager) DetectProviders() []string {
	return m.registry.Detect()
}

// On registers a handler for a wallet lifecycle event and returns its
// unsubscribe func.
func (m *Manager) On(kind EventKind, fn func(Event)) func() {
	return m.em.on(kind, fn)
}

// Connect transitions Disconnected -> Connecting -> Connected. Connecting to
// an unknown provider fails with WALLET_NOT_FOUND and leaves the state
// untouched; a provider rejection fails with WALLET_CONNECTION_FAILED and
// falls back to Disconnected. A connect while already connected first tears
// the current connection down, keeping the one-wallet invariant.
func (m *Manager) Connect(ctx context.Context, providerID string) error {
	provider, ok := m.registry.Lookup(providerID)
	if !ok {
		return types.NewError(types.ErrWalletNotFound, "wallet provider %s not detected", providerID).
			WithDetail("provider", providerID).
			WithDetail("detected", m.registry.Detect())
	}

	m.mu.Lock()
	if m.state == Connecting {
		m.mu.Unlock()
		return types.NewError(types.ErrWalletConnectionFailed, "connect already in progress").
			WithDetail("provider", providerID)
	}
	if m.state == Connected {
		m.disconnectLocked()
		m.mu.Unlock()
		m.em.emit(Event{Kind: EventDisconnect})
		m.mu.Lock()
	}
	m.state = Connecting
	m.mu.Unlock()

	account, err := provider.Connect(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		return types.WrapError(err, types.ErrWalletConnectionFailed, "provider %s rejected connect", providerID).
			WithDetail("provider", providerID)
	}

	m.mu.Lock()
	m.provider = provider
	m.state = Connected
	m.wstate = types.WalletState{
		Connected: true,
		Address:   account.Address,
		PublicKey: account.PublicKey,
	}
	m.detach = []func(){
		provider.OnAccountChanged(m.handleAccountChanged),
		provider.OnNetworkChanged(m.handleNetworkChanged),
		provider.OnDisconnected(m.handleProviderDisconnect),
	}
	m.mu.Unlock()

	if err := m.store.Put(providerID); err != nil {
		log.Warnf("persist provider %s failed: %s", providerID, err)
	}

	mctx, _ := tag.New(ctx, tag.Upsert(metrics.ProviderKey, providerID))
	stats.Record(mctx, metrics.WalletConnect.M(1))
	log.Infow("wallet connected", "provider", providerID, "address", account.Address)

	m.em.emit(Event{Kind: EventConnect, Address: account.Address})
	return nil
}

// Disconnect is valid from any state and idempotent: disconnecting while
// already disconnected is a no-op and emits nothing.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return nil
	}
	provider := m.provider
	m.disconnectLocked()
	m.mu.Unlock()

	if err := provider.Disconnect(ctx); err != nil {
		log.Warnf("provider disconnect failed: %s", err)
	}
	if err := m.store.Clear(); err != nil {
		log.Warnf("clear provider store failed: %s", err)
	}

	mctx, _ := tag.New(ctx, tag.Upsert(metrics.ProviderKey, provider.Info().ID))
	stats.Record(mctx, metrics.WalletDisconnect.M(1))
	log.Infof("wallet %s disconnected", provider.Info().ID)

	m.em.emit(Event{Kind: EventDisconnect})
	return nil
}

// AutoConnect reconnects to the persisted provider. A missing record or a
// provider that is no longer detected is a silent no-op.
func (m *Manager) AutoConnect(ctx context.Context) error {
	id, err := m.store.Get()
	if err != nil {
		log.Warnf("read provider store failed: %s", err)
		return nil
	}
	if id == "" {
		return nil
	}
	if _, ok := m.registry.Lookup(id); !ok {
		log.Debugf("persisted provider %s no longer detected, skipping auto connect", id)
		return nil
	}
	return m.Connect(ctx, id)
}

// State returns the state machine position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// WalletState returns a copy of the externally visible connection state.
func (m *Manager) WalletState() types.WalletState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wstate
}

// Info returns the display metadata of the connected provider.
func (m *Manager) Info() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Connected {
		return Info{}, false
	}
	return m.provider.Info(), true
}

// SignTransaction delegates to the connected provider with the connected
// address as sender.
func (m *Manager) SignTransaction(ctx context.Context, payload types.TransactionPayload) (*types.SignedTransaction, error) {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return nil, types.NewError(types.ErrWalletNotConnected, "no wallet connected")
	}
	provider := m.provider
	sender := m.wstate.Address
	m.mu.Unlock()

	signed, err := provider.SignTransaction(ctx, payload.Clone(), sender)
	if err != nil {
		return nil, types.WrapError(err, types.ErrWalletConnectionFailed, "provider signing failed").
			WithDetail("provider", provider.Info().ID)
	}
	return signed, nil
}

// Destroy detaches every provider listener registered during
// Connect/AutoConnect and drops all local handlers. The manager is unusable
// afterwards except for reads.
func (m *Manager) Destroy() {
	m.mu.Lock()
	m.detachLocked()
	m.mu.Unlock()
	m.em.clear()
}

// disconnectLocked clears connection state; caller holds m.mu and emits.
func (m *Manager) disconnectLocked() {
	m.detachLocked()
	m.state = Disconnected
	m.wstate = types.WalletState{}
	m.provider = nil
}

func (m *Manager) detachLocked() {
	for _, fn := range m.detach {
		fn()
	}
	m.detach = nil
}

func (m *Manager) handleAccountChanged(account Account) {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return
	}
	m.wstate.Address = account.Address
	m.wstate.PublicKey = account.PublicKey
	m.mu.Unlock()

	log.Infof("wallet account changed to %s", account.Address)
	m.em.emit(Event{Kind: EventAccountChanged, Address: account.Address})
}

func (m *Manager) handleNetworkChanged(network string) {
	log.Infof("wallet network changed to %s", network)
	m.em.emit(Event{Kind: EventNetworkChanged, Network: network})
}

// handleProviderDisconnect forces the machine to Disconnected when the
// provider reports a disconnect that was never requested locally.
func (m *Manager) handleProviderDisconnect() {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return
	}
	m.disconnectLocked()
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		log.Warnf("clear provider store failed: %s", err)
	}
	log.Warn("provider reported disconnect")
	m.em.emit(Event{Kind: EventDisconnect})
}
