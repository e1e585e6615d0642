package testhelper

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
)

var _ wallet.Provider = (*MemProvider)(nil)

// MemProvider is an in-memory wallet provider for tests. Connect resolves a
// fixed account; change notifications are fired manually through the Trigger
// methods.
type MemProvider struct {
	lk      sync.Mutex
	info    wallet.Info
	account wallet.Account

	failConnect bool
	failSign    bool

	connectCount    int
	disconnectCount int

	nextHandler     int
	accountHandlers map[int]func(wallet.Account)
	networkHandlers map[int]func(string)
	dropHandlers    map[int]func()
}

func NewMemProvider(id string, address types.Address) *MemProvider {
	return &MemProvider{
		info:            wallet.Info{ID: id, Name: id},
		account:         wallet.Account{Address: address, PublicKey: []byte(id + "-pubkey")},
		accountHandlers: make(map[int]func(wallet.Account)),
		networkHandlers: make(map[int]func(string)),
		dropHandlers:    make(map[int]func()),
	}
}

func (m *MemProvider) SetFailConnect(fail bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.failConnect = fail
}

func (m *MemProvider) SetFailSign(fail bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.failSign = fail
}

func (m *MemProvider) ConnectCount() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.connectCount
}

func (m *MemProvider) DisconnectCount() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.disconnectCount
}

// ListenerCount reports how many change handlers are currently attached,
// used to assert that disconnect/destroy release everything they acquired.
func (m *MemProvider) ListenerCount() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return len(m.accountHandlers) + len(m.networkHandlers) + len(m.dropHandlers)
}

func (m *MemProvider) Info() wallet.Info { return m.info }

func (m *MemProvider) Connect(ctx context.Context) (*wallet.Account, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.failConnect {
		return nil, fmt.Errorf("user rejected")
	}
	m.connectCount++
	account := m.account
	return &account, nil
}

func (m *MemProvider) Disconnect(ctx context.Context) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.disconnectCount++
	return nil
}

func (m *MemProvider) SignTransaction(ctx context.Context, payload types.TransactionPayload, sender types.Address) (*types.SignedTransaction, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.failSign {
		return nil, fmt.Errorf("mock sign error")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(append(data, sender...))
	return &types.SignedTransaction{
		Payload:   payload,
		Sender:    sender,
		Signature: digest[:],
	}, nil
}

func (m *MemProvider) OnAccountChanged(fn func(wallet.Account)) func() {
	m.lk.Lock()
	defer m.lk.Unlock()
	id := m.nextHandler
	m.nextHandler++
	m.accountHandlers[id] = fn
	return func() {
		m.lk.Lock()
		defer m.lk.Unlock()
		delete(m.accountHandlers, id)
	}
}

func (m *MemProvider) OnNetworkChanged(fn func(string)) func() {
	m.lk.Lock()
	defer m.lk.Unlock()
	id := m.nextHandler
	m.nextHandler++
	m.networkHandlers[id] = fn
	return func() {
		m.lk.Lock()
		defer m.lk.Unlock()
		delete(m.networkHandlers, id)
	}
}

func (m *MemProvider) OnDisconnected(fn func()) func() {
	m.lk.Lock()
	defer m.lk.Unlock()
	id := m.nextHandler
	m.nextHandler++
	m.dropHandlers[id] = fn
	return func() {
		m.lk.Lock()
		defer m.lk.Unlock()
		delete(m.dropHandlers, id)
	}
}

// TriggerAccountChange simulates the provider switching accounts.
func (m *MemProvider) TriggerAccountChange(account wallet.Account) {
	m.lk.Lock()
	m.account = account
	fns := make([]func(wallet.Account), 0, len(m.accountHandlers))
	for _, fn := range m.accountHandlers {
		fns = append(fns, fn)
	}
	m.lk.Unlock()
	for _, fn := range fns {
		fn(account)
	}
}

// TriggerNetworkChange simulates the provider switching networks.
func (m *MemProvider) TriggerNetworkChange(network string) {
	m.lk.Lock()
	fns := make([]func(string), 0, len(m.networkHandlers))
	for _, fn := range m.networkHandlers {
		fns = append(fns, fn)
	}
	m.lk.Unlock()
	for _, fn := range fns {
		fn(network)
	}
}

// TriggerDisconnect simulates a provider-initiated disconnect.
func (m *MemProvider) TriggerDisconnect() {
	m.lk.Lock()
	fns := make([]func(), 0, len(m.dropHandlers))
	for _, fn := range m.dropHandlers {
		fns = append(fns, fn)
	}
	m.lk.Unlock()
	for _, fn := range fns {
		fn()
	}
}
