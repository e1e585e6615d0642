package testhelper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aptokit/aptokit/chain"
	"github.com/aptokit/aptokit/types"
)

var _ chain.Client = (*MemChain)(nil)

// MemChain is a scriptable in-memory chain.Client. Tests preload accounts,
// transactions and events, or inject failures per operation.
type MemChain struct {
	lk sync.Mutex

	accounts  map[types.Address]*chain.AccountInfo
	resources map[types.Address]map[string]map[string]interface{}
	txns      map[types.Hash]*types.TransactionResponse
	// remaining "not found yet" polls per hash before the txn shows up
	pendingPolls map[types.Hash]int
	events       map[string][]types.ContractEvent
	viewResults  map[string][]types.MoveValue
	abis         map[string]*chain.ModuleABI
	simResult    *chain.SimulationResult

	submitted []*types.SignedTransaction

	failSubmit error
	failFetch  error
	failEvents error
	failView   error

	fetchCount int
	eventCalls int
}

func NewMemChain() *MemChain {
	return &MemChain{
		accounts:     make(map[types.Address]*chain.AccountInfo),
		resources:    make(map[types.Address]map[string]map[string]interface{}),
		txns:         make(map[types.Hash]*types.TransactionResponse),
		pendingPolls: make(map[types.Hash]int),
		events:       make(map[string][]types.ContractEvent),
		viewResults:  make(map[string][]types.MoveValue),
		abis:         make(map[string]*chain.ModuleABI),
		simResult:    &chain.SimulationResult{Success: true, GasUsed: "7", VMStatus: "Executed successfully"},
	}
}

// --- scripting ---

func (m *MemChain) PutAccount(addr types.Address, info *chain.AccountInfo) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.accounts[addr] = info
}

func (m *MemChain) PutResource(addr types.Address, resourceType string, data map[string]interface{}) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.resources[addr] == nil {
		m.resources[addr] = make(map[string]map[string]interface{})
	}
	m.resources[addr][resourceType] = data
}

// PutTransaction makes a transaction visible after pendingPolls lookups.
func (m *MemChain) PutTransaction(resp *types.TransactionResponse, pendingPolls int) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.txns[resp.Hash] = resp
	if pendingPolls > 0 {
		m.pendingPolls[resp.Hash] = pendingPolls
	}
}

func (m *MemChain) AppendEvents(handle types.EventHandleID, events ...types.ContractEvent) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.events[handle.String()] = append(m.events[handle.String()], events...)
}

func (m *MemChain) PutViewResult(fn string, vals []types.MoveValue) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.viewResults[fn] = vals
}

func (m *MemChain) PutABI(abi *chain.ModuleABI) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.abis[string(abi.Address)+"::"+abi.Name] = abi
}

func (m *MemChain) SetSimulationResult(r *chain.SimulationResult) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.simResult = r
}

func (m *MemChain) SetFailSubmit(err error) { m.lk.Lock(); defer m.lk.Unlock(); m.failSubmit = err }
func (m *MemChain) SetFailFetch(err error)  { m.lk.Lock(); defer m.lk.Unlock(); m.failFetch = err }
func (m *MemChain) SetFailEvents(err error) { m.lk.Lock(); defer m.lk.Unlock(); m.failEvents = err }
func (m *MemChain) SetFailView(err error)   { m.lk.Lock(); defer m.lk.Unlock(); m.failView = err }

func (m *MemChain) Submitted() []*types.SignedTransaction {
	m.lk.Lock()
	defer m.lk.Unlock()
	out := make([]*types.SignedTransaction, len(m.submitted))
	copy(out, m.submitted)
	return out
}

func (m *MemChain) FetchCount() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.fetchCount
}

func (m *MemChain) EventCalls() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.eventCalls
}

// --- chain.Client ---

func (m *MemChain) LedgerInfo(ctx context.Context) (*chain.LedgerInfo, error) {
	return &chain.LedgerInfo{ChainID: 4, LedgerVersion: "1"}, nil
}

func (m *MemChain) Account(ctx context.Context, addr types.Address) (*chain.AccountInfo, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	info, ok := m.accounts[addr]
	if !ok {
		return nil, types.NewError(types.ErrNetwork, "account %s not found", addr)
	}
	return info, nil
}

func (m *MemChain) AccountResource(ctx context.Context, addr types.Address, resourceType string) (map[string]interface{}, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	data, ok := m.resources[addr][resourceType]
	if !ok {
		return nil, types.NewError(types.ErrNetwork, "resource %s not found on %s", resourceType, addr)
	}
	return data, nil
}

func (m *MemChain) AccountBalance(ctx context.Context, addr types.Address) (uint64, error) {
	data, err := m.AccountResource(ctx, addr, "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>")
	if err != nil {
		return 0, err
	}
	coin, _ := data["coin"].(map[string]interface{})
	value, _ := coin["value"].(string)
	return strconv.ParseUint(value, 10, 64)
}

func (m *MemChain) TransactionByHash(ctx context.Context, hash types.Hash) (*types.TransactionResponse, bool, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.fetchCount++
	if m.failFetch != nil {
		return nil, false, m.failFetch
	}
	if left, ok := m.pendingPolls[hash]; ok && left > 0 {
		m.pendingPolls[hash] = left - 1
		return nil, false, nil
	}
	resp, ok := m.txns[hash]
	if !ok {
		return nil, false, nil
	}
	return resp, true, nil
}

func (m *MemChain) SubmitTransaction(ctx context.Context, signed *types.SignedTransaction) (types.Hash, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.failSubmit != nil {
		return "", m.failSubmit
	}
	m.submitted = append(m.submitted, signed)
	data, _ := json.Marshal(signed)
	digest := sha256.Sum256(data)
	return types.Hash("0x" + hex.EncodeToString(digest[:])), nil
}

func (m *MemChain) SimulateTransaction(ctx context.Context, payload types.TransactionPayload, sender types.Address) (*chain.SimulationResult, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	result := *m.simResult
	return &result, nil
}

func (m *MemChain) View(ctx context.Context, req *chain.ViewRequest) ([]types.MoveValue, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.failView != nil {
		return nil, m.failView
	}
	vals, ok := m.viewResults[req.Function.String()]
	if !ok {
		return nil, fmt.Errorf("no view result scripted for %s", req.Function)
	}
	return vals, nil
}

func (m *MemChain) EventsByHandle(ctx context.Context, handle types.EventHandleID, start *uint64, limit int) ([]types.ContractEvent, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.eventCalls++
	if m.failEvents != nil {
		return nil, m.failEvents
	}

	all := m.events[handle.String()]
	var out []types.ContractEvent
	for _, ev := range all {
		seq, _ := strconv.ParseUint(ev.SequenceNumber, 10, 64)
		if start != nil && seq < *start {
			continue
		}
		out = append(out, ev)
	}
	if start == nil {
		// tail semantics: most recent events only
		sort.Slice(out, func(i, j int) bool {
			si, _ := strconv.ParseUint(out[i].SequenceNumber, 10, 64)
			sj, _ := strconv.ParseUint(out[j].SequenceNumber, 10, 64)
			return si < sj
		})
		if limit > 0 && len(out) > limit {
			out = out[len(out)-limit:]
		}
		return out, nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemChain) ModuleABI(ctx context.Context, addr types.Address, module string) (*chain.ModuleABI, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	abi, ok := m.abis[string(addr)+"::"+module]
	if !ok {
		return nil, types.NewError(types.ErrCodegenFailed, "module %s::%s has no abi", addr, module)
	}
	return abi, nil
}
