package chain

import (
	"context"

	"github.com/aptokit/aptokit/types"
)

// LedgerInfo is the node's view of the chain head.
type LedgerInfo struct {
	ChainID         uint8  `json:"chain_id"`
	LedgerVersion   string `json:"ledger_version"`
	LedgerTimestamp string `json:"ledger_timestamp"`
}

// AccountInfo is the on-chain account record.
type AccountInfo struct {
	SequenceNumber    string `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

// SimulationResult reports the outcome of a dry-run execution. A failed
// simulation is a result, not an error.
type SimulationResult struct {
	Success  bool   `json:"success"`
	GasUsed  string `json:"gas_used"`
	VMStatus string `json:"vm_status"`
}

// ViewRequest invokes a read-only chain function.
type ViewRequest struct {
	Function      types.FunctionID  `json:"function"`
	TypeArguments []string          `json:"type_arguments"`
	Arguments     []types.MoveValue `json:"arguments"`
}

// ABIFunction describes one exposed function of a published module.
type ABIFunction struct {
	Name       string   `json:"name"`
	Visibility string   `json:"visibility"`
	IsEntry    bool     `json:"is_entry"`
	IsView     bool     `json:"is_view"`
	Params     []string `json:"params"`
	Return     []string `json:"return"`
}

// ModuleABI is the interface description of a published module, consumed by
// the binding generator and cached by the client (a published module's ABI
// only changes on republish).
type ModuleABI struct {
	Address          types.Address `json:"address"`
	Name             string        `json:"name"`
	ExposedFunctions []ABIFunction `json:"exposed_functions"`
}

// Client is the node API surface the SDK consumes. Implementations wrap
// every transport failure as a NETWORK_ERROR carrying the endpoint.
type Client interface {
	// LedgerInfo fetches the chain head summary.
	LedgerInfo(ctx context.Context) (*LedgerInfo, error)

	// Account fetches the account record for addr.
	Account(ctx context.Context, addr types.Address) (*AccountInfo, error)

	// AccountResource fetches a single resource by its struct type.
	AccountResource(ctx context.Context, addr types.Address, resourceType string) (map[string]interface{}, error)

	// AccountBalance fetches the native coin balance, in octas.
	AccountBalance(ctx context.Context, addr types.Address) (uint64, error)

	// TransactionByHash looks a transaction up. finalized is false when the
	// hash is unknown to the node or the transaction is still pending; both
	// are "not yet", not errors.
	TransactionByHash(ctx context.Context, hash types.Hash) (resp *types.TransactionResponse, finalized bool, err error)

	// SubmitTransaction forwards a signed transaction and returns its hash.
	// Single shot, never retried.
	SubmitTransaction(ctx context.Context, signed *types.SignedTransaction) (types.Hash, error)

	// SimulateTransaction dry-runs a payload for sender without a signature
	// of record.
	SimulateTransaction(ctx context.Context, payload types.TransactionPayload, sender types.Address) (*SimulationResult, error)

	// View invokes a read-only function and returns its values.
	View(ctx context.Context, req *ViewRequest) ([]types.MoveValue, error)

	// EventsByHandle fetches events for a handle. With a start sequence it
	// returns events at or after it in ascending order; with start nil it
	// returns the most recent events (the tail), used to baseline new
	// subscriptions.
	EventsByHandle(ctx context.Context, handle types.EventHandleID, start *uint64, limit int) ([]types.ContractEvent, error)

	// ModuleABI fetches (and caches) the ABI of a published module.
	ModuleABI(ctx context.Context, addr types.Address, module string) (*ModuleABI, error)
}
