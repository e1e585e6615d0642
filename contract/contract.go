package contract

import (
	"context"

	logging "github.com/ipfs/go-log/v2"

	"github.com/aptokit/aptokit/chain"
	"github.com/aptokit/aptokit/txn"
	"github.com/aptokit/aptokit/types"
)

var log = logging.Logger("contract")

// Contract is a thin facade over one published module: read-only views and
// entry function calls, phrased in terms of the orchestrator and the chain
// client rather than its own transport.
type Contract struct {
	address types.Address
	name    string
	chain   chain.Client
	txns    *txn.Orchestrator
}

func New(address types.Address, name string, c chain.Client, o *txn.Orchestrator) (*Contract, error) {
	if !address.Valid() {
		return nil, types.NewError(types.ErrInvalidAddress, "malformed contract address %q", address)
	}
	if name == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "contract module name is required")
	}
	return &Contract{address: address, name: name, chain: c, txns: o}, nil
}

func (c *Contract) Address() types.Address { return c.address }
func (c *Contract) Name() string           { return c.name }

// functionID qualifies a bare function name against this module.
func (c *Contract) functionID(function string) types.FunctionID {
	return types.FunctionID{Address: c.address, Module: c.name, Name: function}
}

// View invokes a read-only function. Any failure from the node is lifted to
// VIEW_FUNCTION_FAILED with the qualified function recorded.
func (c *Contract) View(ctx context.Context, function string, typeArgs []string, args []types.MoveValue) ([]types.MoveValue, error) {
	if function == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "view function name is required")
	}
	fn := c.functionID(function)
	if typeArgs == nil {
		typeArgs = []string{}
	}
	if args == nil {
		args = []types.MoveValue{}
	}

	vals, err := c.chain.View(ctx, &chain.ViewRequest{
		Function:      fn,
		TypeArguments: typeArgs,
		Arguments:     args,
	})
	if err != nil {
		return nil, types.WrapError(err, types.ErrViewFunctionFailed, "view %s failed", fn).
			WithDetail("function", fn.String())
	}
	return vals, nil
}

// Call builds an entry function payload against this module and runs it
// through sign-and-submit on the connected wallet.
func (c *Contract) Call(ctx context.Context, function string, typeArgs []string, args []types.MoveValue) (types.Hash, error) {
	if function == "" {
		return "", types.NewError(types.ErrInvalidArgument, "entry function name is required")
	}
	payload, err := c.txns.Build(txn.BuildOptions{
		Function:      c.functionID(function).String(),
		TypeArguments: typeArgs,
		Arguments:     args,
	})
	if err != nil {
		return "", err
	}
	return c.txns.SignAndSubmit(ctx, payload)
}

// CallAndWait composes Call with confirmation polling.
func (c *Contract) CallAndWait(ctx context.Context, function string, typeArgs []string, args []types.MoveValue, opts ...txn.WaitOption) (*types.TransactionResponse, error) {
	hash, err := c.Call(ctx, function, typeArgs, args)
	if err != nil {
		return nil, err
	}
	log.Debugw("entry call submitted, awaiting confirmation", "module", c.name, "function", function, "hash", hash)
	return c.txns.WaitForTransaction(ctx, hash, opts...)
}

// Bind fetches the module's ABI and returns a checked facade that rejects
// unknown functions before anything reaches the wire.
func (c *Contract) Bind(ctx context.Context) (*Bound, error) {
	abi, err := c.chain.ModuleABI(ctx, c.address, c.name)
	if err != nil {
		if types.CodeOf(err) == "" {
			err = types.WrapError(err, types.ErrCodegenFailed, "fetch abi for %s::%s failed", c.address, c.name)
		}
		return nil, err
	}
	fns := make(map[string]chain.ABIFunction, len(abi.ExposedFunctions))
	for _, fn := range abi.ExposedFunctions {
		fns[fn.Name] = fn
	}
	return &Bound{contract: c, functions: fns}, nil
}

// Bound is a Contract checked against the published ABI. View and Call verify
// the target function exists and has the right disposition (is_view /
// is_entry) before delegating.
type Bound struct {
	contract  *Contract
	functions map[string]chain.ABIFunction
}

func (b *Bound) lookup(function string, view bool) error {
	fn, ok := b.functions[function]
	if !ok {
		return types.NewError(types.ErrCodegenFailed, "module %s::%s exposes no function %q",
			b.contract.address, b.contract.name, function).
			WithDetail("function", function)
	}
	if view && !fn.IsView {
		return types.NewError(types.ErrCodegenFailed, "%s is not a view function", function)
	}
	if !view && !fn.IsEntry {
		return types.NewError(types.ErrCodegenFailed, "%s is not an entry function", function)
	}
	return nil
}

func (b *Bound) View(ctx context.Context, function string, typeArgs []string, args []types.MoveValue) ([]types.MoveValue, error) {
	if err := b.lookup(function, true); err != nil {
		return nil, err
	}
	return b.contract.View(ctx, function, typeArgs, args)
}

func (b *Bound) Call(ctx context.Context, function string, typeArgs []string, args []types.MoveValue) (types.Hash, error) {
	if err := b.lookup(function, false); err != nil {
		return "", err
	}
	return b.contract.Call(ctx, function, typeArgs, args)
}
