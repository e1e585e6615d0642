package txn

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/aptokit/aptokit/chain"
	"github.com/aptokit/aptokit/metrics"
	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
)

var log = logging.Logger("txn")

const (
	// DefaultCoinType is assumed by Transfer when no coin type is given.
	DefaultCoinType = "0x1::aptos_coin::AptosCoin"
	// transferFunction is the canonical coin transfer entry function.
	transferFunction = "0x1::coin::transfer"

	defaultWaitTimeout   = 30 * time.Second
	defaultCheckInterval = time.Second

	// simulationSender stands in when no wallet is connected; simulation
	// needs a sender of record but not a signature.
	simulationSender = types.Address("0x1")
)

// Orchestrator composes the transaction pipeline: build, sign, submit,
// simulate and confirmation polling. Each stage is independently callable.
// Submission is single shot; only the confirmation wait retries.
type Orchestrator struct {
	wallet *wallet.Manager
	chain  chain.Client
	clock  clock.Clock
}

type Option func(*Orchestrator)

// WithClock injects the clock driving confirmation polling, so tests can run
// on a mock clock instead of wall time.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func NewOrchestrator(w *wallet.Manager, c chain.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		wallet: w,
		chain:  c,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BuildOptions name an entry function call.
type BuildOptions struct {
	Function      string
	TypeArguments []string
	Arguments     []types.MoveValue
}

// Build validates the options and produces an immutable payload. It never
// touches the network.
func (o *Orchestrator) Build(opts BuildOptions) (types.TransactionPayload, error) {
	if opts.Function == "" {
		return types.TransactionPayload{}, types.NewError(types.ErrInvalidArgument, "function is required")
	}
	fn, err := types.ParseFunctionID(opts.Function)
	if err != nil {
		return types.TransactionPayload{}, err
	}

	payload := types.TransactionPayload{
		Function:      fn,
		TypeArguments: opts.TypeArguments,
		Arguments:     opts.Arguments,
	}
	if payload.TypeArguments == nil {
		payload.TypeArguments = []string{}
	}
	if payload.Arguments == nil {
		payload.Arguments = []types.MoveValue{}
	}
	return payload.Clone(), nil
}

// TransferOptions name a native coin transfer.
type TransferOptions struct {
	To       types.Address
	Amount   uint64
	CoinType string
}

// Transfer specializes Build for the canonical coin transfer, defaulting the
// coin type when omitted.
func (o *Orchestrator) Transfer(opts TransferOptions) (types.TransactionPayload, error) {
	if opts.To == "" {
		return types.TransactionPayload{}, types.NewError(types.ErrInvalidArgument, "transfer recipient is required")
	}
	if !opts.To.Valid() {
		return types.TransactionPayload{}, types.NewError(types.ErrInvalidAddress, "malformed recipient %q", opts.To)
	}
	if opts.Amount == 0 {
		return types.TransactionPayload{}, types.NewError(types.ErrInvalidArgument, "transfer amount is required")
	}
	coinType := opts.CoinType
	if coinType == "" {
		coinType = DefaultCoinType
	}
	return o.Build(BuildOptions{
		Function:      transferFunction,
		TypeArguments: []string{coinType},
		Arguments:     []types.MoveValue{types.AddressValue(opts.To), types.U64(opts.Amount)},
	})
}

// Sign delegates to the connected wallet with the connected address as
// sender. Fails with WALLET_NOT_CONNECTED when no wallet is connected.
func (o *Orchestrator) Sign(ctx context.Context, payload types.TransactionPayload) (*types.SignedTransaction, error) {
	start := time.Now()
	signed, err := o.wallet.SignTransaction(ctx, payload)
	if err != nil {
		return nil, err
	}
	stats.Record(ctx, metrics.WalletSign.M(metrics.SinceInMilliseconds(start)))
	return signed, nil
}

// Submit forwards the signed transaction to the node, single shot.
func (o *Orchestrator) Submit(ctx context.Context, signed *types.SignedTransaction) (types.Hash, error) {
	hash, err := o.chain.SubmitTransaction(ctx, signed)
	if err != nil {
		if types.CodeOf(err) == "" {
			err = types.WrapError(err, types.ErrNetwork, "submit transaction failed")
		}
		return "", err
	}
	stats.Record(ctx, metrics.TxnSubmit.M(1))
	log.Infow("transaction submitted", "hash", hash, "function", signed.Payload.Function.String())
	return hash, nil
}

// SignAndSubmit is the single-entry convenience composing Sign then Submit.
func (o *Orchestrator) SignAndSubmit(ctx context.Context, payload types.TransactionPayload) (types.Hash, error) {
	signed, err := o.Sign(ctx, payload)
	if err != nil {
		return "", err
	}
	return o.Submit(ctx, signed)
}

// Simulate dry-runs the payload. A failed simulation is a result, not an
// error; only a communication failure errors. When no wallet is connected a
// placeholder sender is used, no signature is required.
func (o *Orchestrator) Simulate(ctx context.Context, payload types.TransactionPayload) (*chain.SimulationResult, error) {
	sender := simulationSender
	if st := o.wallet.WalletState(); st.Connected {
		sender = st.Address
	}
	result, err := o.chain.SimulateTransaction(ctx, payload, sender)
	if err != nil {
		if types.CodeOf(err) == "" {
			err = types.WrapError(err, types.ErrNetwork, "simulate transaction failed")
		}
		return nil, err
	}
	stats.Record(ctx, metrics.TxnSimulate.M(1))
	return result, nil
}

type waitConfig struct {
	timeout  time.Duration
	interval time.Duration
}

type WaitOption func(*waitConfig)

// WithTimeout caps the total confirmation wait (default 30s).
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.timeout = d }
}

// WithCheckInterval sets the status poll cadence (default 1s).
func WithCheckInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.interval = d }
}

// WaitForTransaction polls the node until the transaction is finalized or
// the timeout elapses. A transaction that executed and failed is returned
// with Success=false, not as an error. A hard error from the status query
// aborts the wait immediately rather than being absorbed into more polling.
func (o *Orchestrator) WaitForTransaction(ctx context.Context, hash types.Hash, opts ...WaitOption) (*types.TransactionResponse, error) {
	cfg := waitConfig{timeout: defaultWaitTimeout, interval: defaultCheckInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	deadline := o.clock.Now().Add(cfg.timeout)
	for {
		resp, finalized, err := o.chain.TransactionByHash(ctx, hash)
		if err != nil {
			if types.CodeOf(err) == "" {
				err = types.WrapError(err, types.ErrNetwork, "transaction status query failed")
			}
			return nil, err
		}
		if finalized {
			mctx, _ := tag.New(ctx, tag.Upsert(metrics.NetworkKey, "node"))
			stats.Record(mctx, metrics.TxnConfirm.M(metrics.SinceInMilliseconds(start)))
			return resp, nil
		}

		// stop when the next poll would land past the deadline
		if o.clock.Now().Add(cfg.interval).After(deadline) {
			break
		}
		timer := o.clock.Timer(cfg.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, types.WrapError(ctx.Err(), types.ErrTransactionTimeout, "confirmation wait canceled").
				WithDetail("hash", hash)
		}
	}

	return nil, types.NewError(types.ErrTransactionTimeout, "transaction %s not confirmed within %s", hash, cfg.timeout).
		WithDetail("hash", hash)
}
