package aptokit

import (
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"

	"github.com/aptokit/aptokit/chain"
	"github.com/aptokit/aptokit/config"
	"github.com/aptokit/aptokit/contract"
	"github.com/aptokit/aptokit/events"
	"github.com/aptokit/aptokit/txn"
	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
)

var log = logging.Logger("aptokit")

// SDK is the composition root: one chain client, wallet manager, transaction
// orchestrator and event engine per instance. Nothing here is an ambient
// singleton; two SDKs never share state.
type SDK struct {
	cfg    *config.Config
	chain  chain.Client
	wallet *wallet.Manager
	txns   *txn.Orchestrator
	events *events.Engine
}

type options struct {
	chainClient chain.Client
	clock       clock.Clock
	store       wallet.Store
	providers   []wallet.Provider
	pollOpts    []events.Option
	txnOpts     []txn.Option
}

type Option func(*options)

// WithChainClient substitutes the node client, mainly for tests and custom
// transports.
func WithChainClient(c chain.Client) Option {
	return func(o *options) { o.chainClient = c }
}

// WithClock injects the clock driving confirmation and event polling.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
		o.pollOpts = append(o.pollOpts, events.WithClock(c))
		o.txnOpts = append(o.txnOpts, txn.WithClock(c))
	}
}

// WithStore substitutes the provider persistence store.
func WithStore(s wallet.Store) Option {
	return func(o *options) { o.store = s }
}

// WithProviders registers the wallet providers available to this SDK.
func WithProviders(ps ...wallet.Provider) Option {
	return func(o *options) { o.providers = append(o.providers, ps...) }
}

// WithEventPollInterval overrides the event polling cadence, taking
// precedence over the configured one.
func WithEventPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollOpts = append(o.pollOpts, events.WithPollInterval(d)) }
}

// New assembles an SDK against cfg. A nil cfg gets the defaults.
func New(cfg *config.Config, opts ...Option) (*SDK, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	chainClient := o.chainClient
	if chainClient == nil {
		if cfg.Network == nil || cfg.Network.NodeURL == "" {
			return nil, types.NewError(types.ErrInvalidArgument, "no node url configured and no chain client injected")
		}
		var err error
		chainClient, err = chain.NewClient(cfg.Network.NodeURL)
		if err != nil {
			return nil, err
		}
	}

	store := o.store
	if store == nil {
		storeDir := config.DefaultRepoDir
		if cfg.Wallet != nil && cfg.Wallet.StoreDir != "" {
			storeDir = cfg.Wallet.StoreDir
		}
		dir, err := config.RepoPath(storeDir)
		if err != nil {
			return nil, err
		}
		store, err = wallet.NewFileStore(filepath.Join(dir, "wallet"))
		if err != nil {
			return nil, err
		}
	}

	mgr := wallet.NewManager(wallet.NewRegistry(o.providers...), store)

	var pollOpts []events.Option
	if cfg.Poll != nil && cfg.Poll.EventInterval > 0 {
		pollOpts = append(pollOpts, events.WithPollInterval(cfg.Poll.EventInterval))
	}
	// explicit options win over the configured cadence
	pollOpts = append(pollOpts, o.pollOpts...)

	s := &SDK{
		cfg:    cfg,
		chain:  chainClient,
		wallet: mgr,
		txns:   txn.NewOrchestrator(mgr, chainClient, o.txnOpts...),
		events: events.NewEngine(chainClient, pollOpts...),
	}
	if cfg.Network != nil {
		log.Infow("sdk assembled", "network", cfg.Network.Name, "node", cfg.Network.NodeURL)
	}
	return s, nil
}

func (s *SDK) Wallet() *wallet.Manager         { return s.wallet }
func (s *SDK) Transactions() *txn.Orchestrator { return s.txns }
func (s *SDK) Events() *events.Engine          { return s.events }

// NodeClient is the raw escape hatch to the underlying chain API.
func (s *SDK) NodeClient() chain.Client { return s.chain }

// Contract binds a facade over one published module.
func (s *SDK) Contract(address types.Address, name string) (*contract.Contract, error) {
	return contract.New(address, name, s.chain, s.txns)
}

// WalletInfo reports the connected provider's display metadata.
func (s *SDK) WalletInfo() (wallet.Info, bool) {
	return s.wallet.Info()
}

// Close tears the instance down: every event subscription is dropped and
// every provider listener detached. The wallet connection itself is left to
// the provider; call Wallet().Disconnect first for a clean sign-off.
func (s *SDK) Close() {
	s.events.UnsubscribeAll()
	s.wallet.Destroy()
}
