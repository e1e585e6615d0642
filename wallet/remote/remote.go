// Package remote implements a wallet.Provider speaking JSON over a websocket
// to an external wallet daemon. Requests are correlated to responses by UUID
// through a pending-request table; the daemon pushes account, network and
// disconnect notifications over the same connection.
package remote

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultCleanInterval  = time.Minute

	msgRequest  = "request"
	msgResponse = "response"
	msgNotify   = "notify"

	methodConnect    = "connect"
	methodDisconnect = "disconnect"
	methodSign       = "sign_transaction"

	notifyAccountChanged = "account_changed"
	notifyNetworkChanged = "network_changed"
	notifyDisconnected   = "disconnected"
)

// message is the wire envelope in both directions.
type message struct {
	Type    string          `json:"type"`
	ID      uuid.UUID       `json:"id,omitempty"`
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type pendingRequest struct {
	method     string
	createTime time.Time
	result     chan *message
}

var _ wallet.Provider = (*Provider)(nil)

// Provider is a remote wallet daemon behind a websocket. Start must run
// before the first request; the listen loop reconnects with backoff until the
// context ends.
type Provider struct {
	url  string
	info wallet.Info
	log  *zap.SugaredLogger

	connLk sync.Mutex
	conn   *websocket.Conn

	reqLk   sync.Mutex
	pending map[uuid.UUID]*pendingRequest

	handlerLk        sync.Mutex
	accountHandlers  map[int]func(wallet.Account)
	networkHandlers  map[int]func(string)
	shutdownHandlers map[int]func()
	nextHandler      int

	requestTimeout time.Duration
	cancel         context.CancelFunc
}

type Option func(*Provider)

func WithRequestTimeout(d time.Duration) Option {
	return func(p *Provider) { p.requestTimeout = d }
}

func New(url string, info wallet.Info, log *zap.SugaredLogger, opts ...Option) *Provider {
	p := &Provider{
		url:              url,
		info:             info,
		log:              log,
		pending:          make(map[uuid.UUID]*pendingRequest),
		accountHandlers:  make(map[int]func(wallet.Account)),
		networkHandlers:  make(map[int]func(string)),
		shutdownHandlers: make(map[int]func()),
		requestTimeout:   defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start dials the daemon and runs the listen loop until ctx ends. The loop
// survives connection drops: each drop fails the in-flight requests and
// redials with backoff.
func (p *Provider) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := p.dial(ctx); err != nil {
		cancel()
		return err
	}
	go p.listen(ctx)
	go p.cleanRequests(ctx)
	return nil
}

// Close stops the listen loop and drops the connection.
func (p *Provider) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.connLk.Lock()
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.connLk.Unlock()
}

func (p *Provider) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial wallet daemon %s", p.url)
	}
	p.connLk.Lock()
	p.conn = conn
	p.connLk.Unlock()
	p.log.Infow("wallet daemon connected", "url", p.url)
	return nil
}

func (p *Provider) listen(ctx context.Context) {
	bo := &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Jitter: true}
	for {
		if err := p.listenOnce(ctx); err != nil {
			p.log.Errorf("wallet daemon stream errored: %s", err)
		}
		p.failPending("connection lost")

		select {
		case <-time.After(bo.Duration()):
		case <-ctx.Done():
			p.log.Warnf("not restarting wallet daemon stream: %s", ctx.Err())
			return
		}
		p.log.Info("redialing wallet daemon")
		if err := p.dial(ctx); err != nil {
			continue
		}
		bo.Reset()
	}
}

func (p *Provider) listenOnce(ctx context.Context) error {
	p.connLk.Lock()
	conn := p.conn
	p.connLk.Unlock()
	if conn == nil {
		return errors.New("no connection")
	}

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case msgResponse:
			p.resolve(&msg)
		case msgNotify:
			p.notify(&msg)
		default:
			p.log.Warnf("unexpected message type %q from wallet daemon", msg.Type)
		}
	}
}

// resolve hands a response to its waiting request; a response nobody waits
// for is dropped (the cleaner may have timed the request out already).
func (p *Provider) resolve(msg *message) {
	p.reqLk.Lock()
	req, ok := p.pending[msg.ID]
	if ok {
		delete(p.pending, msg.ID)
	}
	p.reqLk.Unlock()
	if !ok {
		p.log.Warnf("response for unknown request %s dropped", msg.ID)
		return
	}
	req.result <- msg
}

func (p *Provider) notify(msg *message) {
	switch msg.Method {
	case notifyAccountChanged:
		var account wallet.Account
		if err := json.Unmarshal(msg.Payload, &account); err != nil {
			p.log.Errorf("undecodable account notification: %s", err)
			return
		}
		p.handlerLk.Lock()
		handlers := make([]func(wallet.Account), 0, len(p.accountHandlers))
		for _, fn := range p.accountHandlers {
			handlers = append(handlers, fn)
		}
		p.handlerLk.Unlock()
		for _, fn := range handlers {
			fn(account)
		}
	case notifyNetworkChanged:
		var network string
		if err := json.Unmarshal(msg.Payload, &network); err != nil {
			p.log.Errorf("undecodable network notification: %s", err)
			return
		}
		p.handlerLk.Lock()
		handlers := make([]func(string), 0, len(p.networkHandlers))
		for _, fn := range p.networkHandlers {
			handlers = append(handlers, fn)
		}
		p.handlerLk.Unlock()
		for _, fn := range handlers {
			fn(network)
		}
	case notifyDisconnected:
		p.handlerLk.Lock()
		handlers := make([]func(), 0, len(p.shutdownHandlers))
		for _, fn := range p.shutdownHandlers {
			handlers = append(handlers, fn)
		}
		p.handlerLk.Unlock()
		for _, fn := range handlers {
			fn()
		}
	default:
		p.log.Warnf("unknown notification %q from wallet daemon", msg.Method)
	}
}

// sendRequest writes one request and blocks for its response or the context.
func (p *Provider) sendRequest(ctx context.Context, method string, payload, result interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s request", method)
	}

	req := &pendingRequest{
		method:     method,
		createTime: time.Now(),
		result:     make(chan *message, 1),
	}
	id := uuid.New()
	p.reqLk.Lock()
	p.pending[id] = req
	p.reqLk.Unlock()

	p.connLk.Lock()
	conn := p.conn
	var writeErr error
	if conn == nil {
		writeErr = errors.New("wallet daemon not connected")
	} else {
		writeErr = conn.WriteJSON(&message{Type: msgRequest, ID: id, Method: method, Payload: data})
	}
	p.connLk.Unlock()
	if writeErr != nil {
		p.reqLk.Lock()
		delete(p.pending, id)
		p.reqLk.Unlock()
		return writeErr
	}

	select {
	case resp := <-req.result:
		if resp.Error != "" {
			return errors.Errorf("wallet daemon: %s", resp.Error)
		}
		if result != nil {
			return json.Unmarshal(resp.Payload, result)
		}
		return nil
	case <-ctx.Done():
		p.reqLk.Lock()
		delete(p.pending, id)
		p.reqLk.Unlock()
		return ctx.Err()
	}
}

// cleanRequests times out pending requests the daemon never answered.
func (p *Provider) cleanRequests(ctx context.Context) {
	tm := time.NewTicker(defaultCleanInterval)
	defer tm.Stop()
	for {
		select {
		case <-tm.C:
			p.reqLk.Lock()
			for id, req := range p.pending {
				if time.Since(req.createTime) > p.requestTimeout {
					delete(p.pending, id)
					select {
					case req.result <- &message{ID: id, Error: "request timed out waiting for the daemon"}:
					default:
					}
				}
			}
			p.reqLk.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// failPending aborts every in-flight request, used when the connection drops.
func (p *Provider) failPending(reason string) {
	p.reqLk.Lock()
	defer p.reqLk.Unlock()
	for id, req := range p.pending {
		delete(p.pending, id)
		select {
		case req.result <- &message{ID: id, Error: reason}:
		default:
		}
	}
}

// --- wallet.Provider ---

func (p *Provider) Info() wallet.Info { return p.info }

func (p *Provider) Connect(ctx context.Context) (*wallet.Account, error) {
	var account wallet.Account
	if err := p.sendRequest(ctx, methodConnect, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (p *Provider) Disconnect(ctx context.Context) error {
	return p.sendRequest(ctx, methodDisconnect, nil, nil)
}

type signRequest struct {
	Payload types.TransactionPayload `json:"payload"`
	Sender  types.Address            `json:"sender"`
}

func (p *Provider) SignTransaction(ctx context.Context, payload types.TransactionPayload, sender types.Address) (*types.SignedTransaction, error) {
	var signed types.SignedTransaction
	if err := p.sendRequest(ctx, methodSign, signRequest{Payload: payload, Sender: sender}, &signed); err != nil {
		return nil, err
	}
	return &signed, nil
}

func (p *Provider) OnAccountChanged(fn func(wallet.Account)) func() {
	p.handlerLk.Lock()
	defer p.handlerLk.Unlock()
	id := p.nextHandler
	p.nextHandler++
	p.accountHandlers[id] = fn
	return func() {
		p.handlerLk.Lock()
		defer p.handlerLk.Unlock()
		delete(p.accountHandlers, id)
	}
}

func (p *Provider) OnNetworkChanged(fn func(string)) func() {
	p.handlerLk.Lock()
	defer p.handlerLk.Unlock()
	id := p.nextHandler
	p.nextHandler++
	p.networkHandlers[id] = fn
	return func() {
		p.handlerLk.Lock()
		defer p.handlerLk.Unlock()
		delete(p.networkHandlers, id)
	}
}

func (p *Provider) OnDisconnected(fn func()) func() {
	p.handlerLk.Lock()
	defer p.handlerLk.Unlock()
	id := p.nextHandler
	p.nextHandler++
	p.shutdownHandlers[id] = fn
	return func() {
		p.handlerLk.Lock()
		defer p.handlerLk.Unlock()
		delete(p.shutdownHandlers, id)
	}
}
