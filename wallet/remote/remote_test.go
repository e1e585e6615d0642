package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
)

// fakeDaemon is a minimal wallet daemon over a websocket: it answers
// connect/disconnect/sign and can push notifications.
type fakeDaemon struct {
	lk       sync.Mutex
	conn     *websocket.Conn
	account  wallet.Account
	failSign bool
}

func (d *fakeDaemon) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		d.lk.Lock()
		d.conn = conn
		d.lk.Unlock()

		for {
			var msg message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			resp := message{Type: msgResponse, ID: msg.ID, Method: msg.Method}
			switch msg.Method {
			case "black_hole":
				continue // never answered, for timeout tests
			case methodConnect:
				resp.Payload, _ = json.Marshal(d.account)
			case methodDisconnect:
			case methodSign:
				if d.failSign {
					resp.Error = "user rejected the request"
					break
				}
				var req signRequest
				require.NoError(t, json.Unmarshal(msg.Payload, &req))
				resp.Payload, _ = json.Marshal(types.SignedTransaction{
					Payload:   req.Payload,
					Sender:    req.Sender,
					Signature: []byte("signed"),
				})
			default:
				resp.Error = "unknown method"
			}
			d.lk.Lock()
			require.NoError(t, conn.WriteJSON(&resp))
			d.lk.Unlock()
		}
	}
}

func (d *fakeDaemon) push(t *testing.T, method string, payload interface{}) {
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	d.lk.Lock()
	defer d.lk.Unlock()
	require.NoError(t, d.conn.WriteJSON(&message{Type: msgNotify, ID: uuid.New(), Method: method, Payload: data}))
}

func setupProvider(t *testing.T) (*Provider, *fakeDaemon) {
	t.Helper()
	daemon := &fakeDaemon{account: wallet.Account{Address: "0xabc", PublicKey: []byte("key")}}
	srv := httptest.NewServer(daemon.handler(t))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := New(url, wallet.Info{ID: "remote", Name: "Remote Wallet"}, zap.NewNop().Sugar())
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(p.Close)
	return p, daemon
}

func TestRemoteConnectAndSign(t *testing.T) {
	ctx := context.Background()
	p, daemon := setupProvider(t)

	require.Equal(t, "remote", p.Info().ID)

	account, err := p.Connect(ctx)
	require.NoError(t, err)
	require.Equal(t, types.Address("0xabc"), account.Address)

	payload := types.TransactionPayload{
		Function:      types.FunctionID{Address: "0x1", Module: "coin", Name: "transfer"},
		TypeArguments: []string{},
		Arguments:     []types.MoveValue{},
	}
	signed, err := p.SignTransaction(ctx, payload, account.Address)
	require.NoError(t, err)
	require.Equal(t, []byte("signed"), signed.Signature)
	require.Equal(t, account.Address, signed.Sender)

	daemon.failSign = true
	_, err = p.SignTransaction(ctx, payload, account.Address)
	require.ErrorContains(t, err, "user rejected")

	require.NoError(t, p.Disconnect(ctx))
}

func TestRemoteNotifications(t *testing.T) {
	ctx := context.Background()
	p, daemon := setupProvider(t)
	_, err := p.Connect(ctx)
	require.NoError(t, err)

	var lk sync.Mutex
	var accounts []wallet.Account
	var networks []string
	dropped := 0

	unsubAccount := p.OnAccountChanged(func(a wallet.Account) { lk.Lock(); accounts = append(accounts, a); lk.Unlock() })
	p.OnNetworkChanged(func(n string) { lk.Lock(); networks = append(networks, n); lk.Unlock() })
	p.OnDisconnected(func() { lk.Lock(); dropped++; lk.Unlock() })

	daemon.push(t, notifyAccountChanged, wallet.Account{Address: "0xdef"})
	daemon.push(t, notifyNetworkChanged, "testnet")
	daemon.push(t, notifyDisconnected, nil)

	require.Eventually(t, func() bool {
		lk.Lock()
		defer lk.Unlock()
		return len(accounts) == 1 && len(networks) == 1 && dropped == 1
	}, time.Second, 5*time.Millisecond)

	// detached handlers receive nothing more
	unsubAccount()
	daemon.push(t, notifyAccountChanged, wallet.Account{Address: "0x999"})
	daemon.push(t, notifyNetworkChanged, "mainnet")
	require.Eventually(t, func() bool {
		lk.Lock()
		defer lk.Unlock()
		return len(networks) == 2
	}, time.Second, 5*time.Millisecond)
	lk.Lock()
	defer lk.Unlock()
	require.Len(t, accounts, 1)
}

func TestRemoteRequestBoundedByContext(t *testing.T) {
	p, _ := setupProvider(t)

	// the daemon never answers this method; the caller's context bounds the wait
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.sendRequest(ctx, "black_hole", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned request is gone from the pending table
	p.reqLk.Lock()
	defer p.reqLk.Unlock()
	require.Empty(t, p.pending)
}
