package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/modern-go/reflect2"

	"github.com/aptokit/aptokit/types"
)

var log = logging.Logger("chain")

const (
	defaultTimeout      = 30 * time.Second
	defaultABICacheSize = 128

	coinStoreResource = "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>"
)

var _ Client = (*nodeClient)(nil)

type nodeClient struct {
	http     *resty.Client
	endpoint string
	abiCache *lru.Cache[string, *ModuleABI]
}

type Option func(*nodeClient)

func WithTimeout(d time.Duration) Option {
	return func(c *nodeClient) { c.http.SetTimeout(d) }
}

func WithHeader(key, value string) Option {
	return func(c *nodeClient) { c.http.SetHeader(key, value) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *nodeClient) { c.http = resty.NewWithClient(hc).SetBaseURL(c.endpoint) }
}

// NewClient builds a Client against a fullnode REST endpoint.
func NewClient(nodeURL string, opts ...Option) (Client, error) {
	if nodeURL == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "node url is empty")
	}
	cache, err := lru.New[string, *ModuleABI](defaultABICacheSize)
	if err != nil {
		return nil, err
	}
	c := &nodeClient{
		http:     resty.New().SetBaseURL(nodeURL).SetTimeout(defaultTimeout),
		endpoint: nodeURL,
		abiCache: cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *nodeClient) netErr(err error, path string) error {
	return types.WrapError(err, types.ErrNetwork, "request %s failed", path).
		WithDetail("endpoint", c.endpoint+path)
}

func (c *nodeClient) statusErr(resp *resty.Response, path string) error {
	return types.NewError(types.ErrNetwork, "request %s: %s", path, resp.Status()).
		WithDetail("endpoint", c.endpoint+path).
		WithDetail("status_code", resp.StatusCode())
}

func (c *nodeClient) get(ctx context.Context, path string, query map[string]string, out interface{}) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if !reflect2.IsNil(out) {
		req.SetResult(out)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, c.netErr(err, path)
	}
	return resp, nil
}

func (c *nodeClient) post(ctx context.Context, path string, body, out interface{}) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if !reflect2.IsNil(out) {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	if err != nil {
		return nil, c.netErr(err, path)
	}
	return resp, nil
}

func (c *nodeClient) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	var info LedgerInfo
	resp, err := c.get(ctx, "/", nil, &info)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, "/")
	}
	return &info, nil
}

func (c *nodeClient) Account(ctx context.Context, addr types.Address) (*AccountInfo, error) {
	path := fmt.Sprintf("/accounts/%s", addr)
	var info AccountInfo
	resp, err := c.get(ctx, path, nil, &info)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, path)
	}
	return &info, nil
}

func (c *nodeClient) AccountResource(ctx context.Context, addr types.Address, resourceType string) (map[string]interface{}, error) {
	path := fmt.Sprintf("/accounts/%s/resource/%s", addr, resourceType)
	var body struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	resp, err := c.get(ctx, path, nil, &body)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, path)
	}
	return body.Data, nil
}

func (c *nodeClient) AccountBalance(ctx context.Context, addr types.Address) (uint64, error) {
	data, err := c.AccountResource(ctx, addr, coinStoreResource)
	if err != nil {
		return 0, err
	}
	coin, ok := data["coin"].(map[string]interface{})
	if !ok {
		return 0, types.NewError(types.ErrNetwork, "coin store of %s has no coin field", addr)
	}
	value, _ := coin["value"].(string)
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, types.WrapError(err, types.ErrNetwork, "coin store of %s has a malformed value", addr)
	}
	return n, nil
}

// transactionBody is the node's transaction representation; pending
// transactions come back with Type pending_transaction and no outcome fields.
type transactionBody struct {
	Type     string                `json:"type"`
	Hash     types.Hash            `json:"hash"`
	Success  bool                  `json:"success"`
	VMStatus string                `json:"vm_status"`
	GasUsed  string                `json:"gas_used"`
	Events   []types.ContractEvent `json:"events"`
}

func (c *nodeClient) TransactionByHash(ctx context.Context, hash types.Hash) (*types.TransactionResponse, bool, error) {
	path := fmt.Sprintf("/transactions/by_hash/%s", hash)
	var body transactionBody
	resp, err := c.get(ctx, path, nil, &body)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, c.statusErr(resp, path)
	}
	if body.Type == "pending_transaction" {
		return nil, false, nil
	}
	return &types.TransactionResponse{
		Hash:     body.Hash,
		Success:  body.Success,
		VMStatus: body.VMStatus,
		GasUsed:  body.GasUsed,
		Events:   body.Events,
	}, true, nil
}

func (c *nodeClient) SubmitTransaction(ctx context.Context, signed *types.SignedTransaction) (types.Hash, error) {
	path := "/transactions"
	var body struct {
		Hash types.Hash `json:"hash"`
	}
	resp, err := c.post(ctx, path, signed, &body)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", c.statusErr(resp, path)
	}
	return body.Hash, nil
}

func (c *nodeClient) SimulateTransaction(ctx context.Context, payload types.TransactionPayload, sender types.Address) (*SimulationResult, error) {
	path := "/transactions/simulate"
	body := struct {
		Sender  types.Address            `json:"sender"`
		Payload types.TransactionPayload `json:"payload"`
	}{Sender: sender, Payload: payload.Clone()}
	var result SimulationResult
	resp, err := c.post(ctx, path, body, &result)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, path)
	}
	return &result, nil
}

func (c *nodeClient) View(ctx context.Context, req *ViewRequest) ([]types.MoveValue, error) {
	path := "/view"
	var raw []json.RawMessage
	resp, err := c.post(ctx, path, req, &raw)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, path)
	}
	vals := make([]types.MoveValue, 0, len(raw))
	for _, r := range raw {
		var v types.MoveValue
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, types.WrapError(err, types.ErrNetwork, "view %s returned an undecodable value", req.Function)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (c *nodeClient) EventsByHandle(ctx context.Context, handle types.EventHandleID, start *uint64, limit int) ([]types.ContractEvent, error) {
	path := fmt.Sprintf("/accounts/%s/events/%s/%s", handle.Address, handle.Module, handle.Name)
	query := map[string]string{}
	if start != nil {
		query["start"] = strconv.FormatUint(*start, 10)
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var events []types.ContractEvent
	resp, err := c.get(ctx, path, query, &events)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, path)
	}
	return events, nil
}

func (c *nodeClient) ModuleABI(ctx context.Context, addr types.Address, module string) (*ModuleABI, error) {
	key := string(addr) + "::" + module
	if abi, ok := c.abiCache.Get(key); ok {
		return abi, nil
	}

	path := fmt.Sprintf("/accounts/%s/module/%s", addr, module)
	var body struct {
		ABI *ModuleABI `json:"abi"`
	}
	resp, err := c.get(ctx, path, nil, &body)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.statusErr(resp, path)
	}
	if body.ABI == nil {
		return nil, types.NewError(types.ErrCodegenFailed, "module %s has no abi", key)
	}
	c.abiCache.Add(key, body.ABI)
	log.Debugf("cached abi for %s", key)
	return body.ABI, nil
}
