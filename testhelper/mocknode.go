package testhelper

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aptokit/aptokit/chain"
	"github.com/aptokit/aptokit/types"
)

// MockNode serves the fullnode REST surface over a MemChain, so the real
// HTTP client can be exercised end to end in tests.
type MockNode struct {
	Chain  *MemChain
	server *httptest.Server
}

func NewMockNode() *MockNode {
	n := &MockNode{Chain: NewMemChain()}

	r := mux.NewRouter()
	r.HandleFunc("/", n.ledgerInfo).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{address}", n.account).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{address}/resource/{type:.*}", n.resource).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{address}/events/{module}/{name}", n.events).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{address}/module/{name}", n.module).Methods(http.MethodGet)
	r.HandleFunc("/transactions/by_hash/{hash}", n.transaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/simulate", n.simulate).Methods(http.MethodPost)
	r.HandleFunc("/transactions", n.submit).Methods(http.MethodPost)
	r.HandleFunc("/view", n.view).Methods(http.MethodPost)

	n.server = httptest.NewServer(r)
	return n
}

// URL is the base endpoint to point a chain client at.
func (n *MockNode) URL() string { return n.server.URL }

func (n *MockNode) Close() { n.server.Close() }

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (n *MockNode) ledgerInfo(w http.ResponseWriter, r *http.Request) {
	info, _ := n.Chain.LedgerInfo(r.Context())
	writeJSON(w, http.StatusOK, info)
}

func (n *MockNode) account(w http.ResponseWriter, r *http.Request) {
	addr := types.Address(mux.Vars(r)["address"])
	info, err := n.Chain.Account(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (n *MockNode) resource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := n.Chain.AccountResource(r.Context(), types.Address(vars["address"]), vars["type"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": vars["type"], "data": data})
}

func (n *MockNode) transaction(w http.ResponseWriter, r *http.Request) {
	hash := types.Hash(mux.Vars(r)["hash"])
	resp, finalized, err := n.Chain.TransactionByHash(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !finalized {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":      "user_transaction",
		"hash":      resp.Hash,
		"success":   resp.Success,
		"vm_status": resp.VMStatus,
		"gas_used":  resp.GasUsed,
		"events":    resp.Events,
	})
}

func (n *MockNode) submit(w http.ResponseWriter, r *http.Request) {
	var signed types.SignedTransaction
	if err := json.NewDecoder(r.Body).Decode(&signed); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := n.Chain.SubmitTransaction(r.Context(), &signed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"hash": hash})
}

func (n *MockNode) simulate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sender  types.Address            `json:"sender"`
		Payload types.TransactionPayload `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := n.Chain.SimulateTransaction(r.Context(), body.Payload, body.Sender)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (n *MockNode) view(w http.ResponseWriter, r *http.Request) {
	var req chain.ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vals, err := n.Chain.View(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vals)
}

func (n *MockNode) events(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	handle := types.EventHandleID{
		Address: types.Address(vars["address"]),
		Module:  vars["module"],
		Name:    vars["name"],
	}
	var start *uint64
	if s := r.URL.Query().Get("start"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad start")
			return
		}
		start = &v
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}
	events, err := n.Chain.EventsByHandle(r.Context(), handle, start, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []types.ContractEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (n *MockNode) module(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	abi, err := n.Chain.ModuleABI(r.Context(), types.Address(vars["address"]), vars["name"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"abi": abi})
}
