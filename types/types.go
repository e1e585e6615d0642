package types

import (
	"regexp"
	"strings"
)

// Address is a 0x-prefixed hex account address.
type Address string

// Hash is a 0x-prefixed transaction hash.
type Hash string

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

func (a Address) Valid() bool {
	return addressPattern.MatchString(string(a))
}

func (a Address) String() string { return string(a) }

// ParseAddress validates and normalizes a hex address.
func ParseAddress(s string) (Address, error) {
	a := Address(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", NewError(ErrInvalidAddress, "malformed address %q", s)
	}
	return a, nil
}

// FunctionID names an entry or view function as address::module::function.
type FunctionID struct {
	Address Address
	Module  string
	Name    string
}

func (f FunctionID) String() string {
	return string(f.Address) + "::" + f.Module + "::" + f.Name
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseFunctionID parses an address::module::function triple.
func ParseFunctionID(s string) (FunctionID, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 {
		return FunctionID{}, NewError(ErrInvalidArgument,
			"function %q must have the form address::module::function", s)
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return FunctionID{}, NewError(ErrInvalidArgument,
			"function %q has a malformed address part", s)
	}
	if !identPattern.MatchString(parts[1]) || !identPattern.MatchString(parts[2]) {
		return FunctionID{}, NewError(ErrInvalidArgument,
			"function %q has a malformed module or function name", s)
	}
	return FunctionID{Address: addr, Module: parts[1], Name: parts[2]}, nil
}

// EventHandleID names an on-chain event stream as address::module::EventType.
type EventHandleID struct {
	Address Address
	Module  string
	Name    string
}

func (h EventHandleID) String() string {
	return string(h.Address) + "::" + h.Module + "::" + h.Name
}

// ParseEventHandleID parses an address::module::EventType triple.
func ParseEventHandleID(s string) (EventHandleID, error) {
	f, err := ParseFunctionID(s)
	if err != nil {
		return EventHandleID{}, NewError(ErrInvalidEventHandle,
			"event handle %q must have the form address::module::EventType", s).
			WithDetail("expected_format", "address::module::EventType")
	}
	return EventHandleID{Address: f.Address, Module: f.Module, Name: f.Name}, nil
}

// TransactionPayload is an entry function call. It is a value type, never
// mutated after Build; consumers that need to hold one take a Clone.
type TransactionPayload struct {
	Function      FunctionID  `json:"function"`
	TypeArguments []string    `json:"type_arguments"`
	Arguments     []MoveValue `json:"arguments"`
}

// Clone deep-copies the payload so callers cannot alias its slices.
func (p TransactionPayload) Clone() TransactionPayload {
	out := TransactionPayload{Function: p.Function}
	if p.TypeArguments != nil {
		out.TypeArguments = make([]string, len(p.TypeArguments))
		copy(out.TypeArguments, p.TypeArguments)
	}
	if p.Arguments != nil {
		out.Arguments = make([]MoveValue, len(p.Arguments))
		copy(out.Arguments, p.Arguments)
	}
	return out
}

// SignedTransaction pairs a payload with the wallet signature over it.
// Produced by signing, consumed exactly once by submit.
type SignedTransaction struct {
	Payload   TransactionPayload `json:"payload"`
	Sender    Address            `json:"sender"`
	Signature []byte             `json:"signature"`
}

// ContractEvent is a single event from an on-chain event stream. Sequence
// numbers are decimal strings, monotonically increasing per handle.
type ContractEvent struct {
	Type           string                 `json:"type"`
	SequenceNumber string                 `json:"sequence_number"`
	Data           map[string]interface{} `json:"data"`
}

// TransactionResponse is the terminal, immutable result of confirmation
// polling. Success=false means the transaction executed and failed; it is
// data, not an error.
type TransactionResponse struct {
	Hash     Hash            `json:"hash"`
	Success  bool            `json:"success"`
	VMStatus string          `json:"vm_status"`
	GasUsed  string          `json:"gas_used"`
	Events   []ContractEvent `json:"events"`
}

// WalletState is the externally visible connection state, owned by the
// wallet manager.
type WalletState struct {
	Connected bool    `json:"connected"`
	Address   Address `json:"address,omitempty"`
	PublicKey []byte  `json:"public_key,omitempty"`
}
