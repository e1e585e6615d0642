package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x1")
	require.NoError(t, err)
	require.Equal(t, Address("0x1"), addr)

	addr, err = ParseAddress("0xCAFE")
	require.NoError(t, err)
	require.Equal(t, Address("0xcafe"), addr)

	for _, bad := range []string{"", "1", "0x", "0xzz", "cafe"} {
		_, err := ParseAddress(bad)
		require.Error(t, err, bad)
		require.Equal(t, ErrInvalidAddress, CodeOf(err))
	}
}

func TestParseFunctionID(t *testing.T) {
	f, err := ParseFunctionID("0x1::coin::transfer")
	require.NoError(t, err)
	require.Equal(t, Address("0x1"), f.Address)
	require.Equal(t, "coin", f.Module)
	require.Equal(t, "transfer", f.Name)
	require.Equal(t, "0x1::coin::transfer", f.String())

	for _, bad := range []string{
		"0x1::coin",
		"0x1::coin::transfer::extra",
		"nothex::coin::transfer",
		"0x1::9mod::transfer",
		"0x1::coin::",
	} {
		_, err := ParseFunctionID(bad)
		require.Error(t, err, bad)
		require.Equal(t, ErrInvalidArgument, CodeOf(err))
	}
}

func TestParseEventHandleID(t *testing.T) {
	h, err := ParseEventHandleID("0x1::coin::DepositEvent")
	require.NoError(t, err)
	require.Equal(t, "DepositEvent", h.Name)

	_, err = ParseEventHandleID("not-a-handle")
	require.Error(t, err)
	require.Equal(t, ErrInvalidEventHandle, CodeOf(err))

	var se *SDKError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "address::module::EventType", se.Detail("expected_format"))
}

func TestPayloadClone(t *testing.T) {
	p := TransactionPayload{
		Function:      FunctionID{Address: "0x1", Module: "coin", Name: "transfer"},
		TypeArguments: []string{"0x1::aptos_coin::AptosCoin"},
		Arguments:     []MoveValue{AddressValue("0x2"), U64(100)},
	}
	c := p.Clone()
	c.TypeArguments[0] = "mutated"
	c.Arguments[1] = U64(999)
	require.Equal(t, "0x1::aptos_coin::AptosCoin", p.TypeArguments[0])
	require.Equal(t, uint64(100), p.Arguments[1].U64())
}

func TestMoveValueJSON(t *testing.T) {
	out, err := json.Marshal([]MoveValue{
		Bool(true),
		U64(18446744073709551615),
		Str("hello"),
		Bytes([]byte{0xde, 0xad}),
		Vector(U64(1), U64(2)),
	})
	require.NoError(t, err)
	require.JSONEq(t, `[true,"18446744073709551615","hello","0xdead",["1","2"]]`, string(out))

	var v MoveValue
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &v))
	require.Equal(t, KindU64, v.Kind())
	require.Equal(t, uint64(42), v.U64())
}
