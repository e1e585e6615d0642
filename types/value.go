package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags a MoveValue.
type ValueKind int

const (
	KindBool ValueKind = iota
	KindU64
	KindString
	KindBytes
	KindVector
)

// MoveValue is a tagged union over the loosely typed argument and return
// values of entry and view calls: bool, 64-bit integers carried as decimal
// strings, utf8 strings, byte blobs and homogeneous vectors. It marshals to
// the JSON shapes the node REST API expects.
type MoveValue struct {
	kind ValueKind
	b    bool
	s    string // u64 decimal or utf8 string
	raw  []byte
	vec  []MoveValue
}

func Bool(v bool) MoveValue        { return MoveValue{kind: KindBool, b: v} }
func U64(v uint64) MoveValue       { return MoveValue{kind: KindU64, s: strconv.FormatUint(v, 10)} }
func U64String(s string) MoveValue { return MoveValue{kind: KindU64, s: s} }
func Str(s string) MoveValue       { return MoveValue{kind: KindString, s: s} }
func Bytes(b []byte) MoveValue     { return MoveValue{kind: KindBytes, raw: b} }
func Vector(vs ...MoveValue) MoveValue {
	return MoveValue{kind: KindVector, vec: vs}
}

// AddressValue carries an address argument; on the wire it is a plain string.
func AddressValue(a Address) MoveValue { return MoveValue{kind: KindString, s: string(a)} }

func (v MoveValue) Kind() ValueKind { return v.kind }

func (v MoveValue) Bool() bool { return v.b }

// U64 returns the numeric value, 0 if the stored string is not a number.
func (v MoveValue) U64() uint64 {
	n, _ := strconv.ParseUint(v.s, 10, 64)
	return n
}

func (v MoveValue) Str() string         { return v.s }
func (v MoveValue) Bytes() []byte       { return v.raw }
func (v MoveValue) Vector() []MoveValue { return v.vec }

func (v MoveValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindU64, KindString:
		// 64-bit values go over the wire as decimal strings to survive
		// javascript peers
		return json.Marshal(v.s)
	case KindBytes:
		return json.Marshal("0x" + hex.EncodeToString(v.raw))
	case KindVector:
		if v.vec == nil {
			return json.Marshal([]MoveValue{})
		}
		return json.Marshal(v.vec)
	}
	return nil, fmt.Errorf("unknown move value kind %d", v.kind)
}

func (v *MoveValue) UnmarshalJSON(data []byte) error {
	var any interface{}
	if err := json.Unmarshal(data, &any); err != nil {
		return err
	}
	*v = FromInterface(any)
	return nil
}

// FromInterface converts a decoded JSON value to the closest MoveValue.
func FromInterface(any interface{}) MoveValue {
	switch t := any.(type) {
	case bool:
		return Bool(t)
	case string:
		if len(t) > 2 && t[0] == '0' && t[1] == 'x' {
			if raw, err := hex.DecodeString(t[2:]); err == nil {
				return Bytes(raw)
			}
		}
		if _, err := strconv.ParseUint(t, 10, 64); err == nil {
			return U64String(t)
		}
		return Str(t)
	case float64:
		return U64(uint64(t))
	case []interface{}:
		vs := make([]MoveValue, 0, len(t))
		for _, e := range t {
			vs = append(vs, FromInterface(e))
		}
		return Vector(vs...)
	default:
		return Str(fmt.Sprintf("%v", t))
	}
}
