package testhelper

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/aptokit/aptokit/types"
)

// FakeAddress derives a deterministic address from a seed: equal seeds give
// equal addresses, distinct seeds collide only by sha256 accident.
func FakeAddress(seed string) types.Address {
	digest := sha256.Sum256([]byte("address:" + seed))
	return types.Address("0x" + hex.EncodeToString(digest[:]))
}

// FakeHash derives a deterministic transaction hash from a seed.
func FakeHash(seed string) types.Hash {
	digest := sha256.Sum256([]byte("hash:" + seed))
	return types.Hash("0x" + hex.EncodeToString(digest[:]))
}
