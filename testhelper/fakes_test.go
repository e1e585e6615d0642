package testhelper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakesAreDeterministic(t *testing.T) {
	require.Equal(t, FakeAddress("alice"), FakeAddress("alice"))
	require.NotEqual(t, FakeAddress("alice"), FakeAddress("bob"))
	require.True(t, FakeAddress("alice").Valid())

	require.Equal(t, FakeHash("tx"), FakeHash("tx"))
	require.NotEqual(t, FakeHash("tx"), FakeHash("tx2"))
}
