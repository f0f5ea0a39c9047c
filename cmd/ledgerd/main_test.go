package main

import (
	"testing"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFaucetEntry(t *testing.T) {
	owner, amount, err := parseFaucetEntry("0xabc=1000000000")
	require.NoError(t, err)
	assert.Equal(t, interfaces.MustAddress("0xabc"), owner)
	assert.Equal(t, uint64(1_000_000_000), amount)

	for _, bad := range []string{"0xabc", "zz=1", "0xabc=-1", "0xabc=lots"} {
		_, _, err := parseFaucetEntry(bad)
		assert.Error(t, err, bad)
	}
}
