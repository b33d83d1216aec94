package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatKeyIsOrderIndependent(t *testing.T) {
	require.Equal(t, ChatKey(7, 3), ChatKey(3, 7))
	require.Equal(t, "3_7", ChatKey(7, 3))
}

func TestChatKeySortsNumerically(t *testing.T) {
	// Lexicographic sorting would put "100" before "2".
	assert.Equal(t, "2_100", ChatKey(100, 2))
	assert.Equal(t, "9_11", ChatKey(11, 9))
}

func TestOrderPair(t *testing.T) {
	lo, hi := orderPair(5, 1)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 5, hi)

	lo, hi = orderPair(1, 5)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 5, hi)
}
