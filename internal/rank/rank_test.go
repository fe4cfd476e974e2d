package rank_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/rank"
)

func TestBetweenEmptyList(t *testing.T) {
	k, err := rank.Between("", "")
	require.NoError(t, err)
	assert.Equal(t, rank.Initial(), k)
	assert.NotEmpty(t, k)
}

func TestBetweenAppend(t *testing.T) {
	k1 := rank.Initial()
	k2, err := rank.After(k1)
	require.NoError(t, err)
	assert.Less(t, k1, k2)

	k3, err := rank.After(k2)
	require.NoError(t, err)
	assert.Less(t, k2, k3)
}

func TestBetweenPrepend(t *testing.T) {
	k1 := rank.Initial()
	k2, err := rank.Before(k1)
	require.NoError(t, err)
	assert.Less(t, k2, k1)

	k3, err := rank.Before(k2)
	require.NoError(t, err)
	assert.Less(t, k3, k2)
}

func TestBetweenMidpoint(t *testing.T) {
	k1 := rank.Initial()
	k2, err := rank.After(k1)
	require.NoError(t, err)

	mid, err := rank.Between(k1, k2)
	require.NoError(t, err)
	assert.Less(t, k1, mid)
	assert.Less(t, mid, k2)
}

func TestBetweenAdjacentDigits(t *testing.T) {
	// "V" and "W" have no single-digit key between them; the key must grow.
	mid, err := rank.Between("V", "W")
	require.NoError(t, err)
	assert.Less(t, "V", mid)
	assert.Less(t, mid, "W")
	assert.Greater(t, len(mid), 1)
}

func TestBetweenInvalidRange(t *testing.T) {
	_, err := rank.Between("W", "V")
	assert.ErrorIs(t, err, rank.ErrInvalidRange)

	_, err = rank.Between("V", "V")
	assert.ErrorIs(t, err, rank.ErrInvalidRange)
}

func TestBetweenRejectsForeignBytes(t *testing.T) {
	_, err := rank.Between("V!", "")
	assert.Error(t, err)
}

func TestNeverEndsInLowestDigit(t *testing.T) {
	low := string(rank.Alphabet[0])

	prev, next := "", ""
	for i := 0; i < 200; i++ {
		k, err := rank.Between(prev, next)
		require.NoError(t, err)
		assert.False(t, strings.HasSuffix(k, low), "key %q ends in lowest digit", k)
		// Keep squeezing into the head of the list — the worst case for
		// key growth.
		next = k
	}
}

// TestRepeatedInsertionStaysSorted drives the generator the way a user
// dragging cards around does: random-feeling insertions at head, tail, and
// between every existing pair, checking total order throughout.
func TestRepeatedInsertionStaysSorted(t *testing.T) {
	keys := []string{rank.Initial()}

	for round := 0; round < 6; round++ {
		var grown []string
		head, err := rank.Before(keys[0])
		require.NoError(t, err)
		grown = append(grown, head)
		for i, k := range keys {
			grown = append(grown, k)
			if i+1 < len(keys) {
				mid, err := rank.Between(k, keys[i+1])
				require.NoError(t, err)
				grown = append(grown, mid)
			}
		}
		tail, err := rank.After(keys[len(keys)-1])
		require.NoError(t, err)
		grown = append(grown, tail)
		keys = grown
	}

	require.True(t, sort.StringsAreSorted(keys), "keys out of order after repeated insertion")
	for i := 1; i < len(keys); i++ {
		require.NotEqual(t, keys[i-1], keys[i], "duplicate key at %d", i)
	}
}

func TestKeyGrowthIsBounded(t *testing.T) {
	// Squeezing 64 keys into the same gap must not blow up key length:
	// each halving consumes about one digit of headroom per log2(62)≈6 splits.
	lo, hi := rank.Initial(), ""
	hi, err := rank.After(lo)
	require.NoError(t, err)

	k := ""
	for i := 0; i < 64; i++ {
		k, err = rank.Between(lo, hi)
		require.NoError(t, err)
		hi = k
	}
	assert.LessOrEqual(t, len(k), 16, "key grew too fast: %q", k)
}
