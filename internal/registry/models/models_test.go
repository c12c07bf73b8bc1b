package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndex(t *testing.T) {
	t.Run("parses decimal slots", func(t *testing.T) {
		idx, err := ParseIndex("42")
		require.NoError(t, err)
		assert.Equal(t, Index(42), idx)
	})

	t.Run("accepts the largest slot", func(t *testing.T) {
		idx, err := ParseIndex("4294967295")
		require.NoError(t, err)
		assert.Equal(t, MaxIndex, idx)
	})

	t.Run("rejects values beyond uint32", func(t *testing.T) {
		_, err := ParseIndex("4294967296")
		assert.Error(t, err)
	})

	t.Run("rejects negative and non-numeric input", func(t *testing.T) {
		_, err := ParseIndex("-1")
		assert.Error(t, err)
		_, err = ParseIndex("abc")
		assert.Error(t, err)
	})
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("dense")
	assert.True(t, ok)
	assert.Equal(t, KindDense, k)

	k, ok = ParseKind("linked")
	assert.True(t, ok)
	assert.Equal(t, KindLinked, k)

	_, ok = ParseKind("vector")
	assert.False(t, ok)
}
