package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenValue(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		v, err := NewTokenValue()
		require.NoError(t, err)
		assert.Len(t, v, 64)
		assert.Regexp(t, "^[0-9a-f]{64}$", v)
		assert.False(t, seen[v], "token values must not repeat")
		seen[v] = true
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'y'")))
	assert.False(t, isDuplicateKey(errors.New("Error 1213: Deadlock found")))
	assert.False(t, isDuplicateKey(nil))
}
