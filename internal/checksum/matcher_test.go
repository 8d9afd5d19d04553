package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Of(nil))
}

func TestMatcher(t *testing.T) {
	doc := map[string]int{"version": 3}
	sum, err := OfJSON(doc)
	require.NoError(t, err)

	ok, err := NewChecksumMatcher(sum).Match(doc)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewChecksumMatcher(sum).Match(map[string]int{"version": 4})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewChecksumMatcher("").Match(doc)
	assert.Error(t, err)
}
