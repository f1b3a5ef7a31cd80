package httpclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllWithLimitUnderLimit(t *testing.T) {
	data, err := ReadAllWithLimit(strings.NewReader("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReadAllWithLimitExactLimit(t *testing.T) {
	data, err := ReadAllWithLimit(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReadAllWithLimitOverLimit(t *testing.T) {
	_, err := ReadAllWithLimit(strings.NewReader("hello world"), 5)
	require.Error(t, err)
	assert.True(t, IsResponseTooLarge(err))
}

func TestReadAllWithLimitDisabled(t *testing.T) {
	data, err := ReadAllWithLimit(strings.NewReader("hello world"), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}
