package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashReader_Deterministic(t *testing.T) {
	data := []byte("google ads invoice 2024-03")

	first, err := HashReader(bytes.NewReader(data))
	require.NoError(t, err)

	second, err := HashReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHashReader_MatchesHashBytes(t *testing.T) {
	data := []byte(strings.Repeat("invoice line\n", 10000))

	streamed, err := HashReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, HashBytes(data), streamed)
}

func TestHashReader_DifferentContent(t *testing.T) {
	a, err := HashReader(strings.NewReader("invoice A"))
	require.NoError(t, err)

	b, err := HashReader(strings.NewReader("invoice B"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk read failed")
}

func TestHashReader_PropagatesReadError(t *testing.T) {
	_, err := HashReader(failingReader{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk read failed")
}
