package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumAndParseRoundTrip(t *testing.T) {
	var id = SumOf([]byte("some content"))
	require.False(t, id.IsZero())
	require.Len(t, id.String(), 40)

	var parsed, err = Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = Parse("beef")
	require.EqualError(t, err, "invalid node length (4; expected 40)")
	_, err = Parse("zz0f5a1bb47f8d4c2b3e9a0c1d2e3f4a5b6c7d8e")
	require.Error(t, err)

	require.True(t, ID{}.IsZero())
}
