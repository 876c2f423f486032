package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go.linehist.dev/core/node"
)

func TestDirectorySerializationRoundTrip(t *testing.T) {
	var entries = []dirEntry{
		{Name: "bin", ID: node.SumOf([]byte("bin blob")), Flag: flagDir},
		{Name: "readme", ID: node.SumOf([]byte("readme")), Flag: FlagNone},
		{Name: "tool", ID: node.SumOf([]byte("tool")), Flag: FlagExec},
	}
	var raw = serializeDirectory(entries)

	var parsed, err = parseDirectory(raw)
	require.NoError(t, err)
	require.Equal(t, entries, parsed)

	// An empty directory serializes to an empty blob.
	parsed, err = parseDirectory(nil)
	require.NoError(t, err)
	require.Empty(t, parsed)
}

func TestParseDirectoryRejectsMalformedBlobs(t *testing.T) {
	var id = node.SumOf([]byte("x")).String()

	var cases = []struct {
		raw    string
		expect string
	}{
		{"name\x00" + id, "unterminated directory row"},
		{"name" + id + "\n", "missing name terminator"},
		{"name\x00beef\n", `invalid entry node ("beef")`},
		{"name\x00" + id + "q\n", `invalid entry flag ('q')`},
		{"\x00" + id + "\n", `invalid entry name ("")`},
		{"b\x00" + id + "\na\x00" + id + "\n", `entries not ordered ("b" vs "a")`},
	}
	for _, tc := range cases {
		var _, err = parseDirectory([]byte(tc.raw))
		require.Error(t, err, tc.raw)
		require.True(t, strings.Contains(err.Error(), tc.expect),
			"%q: %s", tc.raw, err)
	}
}
