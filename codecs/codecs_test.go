package codecs

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrips(t *testing.T) {
	var fixture = strings.Repeat("the quick brown fox jumps over the lazy dog\n", 100)

	for _, codec := range []Codec{None, Gzip, Snappy, Zstandard} {
		var buf bytes.Buffer

		var cw, err = NewCodecWriter(&buf, codec)
		require.NoError(t, err, codec.String())

		_, err = cw.Write([]byte(fixture))
		require.NoError(t, err, codec.String())
		require.NoError(t, cw.Close(), codec.String())

		cr, err := NewCodecReader(&buf, codec)
		require.NoError(t, err, codec.String())

		b, err := ioutil.ReadAll(cr)
		require.NoError(t, err, codec.String())
		require.NoError(t, cr.Close(), codec.String())

		require.Equal(t, fixture, string(b), codec.String())
	}
}

func TestCodecValidationCases(t *testing.T) {
	require.NoError(t, None.Validate())
	require.NoError(t, Snappy.Validate())
	require.EqualError(t, Codec(100).Validate(), "unsupported codec Codec(100)")

	var _, err = NewCodecReader(new(bytes.Buffer), Codec(100))
	require.EqualError(t, err, "unsupported codec Codec(100)")
	_, err = NewCodecWriter(new(bytes.Buffer), Codec(100))
	require.EqualError(t, err, "unsupported codec Codec(100)")
}
