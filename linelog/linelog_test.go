package linelog

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestBasicReplaceAndAnnotate(t *testing.T) {
	var l = New()

	// Revision 1 authors four lines.
	require.NoError(t, l.Replace(1, 0, 0, 0, 4))
	// Revision 2 replaces lines [1, 3) with a single new line.
	require.NoError(t, l.Replace(2, 1, 3, 0, 1))
	// Revision 3 appends two lines.
	require.NoError(t, l.Replace(3, 3, 3, 0, 2))

	var ann, err = l.Annotate(1)
	require.NoError(t, err)
	require.Equal(t, []Line{{1, 0}, {1, 1}, {1, 2}, {1, 3}}, ann)

	ann, err = l.Annotate(2)
	require.NoError(t, err)
	require.Equal(t, []Line{{1, 0}, {2, 0}, {1, 3}}, ann)

	ann, err = l.Annotate(3)
	require.NoError(t, err)
	require.Equal(t, []Line{{1, 0}, {2, 0}, {1, 3}, {3, 0}, {3, 1}}, ann)

	// Annotating a revision beyond the last is equivalent to the last.
	ann, err = l.Annotate(100)
	require.NoError(t, err)
	require.Len(t, ann, 5)

	require.Equal(t, int32(3), l.MaxRev())
	require.Equal(t, 5, l.LineCount())
}

func TestAnnotateIsIdempotent(t *testing.T) {
	var l = New()
	require.NoError(t, l.Replace(1, 0, 0, 0, 3))
	require.NoError(t, l.Replace(2, 1, 2, 0, 2))

	var first, err = l.Annotate(2)
	require.NoError(t, err)
	second, err := l.Annotate(2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestReplaceVecCarriesPriorAttribution(t *testing.T) {
	var l = New()
	require.NoError(t, l.Replace(1, 0, 0, 0, 2))
	require.NoError(t, l.Replace(2, 2, 2, 0, 2))

	// Revision 3 merges: its inserted lines are copies of lines authored
	// under revisions 1 and 2.
	require.NoError(t, l.ReplaceVec(3, 1, 3, []Line{{2, 1}, {1, 0}, {3, 0}}))

	var ann, err = l.Annotate(3)
	require.NoError(t, err)
	require.Equal(t, []Line{{1, 0}, {2, 1}, {1, 0}, {3, 0}, {2, 1}}, ann)

	// As of revision 2, the merge edit is not visible.
	ann, err = l.Annotate(2)
	require.NoError(t, err)
	require.Equal(t, []Line{{1, 0}, {1, 1}, {2, 0}, {2, 1}}, ann)
}

func TestReplaceRangeValidationCases(t *testing.T) {
	var l = New()
	require.NoError(t, l.Replace(1, 0, 0, 0, 2))

	require.Equal(t, ErrBadRange, errors.Cause(l.Replace(2, 2, 1, 0, 0)))
	require.Equal(t, ErrBadRange, errors.Cause(l.Replace(2, 0, 3, 0, 0)))
	require.Equal(t, ErrBadRange, errors.Cause(l.Replace(2, -1, 0, 0, 0)))
	require.Equal(t, ErrBadRange, errors.Cause(l.Replace(2, 0, 0, 1, 0)))

	// Failed edits record nothing.
	var ann, err = l.Annotate(2)
	require.NoError(t, err)
	require.Len(t, ann, 2)
}

func TestClearResetsToEmpty(t *testing.T) {
	var l = New()
	require.NoError(t, l.Replace(1, 0, 0, 0, 3))
	l.Clear()

	require.Equal(t, int32(0), l.MaxRev())
	require.Equal(t, 0, l.LineCount())

	var ann, err = l.Annotate(1)
	require.NoError(t, err)
	require.Empty(t, ann)

	// The cleared Log accepts new edits from revision one.
	require.NoError(t, l.Replace(1, 0, 0, 0, 1))
	ann, err = l.Annotate(1)
	require.NoError(t, err)
	require.Equal(t, []Line{{1, 0}}, ann)
}

// TestRandomizedEditRoundTrips drives many random edit sequences against a
// Log and a direct reference splice model, requiring that Annotate exactly
// reproduces the reference at every revision, both immediately after each
// edit and retroactively once all edits have been recorded.
func TestRandomizedEditRoundTrips(t *testing.T) {
	for seed := int64(0); seed != 1000; seed++ {
		var rnd = rand.New(rand.NewSource(seed))
		var l = New()

		// |expect| is the reference model of the current annotation, with
		// snapshots of it retained by revision in |history|.
		var expect []Line
		var history = map[int32][]Line{}

		for rev := int32(1); rev != 16; rev++ {
			var a1 = int32(rnd.Intn(len(expect) + 1))
			var a2 = a1 + int32(rnd.Intn(len(expect)-int(a1)+1))
			var b1 = int32(rnd.Intn(5))
			var b2 = b1 + int32(rnd.Intn(6))

			var ins []Line
			if rnd.Intn(4) == 0 && rev > 1 {
				// Vector edit carrying attributions of prior revisions.
				for i := b1; i != b2; i++ {
					ins = append(ins, Line{Rev: 1 + rnd.Int31n(rev), Index: i})
				}
				require.NoError(t, l.ReplaceVec(rev, a1, a2, ins))
			} else {
				for i := b1; i != b2; i++ {
					ins = append(ins, Line{Rev: rev, Index: i})
				}
				require.NoError(t, l.Replace(rev, a1, a2, b1, b2))
			}
			expect = append(append(append([]Line(nil),
				expect[:a1]...), ins...), expect[a2:]...)
			history[rev] = expect

			var ann, err = l.Annotate(rev)
			require.NoError(t, err)
			require.Equal(t, expect, ann, "seed %d rev %d", seed, rev)
		}

		// Every historical annotation remains reproducible.
		for rev, snap := range history {
			var ann, err = l.Annotate(rev)
			require.NoError(t, err)
			require.Equal(t, snap, ann, "seed %d rev %d", seed, rev)
		}
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	var l = New()
	require.NoError(t, l.Replace(1, 0, 0, 0, 3))
	require.NoError(t, l.Replace(2, 1, 2, 0, 2))
	require.NoError(t, l.ReplaceVec(3, 0, 1, []Line{{1, 2}, {3, 0}}))

	var buf bytes.Buffer
	var _, err = l.WriteTo(&buf)
	require.NoError(t, err)

	var recovered = New()
	_, err = recovered.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, l.MaxRev(), recovered.MaxRev())
	require.Equal(t, l.LineCount(), recovered.LineCount())

	for rev := int32(1); rev != 4; rev++ {
		var want, err = l.Annotate(rev)
		require.NoError(t, err)
		got, err := recovered.Annotate(rev)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestPersistenceRejectsCorruption(t *testing.T) {
	var l = New()
	require.NoError(t, l.Replace(1, 0, 0, 0, 3))

	var buf bytes.Buffer
	var _, err = l.WriteTo(&buf)
	require.NoError(t, err)
	var b = buf.Bytes()

	// Bad magic.
	var bad = append([]byte(nil), b...)
	bad[0] = 'X'
	_, err = New().ReadFrom(bytes.NewReader(bad))
	require.Equal(t, ErrBadMagic, errors.Cause(err))

	// Bad version.
	bad = append([]byte(nil), b...)
	bad[4] = 0x7f
	_, err = New().ReadFrom(bytes.NewReader(bad))
	require.Equal(t, ErrBadVersion, errors.Cause(err))

	// Flipped bit within the compressed stream surfaces as a codec or
	// checksum failure, never as silent corruption.
	bad = append([]byte(nil), b...)
	bad[len(bad)-1] ^= 0xff
	_, err = New().ReadFrom(bytes.NewReader(bad))
	require.Error(t, err)
}
