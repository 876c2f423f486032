// Package linelog implements an append-only, revision-indexed log of
// line-level edits to a text file. The log records, for every line of the
// file across an arbitrary number of revisions, which revision introduced
// it, and answers "what did the file's per-line attribution look like as of
// revision R" by deterministically replaying recorded edits.
//
// The log itself is never destructively mutated: each Replace or ReplaceVec
// call appends a single edit operation, and Annotate is a pure read which
// replays operations having revision <= R in the order they were recorded.
package linelog

import (
	"github.com/pkg/errors"

	"go.linehist.dev/core/metrics"
)

// Line attributes a single physical line of text to the revision which
// authored it, at the line's original offset within that revision.
type Line struct {
	// Rev is the revision which introduced the line.
	Rev int32
	// Index is the line's offset within |Rev|'s content as first recorded.
	Index int32
}

// editOp is a single recorded edit: lines [A1, A2) of the then-current
// annotation were replaced by |Lines|, on behalf of revision |Rev|.
type editOp struct {
	Rev    int32
	A1, A2 int32
	Lines  []Line
}

// Log is an append-only log of line edits across revisions of a file.
// The zero-valued Log is ready for use, holding zero revisions and lines.
type Log struct {
	ops    []editOp
	cur    []Line // Annotation as of the last recorded edit.
	maxRev int32
}

// New returns an empty Log.
func New() *Log { return new(Log) }

// ErrBadRange is returned by Replace and ReplaceVec on line ranges which are
// inverted or exceed the current annotation.
var ErrBadRange = errors.New("invalid line range")

// Replace records an edit of revision |rev| which replaces lines [a1, a2) of
// the current annotation with freshly-authored lines [b1, b2), each
// attributed to |rev| itself. |a1| and |a2| index the annotation as of the
// previously recorded edit: the caller must derive them from the Log's
// current state (eg, via a preceding Annotate of the latest revision).
// Supplying ranges inconsistent with that state silently corrupts future
// annotations; the Log trusts its caller here, exactly as it cannot know the
// caller's intended content.
func (l *Log) Replace(rev, a1, a2, b1, b2 int32) error {
	if b1 > b2 {
		return errors.WithMessagef(ErrBadRange, "replacement [%d, %d)", b1, b2)
	}
	var lines = make([]Line, 0, b2-b1)
	for i := b1; i < b2; i++ {
		lines = append(lines, Line{Rev: rev, Index: i})
	}
	return l.ReplaceVec(rev, a1, a2, lines)
}

// ReplaceVec records an edit of revision |rev| which replaces lines [a1, a2)
// of the current annotation with |blines|, which may carry arbitrary prior
// attributions. It's used to reconstruct non-linear histories, where lines
// introduced by a merge are copies of lines authored under other revisions.
// On overlap the replay order is strictly the order edits were recorded, so
// an attribution supplied by an earlier-recorded edit is superseded only by
// a later-recorded edit which replaces its range.
func (l *Log) ReplaceVec(rev, a1, a2 int32, blines []Line) error {
	if a1 < 0 || a1 > a2 || int(a2) > len(l.cur) {
		return errors.WithMessagef(ErrBadRange,
			"range [%d, %d) of %d line(s)", a1, a2, len(l.cur))
	}
	var lines = append([]Line(nil), blines...) // Log exclusively owns its ops.

	l.ops = append(l.ops, editOp{Rev: rev, A1: a1, A2: a2, Lines: lines})
	l.cur = splice(l.cur, int(a1), int(a2), lines)

	if rev > l.maxRev {
		l.maxRev = rev
	}
	metrics.LineLogEditsTotal.Inc()
	return nil
}

// Annotate returns the ordered per-line attribution of the file as of
// revision |rev|, by replaying all recorded edits having revision <= |rev|
// in recorded order. For every |rev| which was used as an edit target,
// Annotate reproduces exactly the annotation which was current when that
// edit was recorded.
func (l *Log) Annotate(rev int32) ([]Line, error) {
	var buf []Line
	for i, op := range l.ops {
		if op.Rev > rev {
			continue
		}
		if int(op.A2) > len(buf) {
			return nil, errors.Errorf(
				"op %d of rev %d: range [%d, %d) exceeds %d line(s)",
				i, op.Rev, op.A1, op.A2, len(buf))
		}
		buf = splice(buf, int(op.A1), int(op.A2), op.Lines)
	}
	metrics.LineLogAnnotatedLinesTotal.Add(float64(len(buf)))
	return buf, nil
}

// Clear resets the Log to its empty state: zero revisions, zero lines.
func (l *Log) Clear() { l.ops, l.cur, l.maxRev = nil, nil, 0 }

// MaxRev returns the highest revision recorded by an edit, or zero.
func (l *Log) MaxRev() int32 { return l.maxRev }

// LineCount returns the number of lines of the current annotation.
func (l *Log) LineCount() int { return len(l.cur) }

// splice returns |buf| with [a1, a2) replaced by |ins|, never aliasing
// either input.
func splice(buf []Line, a1, a2 int, ins []Line) []Line {
	var n = len(buf) - (a2 - a1) + len(ins)
	if n == 0 {
		return nil
	}
	var out = make([]Line, 0, n)
	out = append(out, buf[:a1]...)
	out = append(out, ins...)
	out = append(out, buf[a2:]...)
	return out
}
