package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"go.linehist.dev/core/linelog"
	mbp "go.linehist.dev/core/mainboilerplate"
)

type cmdAnnotate struct {
	Output string `long:"output" short:"o" description:"Also persist the built line log to this path"`

	Args struct {
		Revisions []string `positional-arg-name:"revision-file" required:"1"`
	} `positional-args:"yes"`
}

func (cmd *cmdAnnotate) Execute([]string) error {
	mbp.InitLog(baseCfg.Log)

	var l = linelog.New()
	var prev []string

	for i, path := range cmd.Args.Revisions {
		var rev = int32(i + 1)

		var b, err = ioutil.ReadFile(path)
		mbp.Must(err, "failed to read revision file", "path", path)
		var next = splitLines(b)

		// Trim the common prefix and suffix, and record the differing
		// middle region as a single block replacement of this revision.
		var pre, suf = commonAffixes(prev, next)
		mbp.Must(l.Replace(rev, int32(pre), int32(len(prev)-suf),
			int32(pre), int32(len(next)-suf)), "failed to record edit", "rev", rev)

		prev = next
	}

	var ann, err = l.Annotate(l.MaxRev())
	mbp.Must(err, "failed to annotate")

	for i, ln := range ann {
		fmt.Printf("%4d:%4d: %s\n", ln.Rev, ln.Index, prev[i])
	}

	if cmd.Output != "" {
		var f *os.File
		f, err = os.Create(cmd.Output)
		mbp.Must(err, "failed to create output", "path", cmd.Output)

		n, err := l.WriteTo(f)
		mbp.Must(err, "failed to write line log")
		mbp.Must(f.Close(), "failed to close output")

		log.WithFields(log.Fields{
			"path": cmd.Output,
			"size": humanize.Bytes(uint64(n)),
			"revs": l.MaxRev(),
		}).Info("wrote line log")
	}
	return nil
}

// splitLines splits |b| on newlines, dropping a trailing empty split.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	var parts = bytes.Split(b, []byte{'\n'})
	if len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	var out = make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

// commonAffixes returns the lengths of the common line prefix and suffix of
// |a| and |b|. The affixes never overlap.
func commonAffixes(a, b []string) (pre, suf int) {
	for pre != len(a) && pre != len(b) && a[pre] == b[pre] {
		pre++
	}
	for suf != len(a)-pre && suf != len(b)-pre &&
		a[len(a)-suf-1] == b[len(b)-suf-1] {
		suf++
	}
	return
}
