package manifest

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"go.linehist.dev/core/node"
)

// dirEntry is one row of a serialized directory blob.
type dirEntry struct {
	Name string
	ID   node.ID
	Flag Flag
}

// serializeDirectory encodes |entries| (which must be name-ordered) as a
// directory blob. Each row is the entry name, a NUL, the 40-character hex
// node, an optional flag byte, and a newline. Sub-directories carry flag
// 't' and reference the blob of the nested directory. The encoding is
// byte-deterministic for a given child set.
func serializeDirectory(entries []dirEntry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		b.WriteString(e.Name)
		b.WriteByte(0)
		b.WriteString(e.ID.String())
		if e.Flag != FlagNone {
			b.WriteByte(byte(e.Flag))
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// parseDirectory decodes a directory blob produced by serializeDirectory.
func parseDirectory(raw []byte) ([]dirEntry, error) {
	var entries []dirEntry

	for len(raw) != 0 {
		var eol = bytes.IndexByte(raw, '\n')
		if eol == -1 {
			return nil, errors.New("unterminated directory row")
		}
		var row = raw[:eol]
		raw = raw[eol+1:]

		var nul = bytes.IndexByte(row, 0)
		if nul == -1 {
			return nil, errors.New("missing name terminator")
		}
		var e = dirEntry{Name: string(row[:nul])}
		var rest = row[nul+1:]

		switch len(rest) {
		case 40:
		case 41:
			e.Flag = Flag(rest[40])
			if e.Flag != flagDir && e.Flag.Validate() != nil {
				return nil, errors.Errorf("invalid entry flag (%q)", rest[40])
			}
		default:
			return nil, errors.Errorf("invalid entry node (%q)", string(rest))
		}
		var id, err = node.Parse(string(rest[:40]))
		if err != nil {
			return nil, err
		}
		e.ID = id

		if e.Name == "" || strings.IndexByte(e.Name, '/') != -1 {
			return nil, errors.Errorf("invalid entry name (%q)", e.Name)
		} else if l := len(entries); l != 0 && entries[l-1].Name >= e.Name {
			return nil, errors.Errorf("entries not ordered (%q vs %q)",
				entries[l-1].Name, e.Name)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// OpenTree loads the manifest tree rooted at blob |root| from |store|. The
// returned Tree reflects the committed state: a Finalize without intervening
// mutations serializes nothing.
func OpenTree(store Store, root node.ID) (*Tree, error) {
	var t = NewTree(store)
	if err := t.loadDir(t.root, "", root); err != nil {
		return nil, err
	}
	return t, nil
}

// loadDir fetches and decodes the directory blob (|path|, |id|) into arena
// node |n|, recursing into sub-directories. Child directory blobs are
// prefetched from the store ahead of their loads.
func (t *Tree) loadDir(n int32, path string, id node.ID) error {
	var raw, err = t.store.Get(path, id)
	if err != nil {
		return errors.WithMessagef(err, "fetching directory %q", path)
	} else if raw == nil {
		return errors.Errorf("directory %q (%s) not present in store", path, id)
	}
	entries, err := parseDirectory(raw)
	if err != nil {
		return errors.WithMessagef(err, "decoding directory %q (%s)", path, id)
	}

	var keys []StoreKey
	for _, e := range entries {
		if e.Flag == flagDir {
			keys = append(keys, StoreKey{Path: childPath(path, e.Name), ID: e.ID})
		}
	}
	if len(keys) != 0 {
		t.store.Prefetch(keys)
	}

	for _, e := range entries {
		var next = t.alloc()
		t.nodes[n].children = append(t.nodes[n].children, child{name: e.Name, node: next})

		if e.Flag == flagDir {
			if err = t.loadDir(next, childPath(path, e.Name), e.ID); err != nil {
				return err
			}
		} else {
			t.nodes[next].file = true
			t.nodes[next].id = e.ID
			t.nodes[next].flag = e.Flag
			t.files++
		}
	}
	t.nodes[n].dirID = id
	t.nodes[n].dirty = false
	return nil
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
