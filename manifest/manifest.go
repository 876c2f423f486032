// Package manifest implements a hierarchical, content-addressed manifest of
// file paths to content nodes and flags, representing a full directory tree
// at one commit. A Tree is mutated with localized Set and Delete operations,
// and Finalize deterministically serializes only the changed directory nodes
// into blobs for persistence to a content store.
//
// Structural conversions of a path between file and directory are legal
// mid-transaction but must be resolved by explicit deletes before Finalize:
// the Tree never implicitly overwrites an entry across the file/directory
// boundary, and Finalize fails loudly on any lingering conflict.
package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"go.linehist.dev/core/metrics"
	"go.linehist.dev/core/node"
)

// Flag is the file mode flag of a manifest entry.
type Flag byte

const (
	// FlagNone marks a regular file.
	FlagNone Flag = 0
	// FlagExec marks an executable file.
	FlagExec Flag = 'x'
	// FlagLink marks a symbolic link.
	FlagLink Flag = 'l'

	// flagDir marks a sub-directory entry within a serialized blob.
	flagDir Flag = 't'
)

// Validate returns an error if the Flag is not a known file flag.
func (f Flag) Validate() error {
	switch f {
	case FlagNone, FlagExec, FlagLink:
		return nil
	default:
		return errors.Errorf("invalid flag (%q)", byte(f))
	}
}

// Entry is the file entry of a manifest path.
type Entry struct {
	ID   node.ID
	Flag Flag
}

// FinalizeEntry is a changed directory blob produced by Finalize, carrying
// enough metadata for the caller to persist it and to locate the blob it
// supersedes.
type FinalizeEntry struct {
	// Path of the directory, relative to the tree root (which is "").
	Path string
	// ID of the serialized directory blob.
	ID node.ID
	// OldID is the blob's identity as of the previous Finalize, or zero.
	OldID node.ID
	// Raw serialized content of the blob.
	Raw []byte
}

// ConflictError is returned by Finalize when a path still resolves to both a
// file and a non-empty directory, ie when a file was superseded by deeper
// entries without an explicit delete.
type ConflictError struct {
	// Path of the conflicting entry.
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("path %q resolves to both a file and a directory", e.Path)
}

// ErrNotFound is returned by Delete of a path having no file entry.
var ErrNotFound = errors.New("no file entry at path")

// child relates a path segment to its arena node, within the name-ordered
// child list of a parent.
type child struct {
	name string
	node int32
}

// treeNode is a node of the Tree arena. A node may simultaneously hold a
// file marker and children mid-transaction; Finalize rejects that state.
type treeNode struct {
	// File marker of this path, if |file| is set.
	file bool
	id   node.ID
	flag Flag
	// Children of this path, ordered by name.
	children []child
	// dirID is the serialized directory blob identity as of the last
	// Finalize, or zero if never finalized.
	dirID node.ID
	// dirty marks that the node's child set may have changed since the
	// last Finalize.
	dirty bool
}

// Tree is an in-memory manifest bound to a content Store. The Tree
// exclusively owns its nodes, which are held in an arena indexed by integer
// id rather than by child pointers.
type Tree struct {
	store Store
	nodes []treeNode
	free  []int32
	root  int32
	files int
}

// NewTree returns an empty Tree bound to |store|.
func NewTree(store Store) *Tree {
	return &Tree{
		store: store,
		nodes: []treeNode{{dirty: true}},
		root:  0,
	}
}

// alloc returns a zeroed arena node, preferring to recycle a freed one.
func (t *Tree) alloc() int32 {
	if l := len(t.free); l != 0 {
		var n = t.free[l-1]
		t.free = t.free[:l-1]
		t.nodes[n] = treeNode{}
		return n
	}
	t.nodes = append(t.nodes, treeNode{})
	return int32(len(t.nodes) - 1)
}

// splitPath validates |path| and returns its segments.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}
	var segs = strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, errors.Errorf("invalid path (%q)", path)
		}
	}
	return segs, nil
}

// findChild returns the index at which |name| exists within |n|'s children,
// or its insertion point and false.
func (t *Tree) findChild(n int32, name string) (int, bool) {
	var children = t.nodes[n].children
	var ind = sort.Search(len(children), func(i int) bool {
		return children[i].name >= name
	})
	return ind, ind != len(children) && children[ind].name == name
}

// Set inserts or overwrites the file entry at |path|. Setting a path deeper
// than an existing file entry is permitted and leaves that entry in place:
// the caller must explicitly Delete it before Finalize. Set never implicitly
// removes entries.
func (t *Tree) Set(path string, id node.ID, flag Flag) error {
	var segs, err = splitPath(path)
	if err != nil {
		return err
	} else if err = flag.Validate(); err != nil {
		return err
	}

	var cur = t.root
	for _, seg := range segs {
		t.nodes[cur].dirty = true

		var ind, ok = t.findChild(cur, seg)
		if !ok {
			var next = t.alloc()
			// Splice the new child in at its insertion point. Note |alloc|
			// may grow the arena, so re-read the child slice afterward.
			var children = append(t.nodes[cur].children, child{})
			copy(children[ind+1:], children[ind:])
			children[ind] = child{name: seg, node: next}
			t.nodes[cur].children = children
		}
		cur = t.nodes[cur].children[ind].node
	}

	if !t.nodes[cur].file {
		t.files++
	}
	t.nodes[cur].file = true
	t.nodes[cur].id = id
	t.nodes[cur].flag = flag
	return nil
}

// Get returns the file entry at |path|, if one exists.
func (t *Tree) Get(path string) (Entry, bool) {
	var segs, err = splitPath(path)
	if err != nil {
		return Entry{}, false
	}
	var cur = t.root
	for _, seg := range segs {
		var ind, ok = t.findChild(cur, seg)
		if !ok {
			return Entry{}, false
		}
		cur = t.nodes[cur].children[ind].node
	}
	if n := &t.nodes[cur]; n.file {
		return Entry{ID: n.id, Flag: n.flag}, true
	}
	return Entry{}, false
}

// Delete removes the file entry at |path|. Delete operates per-leaf: it
// removes only |path|'s own file marker, never children beneath it, and
// returns ErrNotFound if |path| holds no file entry (including when it
// resolves only to a directory).
func (t *Tree) Delete(path string) error {
	var segs, err = splitPath(path)
	if err != nil {
		return err
	}

	// Descend while retaining the spine for upward pruning.
	var spine = make([]int32, 0, len(segs)+1)
	var cur = t.root
	spine = append(spine, cur)

	for _, seg := range segs {
		var ind, ok = t.findChild(cur, seg)
		if !ok {
			return errors.WithMessagef(ErrNotFound, "path %q", path)
		}
		cur = t.nodes[cur].children[ind].node
		spine = append(spine, cur)
	}
	if !t.nodes[cur].file {
		return errors.WithMessagef(ErrNotFound, "path %q", path)
	}

	t.nodes[cur].file = false
	t.nodes[cur].id = node.ID{}
	t.nodes[cur].flag = FlagNone
	t.files--

	for _, n := range spine {
		t.nodes[n].dirty = true
	}

	// Prune now-empty nodes from the bottom of the spine, up.
	for i := len(spine) - 1; i != 0; i-- {
		var n = spine[i]
		if t.nodes[n].file || len(t.nodes[n].children) != 0 {
			break
		}
		var parent = spine[i-1]
		var ind, _ = t.findChild(parent, segs[i-1])
		var children = t.nodes[parent].children
		copy(children[ind:], children[ind+1:])
		t.nodes[parent].children = children[:len(children)-1]
		t.free = append(t.free, n)
	}
	return nil
}

// Len returns the number of file entries of the Tree.
func (t *Tree) Len() int { return t.files }

// Walk invokes |cb| with every file entry of the Tree, in path order. A
// returned error aborts the walk, and is returned.
func (t *Tree) Walk(cb func(path string, e Entry) error) error {
	return t.walk(t.root, "", cb)
}

func (t *Tree) walk(n int32, prefix string, cb func(string, Entry) error) error {
	for _, c := range t.nodes[n].children {
		var path = prefix + c.name
		if cn := &t.nodes[c.node]; cn.file {
			if err := cb(path, Entry{ID: cn.id, Flag: cn.flag}); err != nil {
				return err
			}
		}
		if err := t.walk(c.node, path+"/", cb); err != nil {
			return err
		}
	}
	return nil
}

// Finalize walks the tree bottom-up, serializes every directory node whose
// child set changed since the last Finalize, persists each serialized blob
// to the bound Store, and returns the changed blobs in child-before-parent
// order. It returns a *ConflictError, and persists nothing, if any path
// still resolves to both a file and a non-empty directory. Store puts
// are idempotent content-addressed inserts, so a failed Finalize may be
// retried once the conflict is resolved.
func (t *Tree) Finalize() ([]FinalizeEntry, error) {
	if path, conflict := t.findConflict(t.root, ""); conflict {
		metrics.ManifestConflictTotal.Inc()
		return nil, &ConflictError{Path: path}
	}

	var out []FinalizeEntry
	var _, err = t.finalizeDir(t.root, "", &out)
	if err != nil {
		return nil, err
	}
	metrics.ManifestFinalizeTotal.Inc()
	return out, nil
}

// Root returns the identity of the serialized tree root as of the last
// Finalize, or zero if the Tree was never finalized.
func (t *Tree) Root() node.ID { return t.nodes[t.root].dirID }

func (t *Tree) findConflict(n int32, path string) (string, bool) {
	if tn := &t.nodes[n]; tn.file && len(tn.children) != 0 {
		return path, true
	}
	for _, c := range t.nodes[n].children {
		var sub = c.name
		if path != "" {
			sub = path + "/" + c.name
		}
		if p, conflict := t.findConflict(c.node, sub); conflict {
			return p, conflict
		}
	}
	return "", false
}

// finalizeDir serializes the directory node |n| at |path|, recursing into
// dirty child directories first, and returns the blob identity of |n|.
func (t *Tree) finalizeDir(n int32, path string, out *[]FinalizeEntry) (node.ID, error) {
	var tn = &t.nodes[n]
	if !tn.dirty {
		return tn.dirID, nil
	}
	var entries = make([]dirEntry, 0, len(tn.children))

	for _, c := range tn.children {
		var cn = &t.nodes[c.node]

		if len(cn.children) != 0 {
			var sub = c.name
			if path != "" {
				sub = path + "/" + c.name
			}
			var id, err = t.finalizeDir(c.node, sub, out)
			if err != nil {
				return node.ID{}, err
			}
			entries = append(entries, dirEntry{Name: c.name, ID: id, Flag: flagDir})
		} else {
			entries = append(entries, dirEntry{Name: c.name, ID: cn.id, Flag: cn.flag})
		}
	}

	var raw = serializeDirectory(entries)
	var id = node.SumOf(raw)

	if id != tn.dirID {
		if err := t.store.Insert(path, id, raw); err != nil {
			return node.ID{}, errors.WithMessagef(err, "inserting directory %q", path)
		}
		*out = append(*out, FinalizeEntry{Path: path, ID: id, OldID: tn.dirID, Raw: raw})
		tn.dirID = id
	}
	tn.dirty = false
	return tn.dirID, nil
}
