package manifest

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"go.linehist.dev/core/codecs"
	"go.linehist.dev/core/node"
)

// FSStore is a filesystem-backed Store. Blobs are laid out as
// <root>/<path>/<hex-node>, with each file opening with a codec byte
// followed by the (possibly compressed) blob content. FSStore is backed by
// an afero.Fs, so tests may run it against an in-memory filesystem.
type FSStore struct {
	fs    afero.Fs
	root  string
	codec codecs.Codec
}

// NewFSStore returns an FSStore rooted at |root| of |fs|, compressing
// inserted blobs with |codec|.
func NewFSStore(fs afero.Fs, root string, codec codecs.Codec) *FSStore {
	return &FSStore{fs: fs, root: root, codec: codec}
}

// Get returns the blob of (|path|, |id|), or nil if not present.
func (s *FSStore) Get(path string, id node.ID) ([]byte, error) {
	var b, err = afero.ReadFile(s.fs, s.blobPath(path, id))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.WithMessage(err, "reading blob")
	} else if len(b) == 0 {
		return nil, errors.New("empty blob file")
	}

	var codec = codecs.Codec(b[0])
	if err = codec.Validate(); err != nil {
		return nil, err
	}
	zr, err := codecs.NewCodecReader(bytes.NewReader(b[1:]), codec)
	if err != nil {
		return nil, err
	}
	raw, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, errors.WithMessage(err, "decompressing blob")
	}
	return raw, zr.Close()
}

// Insert persists |raw| as the blob of (|path|, |id|). Inserting an
// already-present blob is a no-op.
func (s *FSStore) Insert(path string, id node.ID, raw []byte) error {
	var target = s.blobPath(path, id)

	if exists, err := afero.Exists(s.fs, target); err != nil {
		return errors.WithMessage(err, "probing blob")
	} else if exists {
		return nil // Content-addressed put of existing blob.
	}
	if err := s.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.WithMessage(err, "creating blob directory")
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(s.codec))

	var zw, err = codecs.NewCodecWriter(&buf, s.codec)
	if err != nil {
		return err
	}
	if _, err = zw.Write(raw); err != nil {
		return errors.WithMessage(err, "compressing blob")
	} else if err = zw.Close(); err != nil {
		return errors.WithMessage(err, "flushing codec")
	}
	return errors.WithMessage(
		afero.WriteFile(s.fs, target, buf.Bytes(), 0644), "writing blob")
}

// Prefetch is a no-op: blobs are already local.
func (s *FSStore) Prefetch([]StoreKey) {}

func (s *FSStore) blobPath(path string, id node.ID) string {
	return filepath.Join(s.root, filepath.FromSlash(path), id.String())
}
