// Package node defines the fixed-size content identifier used to key
// content-addressed blobs and link-revision entries.
package node

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/pkg/errors"
)

// ID is a 20-byte identifier derived from the SHA-1 sum of a blob's content.
type ID [sha1.Size]byte

// SumOf returns the ID of |b|'s content.
func SumOf(b []byte) ID { return sha1.Sum(b) }

// Parse returns the ID of a 40-character hex encoding.
func Parse(s string) (ID, error) {
	var id ID
	if len(s) != 2*sha1.Size {
		return id, errors.Errorf("invalid node length (%d; expected %d)", len(s), 2*sha1.Size)
	}
	var b, err = hex.DecodeString(s)
	if err != nil {
		return id, errors.WithMessage(err, "decoding node")
	}
	copy(id[:], b)
	return id, nil
}

// String returns the hex encoding of the ID.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// IsZero returns whether the ID is zero-valued.
func (id ID) IsZero() bool { return id == ID{} }
