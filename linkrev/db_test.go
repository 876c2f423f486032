package linkrev

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go.linehist.dev/core/node"
)

func TestFreshStoreIsEmpty(t *testing.T) {
	var db, err = Open(t.TempDir(), true)
	require.NoError(t, err)
	defer db.Close()

	rev, err := db.GetLastRev()
	require.NoError(t, err)
	require.Zero(t, rev)

	revs, err := db.GetLinkRevs("a/file.go", node.SumOf([]byte("v1")))
	require.NoError(t, err)
	require.Nil(t, revs)
}

func TestAppendIsIdempotent(t *testing.T) {
	var db, err = Open(t.TempDir(), true)
	require.NoError(t, err)
	defer db.Close()

	var id = node.SumOf([]byte("content"))
	require.NoError(t, db.AppendLinkRev("file", id, 7))
	require.NoError(t, db.AppendLinkRev("file", id, 7))
	require.NoError(t, db.AppendLinkRev("file", id, 9))
	require.NoError(t, db.AppendLinkRev("file", id, 7))

	var revs, rErr = db.GetLinkRevs("file", id)
	require.NoError(t, rErr)
	require.Equal(t, []int64{7, 9}, revs)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	var dir = t.TempDir()
	var db, err = Open(dir, true)
	require.NoError(t, err)

	// Write 25 entries across 5 filenames and nodes, interleaved with
	// lastrev updates.
	var ids [5]node.ID
	for i := range ids {
		ids[i] = node.SumOf([]byte(fmt.Sprintf("blob-%d", i)))
	}
	for rev := int64(1); rev != 26; rev++ {
		var i = int(rev) % 5
		require.NoError(t, db.AppendLinkRev(fmt.Sprintf("file-%d", i), ids[i], rev))
		require.NoError(t, db.SetLastRev(rev))
	}
	require.NoError(t, db.Close())

	// Reopen read-only, and expect exactly the written state.
	db, err = Open(dir, false)
	require.NoError(t, err)
	defer db.Close()

	rev, err := db.GetLastRev()
	require.NoError(t, err)
	require.Equal(t, int64(25), rev)

	for i := 0; i != 5; i++ {
		var expect []int64
		for rev := int64(1); rev != 26; rev++ {
			if int(rev)%5 == i {
				expect = append(expect, rev)
			}
		}
		var revs, rErr = db.GetLinkRevs(fmt.Sprintf("file-%d", i), ids[i])
		require.NoError(t, rErr)
		require.Equal(t, expect, revs)
	}

	// Keys never written return nil.
	revs, err := db.GetLinkRevs("file-0", ids[1])
	require.NoError(t, err)
	require.Nil(t, revs)
	revs, err = db.GetLinkRevs("no/such/file", ids[0])
	require.NoError(t, err)
	require.Nil(t, revs)

	// The read-only handle rejects mutations.
	require.Equal(t, ErrReadOnly, db.SetLastRev(26))
	require.Equal(t, ErrReadOnly, db.AppendLinkRev("file-0", ids[0], 26))
}

func TestWriteOpenRebuildsOnVersionMismatch(t *testing.T) {
	var dir = t.TempDir()
	var db, err = Open(dir, true)
	require.NoError(t, err)

	require.NoError(t, db.AppendLinkRev("file", node.SumOf([]byte("v1")), 3))
	require.NoError(t, db.SetLastRev(3))
	require.NoError(t, db.Close())

	// Stamp a bogus schema version, as a future incompatible writer would.
	raw, err := sql.Open("sqlite3", filepath.Join(dir, dbFilename))
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE meta SET value = 99 WHERE key = 'version';`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	// A read-only open fails fast.
	_, err = Open(dir, false)
	require.EqualError(t, err, "unexpected schema version (99; expected 1)")

	// A write-open discards the store and rebuilds a fresh, usable one.
	db, err = Open(dir, true)
	require.NoError(t, err)
	defer db.Close()

	rev, err := db.GetLastRev()
	require.NoError(t, err)
	require.Zero(t, rev)

	revs, err := db.GetLinkRevs("file", node.SumOf([]byte("v1")))
	require.NoError(t, err)
	require.Nil(t, revs)

	require.NoError(t, db.AppendLinkRev("file", node.SumOf([]byte("v2")), 1))
}

func TestReadOpenOfMissingStoreFails(t *testing.T) {
	var _, err = Open(t.TempDir(), false)
	require.Error(t, err)
}
