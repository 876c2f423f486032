// Package linkrev implements a persistent side-index from (filename, node)
// to the ordered list of revisions known to reference that content, used to
// lazily correct link revisions during history passes. The index is backed
// by a SQLite database: a single writer mutates it under host-level
// exclusion, while readers open committed snapshots concurrently.
package linkrev

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.linehist.dev/core/metrics"
	"go.linehist.dev/core/node"
)

// schemaVersion is the expected schema of the backing database. A write-open
// of a database recording any other version discards it and rebuilds.
const schemaVersion = 1

// dbFilename is the database file created under the store directory.
const dbFilename = "linkrevs.sqlite"

// ErrReadOnly is returned by mutating operations of a read-only DB.
var ErrReadOnly = errors.New("link-revision cache is read-only")

// DB is a handle of an open link-revision cache. A DB opened for write holds
// the single mutable handle of its store; the caller owns its lifecycle and
// must Close it to ensure writes are durable.
type DB struct {
	db    *sql.DB
	path  string
	write bool
}

// Open opens the link-revision cache under directory |dir|. With |write|,
// the store is created if absent, and is destroyed and rebuilt if its schema
// version differs from the expected one; this recovery is automatic and
// destructive. Without |write|, the store must exist with a current schema,
// and the returned handle observes all writes committed before Open.
func Open(dir string, write bool) (*DB, error) {
	var path = filepath.Join(dir, dbFilename)

	if !write {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.WithMessage(err, "opening link-revision cache")
		}
		var db, err = sql.Open("sqlite3", "file:"+path+"?mode=ro")
		if err != nil {
			return nil, errors.WithMessage(err, "opening database")
		}
		if version, err := readVersion(db); err != nil {
			_ = db.Close()
			return nil, errors.WithMessage(err, "reading schema version")
		} else if version != schemaVersion {
			_ = db.Close()
			return nil, errors.Errorf("unexpected schema version (%d; expected %d)",
				version, schemaVersion)
		}
		return &DB{db: db, path: path}, nil
	}

	// Probe an existing store for a matching schema version. On any
	// mismatch or read failure, discard and rebuild it.
	if _, err := os.Stat(path); err == nil {
		var db, err = sql.Open("sqlite3", path)
		if err == nil {
			var version int
			if version, err = readVersion(db); err == nil && version == schemaVersion {
				return &DB{db: db, path: path, write: true}, nil
			}
			_ = db.Close()
		}
		log.WithFields(log.Fields{"path": path, "err": err}).
			Warn("discarding stale link-revision cache")
		metrics.LinkRevRebuildsTotal.Inc()

		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
				return nil, errors.WithMessage(err, "removing stale store")
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.WithMessage(err, "opening link-revision cache")
	}

	var db, err = sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithMessage(err, "creating database")
	}
	if err = initSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "initializing schema")
	}
	return &DB{db: db, path: path, write: true}, nil
}

// GetLastRev returns the highest revision recorded via SetLastRev, or zero
// if the store is fresh.
func (d *DB) GetLastRev() (int64, error) {
	var rev int64
	var err = d.db.QueryRow(
		`SELECT value FROM meta WHERE key = 'lastrev';`).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return rev, errors.WithMessage(err, "querying lastrev")
}

// SetLastRev records |rev| as the new high-water revision mark.
func (d *DB) SetLastRev(rev int64) error {
	if !d.write {
		return ErrReadOnly
	}
	var _, err = d.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('lastrev', ?);`, rev)
	return errors.WithMessage(err, "updating lastrev")
}

// GetLinkRevs returns the deduplicated revisions recorded for (|name|,
// |id|), in first-appended order, or nil if the key is unknown.
func (d *DB) GetLinkRevs(name string, id node.ID) ([]int64, error) {
	var rows, err = d.db.Query(
		`SELECT rev FROM linkrevs WHERE name = ? AND node = ? ORDER BY seq;`,
		name, id[:])
	if err != nil {
		return nil, errors.WithMessage(err, "querying linkrevs")
	}
	defer rows.Close()

	var revs []int64
	for rows.Next() {
		var rev int64
		if err = rows.Scan(&rev); err != nil {
			return nil, errors.WithMessage(err, "scanning rev")
		}
		revs = append(revs, rev)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.WithMessage(err, "iterating linkrevs")
	}

	if revs == nil {
		metrics.LinkRevMissesTotal.Inc()
	} else {
		metrics.LinkRevHitsTotal.Inc()
	}
	return revs, nil
}

// AppendLinkRev records |rev| as referencing (|name|, |id|). Appending an
// already-recorded triple is a no-op: the stored revision list never holds
// duplicates.
func (d *DB) AppendLinkRev(name string, id node.ID, rev int64) error {
	if !d.write {
		return ErrReadOnly
	}
	var _, err = d.db.Exec(
		`INSERT OR IGNORE INTO linkrevs (name, node, rev) VALUES (?, ?, ?);`,
		name, id[:], rev)
	if err != nil {
		return errors.WithMessage(err, "inserting linkrev")
	}
	metrics.LinkRevAppendsTotal.Inc()
	return nil
}

// Close flushes and releases the handle. Writes of a write DB are durable
// once Close returns.
func (d *DB) Close() error {
	return errors.WithMessagef(d.db.Close(), "closing link-revision cache (%s)", d.path)
}

func readVersion(db *sql.DB) (int, error) {
	var version int
	var err = db.QueryRow(
		`SELECT value FROM meta WHERE key = 'version';`).Scan(&version)
	return version, err
}

func initSchema(db *sql.DB) error {
	var _, err = db.Exec(`
		CREATE TABLE meta (
			key   TEXT PRIMARY KEY NOT NULL,
			value INTEGER NOT NULL
		);
		CREATE TABLE linkrevs (
			seq  INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT    NOT NULL,
			node BLOB    NOT NULL,
			rev  INTEGER NOT NULL,
			UNIQUE (name, node, rev)
		);
	`)
	if err == nil {
		_, err = db.Exec(
			`INSERT INTO meta (key, value) VALUES ('version', ?);`, schemaVersion)
	}
	return err
}
