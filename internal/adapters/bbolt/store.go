// Package bbolt implements ports.TableStore using bbolt (embedded B+ tree).
// Every table lives in its own sub-bucket of the top-level "tables" bucket,
// holding the rows as one JSON blob plus a small metadata record. Writes are
// transactional: a crash mid-import cannot corrupt the previously committed
// table.
package bbolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corey/aptlookup/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// Bucket keys
var (
	bucketTables = []byte("tables")
	keyRows      = []byte("rows")
	keyMeta      = []byte("meta")
)

// openTimeout bounds how long an open waits for another process's file lock.
const openTimeout = 1 * time.Second

// TableInfo describes one stored table.
type TableInfo struct {
	Name       string    `json:"name"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// Store implements ports.TableStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database with a shared lock, so several
// readers (daemon, CLI) can coexist. Fails if the file does not exist.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// SaveRows replaces the full table.
func (s *Store) SaveRows(table string, rows []ports.RawRow) error {
	if table == "" {
		return fmt.Errorf("empty table name")
	}
	if rows == nil {
		rows = []ports.RawRow{}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	meta, err := json.Marshal(TableInfo{Name: table, Rows: len(rows), ImportedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal table meta: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketTables)
		if err != nil {
			return err
		}
		tb, err := root.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		if err := tb.Put(keyRows, data); err != nil {
			return err
		}
		return tb.Put(keyMeta, meta)
	})
}

// LoadRows returns the table in stored order.
// Returns nil, nil if the table does not exist.
func (s *Store) LoadRows(table string) ([]ports.RawRow, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		tb := tableBucket(tx, table)
		if tb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := tb.Get(keyRows); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	var rows []ports.RawRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}
	return rows, nil
}

// Tables lists stored tables in key order.
func (s *Store) Tables() ([]TableInfo, error) {
	var out []TableInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketTables)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(name []byte) error {
			info := TableInfo{Name: string(name)}
			if v := root.Bucket(name).Get(keyMeta); v != nil {
				if err := json.Unmarshal(v, &info); err != nil {
					return fmt.Errorf("unmarshal meta for %q: %w", name, err)
				}
			}
			out = append(out, info)
			return nil
		})
	})
	return out, err
}

// DeleteTable removes a table.
// Idempotent: deleting a nonexistent table is not an error.
func (s *Store) DeleteTable(table string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketTables)
		if root == nil {
			return nil
		}
		if err := root.DeleteBucket([]byte(table)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}

func tableBucket(tx *bolt.Tx, table string) *bolt.Bucket {
	root := tx.Bucket(bucketTables)
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(table))
}
