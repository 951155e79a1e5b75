package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketPrefix = "engine:"

// Bolt is a Cache persisted in a bbolt file, one bucket per scope.
type Bolt struct {
	DBPath string
	db     *bolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*Bolt, error) {
	s := &Bolt{DBPath: path}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init opens the database file.
func (s *Bolt) Init() error {
	dbDir := filepath.Dir(s.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for BoltDB: %w", err)
	}

	db, err := bolt.Open(s.DBPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open BoltDB: %w", err)
	}
	s.db = db
	return nil
}

func bucketName(scope string) []byte {
	return []byte(bucketPrefix + scope)
}

func (s *Bolt) Get(scope, key string) (Entry, bool, error) {
	var (
		e  Entry
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(scope))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		decoded, err := decodeEntry(v)
		if err != nil {
			return err
		}
		e, ok = decoded, true
		return nil
	})
	return e, ok, err
}

func (s *Bolt) Put(scope, key string, e Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(scope))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), encodeEntry(e))
	})
}

// Clear removes every entry of scope. Clearing a missing scope is a no-op.
func (s *Bolt) Clear(scope string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(bucketName(scope))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

// Close closes the BoltDB database
func (s *Bolt) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Entries are stored as an 8 byte big-endian unix-nano timestamp followed
// by the body.
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 8+len(e.Body))
	binary.BigEndian.PutUint64(buf, uint64(e.FetchedAt.UnixNano()))
	copy(buf[8:], e.Body)
	return buf
}

func decodeEntry(v []byte) (Entry, error) {
	if len(v) < 8 {
		return Entry{}, fmt.Errorf("corrupt cache entry of %d bytes", len(v))
	}
	ts := int64(binary.BigEndian.Uint64(v[:8]))
	return Entry{
		Body:      append([]byte(nil), v[8:]...),
		FetchedAt: time.Unix(0, ts),
	}, nil
}

var _ Cache = (*Bolt)(nil)
