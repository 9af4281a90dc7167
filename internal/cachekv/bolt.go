package cachekv

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

// BoltDriver implements Driver on top of boltdb/bolt, the same
// embedded-store the teacher uses for its perceptual-hash index.
type BoltDriver struct {
	db *bolt.DB
}

// OpenBoltDriver opens (creating if needed) a BoltDB file at path.
func OpenBoltDriver(path string) (*BoltDriver, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache store %s: %w", path, err)
	}
	return &BoltDriver{db: db}, nil
}

// Store opens (creating if needed) a named bucket.
func (d *BoltDriver) Store(name string) (Store, error) {
	err := d.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket %s: %w", name, err)
	}
	return &boltStore{db: d.db, bucket: name}, nil
}

// Close closes the underlying BoltDB file.
func (d *BoltDriver) Close() error {
	return d.db.Close()
}

type boltStore struct {
	db     *bolt.DB
	bucket string
}

func (s *boltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		if v := b.Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

func (s *boltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.bucket)).Put(key, value)
	})
}

func (s *boltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.bucket)).Delete(key)
	})
}

func (s *boltStore) ForEach(fn func(key, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.bucket)).ForEach(fn)
	})
}
