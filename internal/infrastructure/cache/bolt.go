package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/receiptsense/backend/internal/domain"
	"go.etcd.io/bbolt"
)

var recordsBucket = []byte("records")

// expiryPrefixLen is the size of the big-endian unix-nano expiry stored before each value
const expiryPrefixLen = 8

// BoltCache is a file-backed cache that survives restarts
type BoltCache struct {
	db *bbolt.DB
}

// NewBoltCache opens (or creates) the cache file at path
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// Get retrieves a value from the cache, deleting it if it has expired
func (b *BoltCache) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value   []byte
		expired bool
	)

	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(recordsBucket).Get([]byte(key))
		if raw == nil {
			return domain.ErrCacheMiss
		}
		v, ok := decodeEntry(raw, time.Now())
		if !ok {
			expired = true
			return domain.ErrCacheMiss
		}
		// bbolt memory is only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})

	if expired {
		_ = b.deleteIfExpired(key)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// deleteIfExpired removes key only if it is still expired, so a fresh value written
// between the read and the delete survives
func (b *BoltCache) deleteIfExpired(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if _, ok := decodeEntry(raw, time.Now()); ok {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Set stores a value in the cache with TTL
func (b *BoltCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := encodeEntry(value, time.Now().Add(ttl))
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(key), entry)
	})
}

// Delete removes a value from the cache
func (b *BoltCache) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).Delete([]byte(key))
	})
}

// Exists checks if a key exists in the cache and is not expired
func (b *BoltCache) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(recordsBucket).Get([]byte(key))
		if raw != nil {
			_, found = decodeEntry(raw, time.Now())
		}
		return nil
	})
	return found, err
}

// Close closes the underlying database file
func (b *BoltCache) Close() error {
	return b.db.Close()
}

func encodeEntry(value []byte, expiration time.Time) []byte {
	entry := make([]byte, expiryPrefixLen+len(value))
	binary.BigEndian.PutUint64(entry, uint64(expiration.UnixNano()))
	copy(entry[expiryPrefixLen:], value)
	return entry
}

// decodeEntry returns the stored value, or false if the entry is malformed or expired at now
func decodeEntry(raw []byte, now time.Time) ([]byte, bool) {
	if len(raw) < expiryPrefixLen {
		return nil, false
	}
	expiration := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:expiryPrefixLen])))
	if now.After(expiration) {
		return nil, false
	}
	return raw[expiryPrefixLen:], true
}
