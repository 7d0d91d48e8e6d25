package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/recipeprice/backend/internal/domain"
)

var bucketName = []byte("costs")

type boltEntry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// BoltCache persists cache entries in a bbolt file so computed costs survive restarts.
// Expired entries are dropped lazily on read.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache opens (or creates) the cache file at path
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// Get retrieves a value, decoded into generic JSON types
func (c *BoltCache) Get(ctx context.Context, key string) (interface{}, error) {
	entry, ok, err := c.read(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if time.Now().After(entry.ExpiresAt) {
		_ = c.Delete(ctx, key)
		return nil, domain.ErrCacheMiss
	}

	var value interface{}
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value with TTL
func (c *BoltCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	data, err := json.Marshal(boltEntry{Value: raw, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

// Delete removes a value
func (c *BoltCache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Exists checks if a key exists and is not expired
func (c *BoltCache) Exists(ctx context.Context, key string) (bool, error) {
	entry, ok, err := c.read(key)
	if err != nil || !ok {
		return false, err
	}
	return !time.Now().After(entry.ExpiresAt), nil
}

// Close releases the database file
func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) read(key string) (boltEntry, bool, error) {
	var (
		entry boltEntry
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		// data is only valid inside the transaction
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return boltEntry{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return entry, found, nil
}
