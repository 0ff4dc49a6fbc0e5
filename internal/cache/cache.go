// Package cache implements the TTL-keyed search result cache. Entries live in
// a small in-memory LRU front backed by a BadgerDB tier that survives
// restarts. Expiry is checked lazily at read time; no background sweep runs,
// and racing writers on one key are last-write-wins.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/metrics"
)

const memoryEntries = 256

// Entry is one cached search result keyed by the hash of its normalized
// query string.
type Entry struct {
	QueryKey  string          `json:"queryKey"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Cache is the shared result cache. It is keyed by query content only, not by
// user. Cache failures degrade to misses: the caller fetches live and the
// failure is logged and counted, never surfaced as a search error.
type Cache struct {
	db  *badger.DB
	mem *lru.Cache[string, Entry]
	log logrus.FieldLogger
	now func() time.Time
}

// Open creates the cache with its persistent tier at dir.
func Open(dir string, logger logrus.FieldLogger) (*Cache, error) {
	log := logger.WithField("component", "cache")

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store at %s: %w", dir, err)
	}

	mem, err := lru.New[string, Entry](memoryEntries)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &Cache{db: db, mem: mem, log: log, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached payload for key, or ok=false on miss. An entry past
// its ExpiresAt is a miss regardless of which tier still holds it.
func (c *Cache) Get(key string) (payload []byte, ok bool) {
	if entry, hit := c.mem.Get(key); hit {
		if c.now().Before(entry.ExpiresAt) {
			metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
			return entry.Payload, true
		}
		c.mem.Remove(key)
	}

	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err == badger.ErrKeyNotFound {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("get").Inc()
		c.log.WithError(err).WithField("key", key).Warn("cache read failed, treating as miss")
		return nil, false
	}

	if !c.now().Before(entry.ExpiresAt) {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}

	c.mem.Add(key, entry)
	metrics.CacheHitsTotal.WithLabelValues("disk").Inc()
	return entry.Payload, true
}

// Set stores payload under key for ttl. Write failures are logged and
// counted; the search that produced the payload already succeeded, so the
// caller is never failed over a cache write.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) {
	entry := Entry{
		QueryKey:  key,
		Payload:   payload,
		CreatedAt: c.now(),
		ExpiresAt: c.now().Add(ttl),
	}
	c.mem.Add(key, entry)

	encoded, err := json.Marshal(entry)
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("set").Inc()
		c.log.WithError(err).WithField("key", key).Warn("cache entry marshal failed")
		return
	}

	// Badger's own TTL reclaims space eventually; the ExpiresAt check in Get
	// stays authoritative.
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), encoded).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("set").Inc()
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }
