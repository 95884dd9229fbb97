// Package cache is the resolution cache: the single owner of persisted
// ResolutionEntry state. Entries are merged in, never replaced, and a
// branch's minimum safe version never decreases across merges.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
	"k8s.io/utils/clock"

	"github.com/minsafe/msv-db/pkg/log"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

const SchemaVersion = 1

const (
	resolutionBucket = "resolution"
	metadataBucket   = "metadata"
)

var logger = log.WithPrefix("cache")

// Store owns the keyed product-id -> ResolutionEntry state. Merges for
// the same product are serialized through a per-product lock; different
// products merge in parallel.
type Store struct {
	db    *bolt.DB
	clock clock.Clock

	mu        sync.Mutex
	productMu map[string]*sync.Mutex
}

type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

func Path(cacheDir string) string {
	return filepath.Join(cacheDir, "db", "msv.db")
}

// New opens (or creates) the store under cacheDir. A store that cannot
// be opened or initialized is treated as corrupt: it is discarded and
// rebuilt empty rather than failing resolution.
func New(cacheDir string, opts ...Option) (*Store, error) {
	dbPath := Path(cacheDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, xerrors.Errorf("failed to mkdir: %w", err)
	}

	db, err := open(dbPath)
	if err != nil {
		logger.Warn("Corrupt resolution cache, rebuilding",
			log.FilePath(dbPath), log.Err(err))
		if err = os.Remove(dbPath); err != nil {
			return nil, xerrors.Errorf("failed to remove corrupt cache: %w", err)
		}
		if db, err = open(dbPath); err != nil {
			return nil, xerrors.Errorf("failed to rebuild cache: %w", err)
		}
	}

	s := &Store{
		db:        db,
		clock:     clock.RealClock{},
		productMu: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func open(dbPath string) (*bolt.DB, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{resolutionBucket, metadataBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return xerrors.Errorf("failed to create a bucket: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return xerrors.Errorf("failed to close the cache: %w", err)
	}
	return nil
}

func (s *Store) productLock(productID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.productMu[productID]
	if !ok {
		m = &sync.Mutex{}
		s.productMu[productID] = m
	}
	return m
}

// Merge folds a candidate entry into the cached state for productID.
// The operation is idempotent and commutative per branch: a candidate
// carrying a lower minimum safe version is silently ignored, because a
// safety threshold must not be retractable by a degraded later fetch.
func (s *Store) Merge(productID string, incoming types.ResolutionEntry) error {
	m := s.productLock(productID)
	m.Lock()
	defer m.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(resolutionBucket))
		if bucket == nil {
			return xerrors.New("resolution bucket missing")
		}

		existing := s.decode(bucket.Get([]byte(productID)), productID)
		merged := mergeEntry(existing, incoming, s.clock.Now().UTC())

		value, err := json.Marshal(merged)
		if err != nil {
			return xerrors.Errorf("failed to marshal entry: %w", err)
		}
		return bucket.Put([]byte(productID), value)
	})
	if err != nil {
		return xerrors.Errorf("merge error (%s): %w", productID, err)
	}
	return nil
}

// Get returns a snapshot of the cached entry, or nil when the product
// has never been resolved. An unreadable value counts as absent.
func (s *Store) Get(productID string) (*types.ResolutionEntry, error) {
	var entry *types.ResolutionEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(resolutionBucket))
		if bucket == nil {
			return nil
		}
		entry = s.decode(bucket.Get([]byte(productID)), productID)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("get error (%s): %w", productID, err)
	}
	return entry, nil
}

func (s *Store) decode(value []byte, productID string) *types.ResolutionEntry {
	if len(value) == 0 {
		return nil
	}
	var entry types.ResolutionEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		logger.Warn("Unreadable cache entry, treating as absent",
			log.Product(productID), log.Err(err))
		return nil
	}
	return &entry
}

// PrimaryMSV locates the branch with the numerically highest minimum
// safe version across the product's branches, for callers that do not
// know which branch they are on.
type PrimaryMSV struct {
	MSV    string
	Branch string
}

func (s *Store) PrimaryMSV(productID string) (*PrimaryMSV, error) {
	entry, err := s.Get(productID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	var primary *PrimaryMSV
	for _, b := range entry.Branches {
		if b.MSV == "" {
			continue
		}
		if primary == nil || version.Less(primary.MSV, b.MSV) {
			primary = &PrimaryMSV{
				MSV:    b.MSV,
				Branch: b.Prefix,
			}
		}
	}
	return primary, nil
}
