package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"log"

	badger "github.com/dgraph-io/badger/v4"
)

// vectorPrefix namespaces feature vector records inside the database.
const vectorPrefix = "vp:"

// BadgerStore is a [Store] backed by BadgerDB v4. Badger transactions
// give the per-key atomic upsert the engine requires: a reader never
// observes a partially written blob.
type BadgerStore struct {
	db  *badger.DB
	dim int
}

// BadgerStoreOptions configures a BadgerStore.
type BadgerStoreOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for
	// testing against a real badger engine.
	InMemory bool

	// Dimension is the process-wide embedding dimensionality.
	// Required.
	Dimension int

	// Logger sets the badger logger. If nil, a quiet logger is used
	// that only reports warnings and errors.
	Logger badger.Logger
}

// NewBadgerStore opens a BadgerDB-backed feature store.
func NewBadgerStore(opts BadgerStoreOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("voiceprint: BadgerStoreOptions.Dir is required for on-disk mode")
	}
	if opts.Dimension <= 0 {
		return nil, errors.New("voiceprint: BadgerStoreOptions.Dimension is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %v", ErrStoreUnavailable, err)
	}
	return &BadgerStore{db: db, dim: opts.Dimension}, nil
}

func vectorKey(key string) []byte {
	return append([]byte(vectorPrefix), key...)
}

func (s *BadgerStore) Upsert(_ context.Context, key string, vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("%w: vector has %d values, store dimension is %d",
			ErrDimensionMismatch, len(vec), s.dim)
	}
	blob := EncodeVector(vec)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vectorKey(key), blob)
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %q: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *BadgerStore) Fetch(_ context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(vectorKey(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			blob, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vec, err := DecodeVector(blob, s.dim)
			if err != nil {
				return fmt.Errorf("record %q: %w", key, err)
			}
			out[key] = vec
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCorruptRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *BadgerStore) FetchAll(_ context.Context) (map[string][]float32, error) {
	out := make(map[string][]float32)
	prefix := []byte(vectorPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			blob, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vec, err := DecodeVector(blob, s.dim)
			if err != nil {
				return fmt.Errorf("record %q: %w", key, err)
			}
			out[key] = vec
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCorruptRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch all: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) (bool, error) {
	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		k := vectorKey(key)
		_, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(k)
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete %q: %v", ErrStoreUnavailable, key, err)
	}
	return existed, nil
}

func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0
	prefix := []byte(vectorPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// quietLogger suppresses badger's debug and info output.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
