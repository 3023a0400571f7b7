package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("not found")

// Storage keys
const (
	keyOptions     = "options"
	analysisPrefix = "analysis/"
)

// EngineOptions are the options a user changed through the protocol.
// They are restored on the next start.
type EngineOptions struct {
	HashMB           int       `json:"hash_mb"`
	Threads          int       `json:"threads"`
	MultiPV          int       `json:"multipv"`
	MoveOverheadMs   int       `json:"move_overhead_ms"`
	Ponder           bool      `json:"ponder"`
	SyzygyProbeLimit int       `json:"syzygy_probe_limit"`
	UseLichessTB     bool      `json:"use_lichess_tb"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Analysis is the result of a finished search of one position.
type Analysis struct {
	FEN     string    `json:"fen"`
	Move    string    `json:"move"`
	Ponder  string    `json:"ponder,omitempty"`
	Score   int       `json:"score"`
	Depth   int       `json:"depth"`
	PV      []string  `json:"pv"`
	Nodes   uint64    `json:"nodes"`
	Created time.Time `json:"created"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens the database below dataDir, or the default data directory
// when dataDir is empty.
func Open(dataDir string) (*Storage, error) {
	dbDir, err := GetDatabaseDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("database directory: %w", err)
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbDir, err)
	}
	return &Storage{db: db}, nil
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *Storage) get(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveOptions stores the engine options.
func (s *Storage) SaveOptions(o *EngineOptions) error {
	o.UpdatedAt = time.Now()
	return s.put([]byte(keyOptions), o)
}

// LoadOptions returns the stored engine options, or ErrNotFound.
func (s *Storage) LoadOptions() (*EngineOptions, error) {
	o := &EngineOptions{}
	if err := s.get([]byte(keyOptions), o); err != nil {
		return nil, err
	}
	return o, nil
}

// AnalysisKey identifies a position by the first four FEN fields, so the
// move counters do not split one position into several records.
func AnalysisKey(fen string) []byte {
	fields := strings.Fields(fen)
	fields = fields[:min(4, len(fields))]

	key := make([]byte, len(analysisPrefix)+8)
	copy(key, analysisPrefix)
	binary.BigEndian.PutUint64(key[len(analysisPrefix):], xxhash.Sum64String(strings.Join(fields, " ")))
	return key
}

// SaveAnalysis stores a, unless a deeper analysis of the position exists.
// It reports whether a was stored.
func (s *Storage) SaveAnalysis(a *Analysis) (bool, error) {
	if a.Created.IsZero() {
		a.Created = time.Now()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return false, err
	}

	key := AnalysisKey(a.FEN)
	stored := false
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var old Analysis
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
				return err
			}
			if old.Depth > a.Depth {
				return nil
			}
		}
		stored = true
		return txn.Set(key, data)
	})
	return stored, err
}

// LoadAnalysis returns the stored analysis of the position, or ErrNotFound.
func (s *Storage) LoadAnalysis(fen string) (*Analysis, error) {
	a := &Analysis{}
	if err := s.get(AnalysisKey(fen), a); err != nil {
		return nil, err
	}
	return a, nil
}

// RecentAnalyses returns up to limit analyses, newest first. A limit of
// zero or less returns all of them.
func (s *Storage) RecentAnalyses(limit int) ([]*Analysis, error) {
	var out []*Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(analysisPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			a := &Analysis{}
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, a) }); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b *Analysis) int { return b.Created.Compare(a.Created) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
