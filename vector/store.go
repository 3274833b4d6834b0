package vector

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/noesis/core"
)

// Store is an in-memory dense-vector index with tombstone deletion.
// All methods are safe for concurrent use: searches run in parallel and
// writes are exclusive, so a reader never observes a partial write.
type Store struct {
	mu      sync.RWMutex
	dim     int
	metric  Metric
	records []core.VectorRecord
	texts   map[int64]string
	byID    map[int64]int // id -> position in records
	nextID  int64
	live    int
	saveGen uint64
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithMetric sets the similarity metric. Default is cosine.
func WithMetric(m Metric) Option {
	return func(s *Store) error {
		if _, err := ParseMetric(string(m)); err != nil {
			return err
		}
		s.metric = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a new vector store. The dimension is fixed for the lifetime
// of the store; every inserted vector must match it exactly.
func New(dimension int, opts ...Option) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", core.ErrInvalidInput, dimension)
	}

	s := &Store{
		dim:    dimension,
		metric: MetricCosine,
		texts:  make(map[int64]string),
		byID:   make(map[int64]int),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dimension returns the store's fixed vector dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// Metric returns the configured similarity metric.
func (s *Store) Metric() Metric {
	return s.metric
}

// Add inserts (vector, text) pairs. If ids is nil, fresh monotonically
// increasing ids are assigned; otherwise ids supplies one id per vector.
// The whole batch is validated before any insertion, so a failed Add
// leaves the store untouched.
func (s *Store) Add(vectors [][]float32, texts []string, ids []int64) ([]int64, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d texts", core.ErrInvalidInput, len(vectors), len(texts))
	}
	if ids != nil && len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d ids", core.ErrInvalidInput, len(vectors), len(ids))
	}

	for i, vec := range vectors {
		if len(vec) != s.dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, store has %d",
				core.ErrDimensionMismatch, i, len(vec), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ids == nil {
		ids = make([]int64, len(vectors))
		for i := range ids {
			ids[i] = s.nextID + int64(i)
		}
	} else {
		seen := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if _, exists := s.byID[id]; exists {
				return nil, fmt.Errorf("%w: id %d", core.ErrDuplicateID, id)
			}
			if seen[id] {
				return nil, fmt.Errorf("%w: id %d appears twice in batch", core.ErrDuplicateID, id)
			}
			seen[id] = true
		}
	}

	for i, vec := range vectors {
		id := ids[i]
		s.byID[id] = len(s.records)
		s.records = append(s.records, core.VectorRecord{
			ID:     id,
			Vector: slices.Clone(vec),
		})
		s.texts[id] = texts[i]
		s.live++
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}

	return ids, nil
}

// Search returns up to topK live entries ordered by similarity descending,
// ties broken by ascending id. An empty index yields an empty result, not
// an error.
func (s *Store) Search(query []float32, topK int) ([]core.VectorMatch, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, store has %d",
			core.ErrDimensionMismatch, len(query), s.dim)
	}
	if topK <= 0 {
		return []core.VectorMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]core.VectorMatch, 0, s.live)
	for i := range s.records {
		rec := &s.records[i]
		if rec.Deleted {
			continue
		}
		matches = append(matches, core.VectorMatch{
			ID:    rec.ID,
			Score: s.metric.score(query, rec.Vector),
			Text:  s.texts[rec.ID],
		})
	}

	slices.SortFunc(matches, func(a, b core.VectorMatch) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		// Equal scores order by ascending id for determinism
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete tombstones the given ids. Deleting an unknown or already-deleted
// id is a no-op.
func (s *Store) Delete(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		pos, ok := s.byID[id]
		if !ok || s.records[pos].Deleted {
			continue
		}
		s.records[pos].Deleted = true
		delete(s.texts, id)
		s.live--
	}
}

// Compact rebuilds the index without tombstoned records and returns the
// number of slots reclaimed. Compaction is an explicit maintenance
// operation, never a side effect of Delete.
func (s *Store) Compact() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := len(s.records) - s.live
	if reclaimed == 0 {
		return 0
	}

	compacted := make([]core.VectorRecord, 0, s.live)
	byID := make(map[int64]int, s.live)
	for i := range s.records {
		if s.records[i].Deleted {
			continue
		}
		byID[s.records[i].ID] = len(compacted)
		compacted = append(compacted, s.records[i])
	}
	s.records = compacted
	s.byID = byID

	s.logger.Debug("compacted vector index", "reclaimed", reclaimed, "live", s.live)
	return reclaimed
}

// Len returns the number of live (searchable) entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Tombstones returns the number of deleted entries awaiting compaction.
func (s *Store) Tombstones() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) - s.live
}
