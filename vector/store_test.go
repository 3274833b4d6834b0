package vector

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/noesis/core"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(3, opts...)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.Add([][]float32{{1, 0, 0}, {0, 1, 0}}, []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("Failed to add vectors: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Fatalf("Expected ids [0 1], got %v", ids)
	}

	more, err := s.Add([][]float32{{0, 0, 1}}, []string{"c"}, nil)
	if err != nil {
		t.Fatalf("Failed to add vector: %v", err)
	}
	if more[0] != 2 {
		t.Fatalf("Expected next id 2, got %d", more[0])
	}
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add([][]float32{{1, 0}}, []string{"short"}, nil)
	if !errors.Is(err, core.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Expected store untouched after failed add, got %d entries", s.Len())
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Add([][]float32{{1, 0, 0}}, []string{"a"}, []int64{7}); err != nil {
		t.Fatalf("Failed to add vector: %v", err)
	}

	_, err := s.Add([][]float32{{0, 1, 0}}, []string{"b"}, []int64{7})
	if !errors.Is(err, core.ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID, got: %v", err)
	}
}

func TestSearchTopOneIsExactMatch(t *testing.T) {
	s := newTestStore(t)

	vecs := [][]float32{{1, 0, 0}, {0.5, 0.5, 0}, {0, 0, 1}}
	ids, err := s.Add(vecs, []string{"x", "y", "z"}, nil)
	if err != nil {
		t.Fatalf("Failed to add vectors: %v", err)
	}

	for i, vec := range vecs {
		matches, err := s.Search(vec, 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(matches))
		}
		if matches[0].ID != ids[i] {
			t.Fatalf("Expected top hit %d for its own vector, got %d", ids[i], matches[0].ID)
		}
		if matches[0].Score < 0.999 {
			t.Fatalf("Expected near-1 cosine score for exact match, got %f", matches[0].Score)
		}
	}
}

func TestSearchTieBreaksByAscendingID(t *testing.T) {
	s := newTestStore(t)

	// Two identical vectors must order by id.
	_, err := s.Add([][]float32{{1, 1, 0}, {1, 1, 0}}, []string{"first", "second"}, []int64{20, 10})
	if err != nil {
		t.Fatalf("Failed to add vectors: %v", err)
	}

	matches, err := s.Search([]float32{1, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches[0].ID != 10 || matches[1].ID != 20 {
		t.Fatalf("Expected tie broken by ascending id, got %d then %d", matches[0].ID, matches[1].ID)
	}
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	matches, err := s.Search([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Expected no error on empty index, got: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Expected empty result, got %d matches", len(matches))
	}
}

func TestDeleteHidesFromSearch(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.Add([][]float32{{1, 0, 0}, {0, 1, 0}}, []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("Failed to add vectors: %v", err)
	}

	s.Delete(ids[0])

	matches, err := s.Search([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, m := range matches {
		if m.ID == ids[0] {
			t.Fatalf("Deleted id %d returned from search", ids[0])
		}
	}

	// Idempotent: deleting again or deleting unknown ids is a no-op.
	s.Delete(ids[0], 999)
	if s.Len() != 1 {
		t.Fatalf("Expected 1 live entry, got %d", s.Len())
	}
}

func TestCompactReclaimsTombstones(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.Add([][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, []string{"a", "b", "c"}, nil)
	if err != nil {
		t.Fatalf("Failed to add vectors: %v", err)
	}

	s.Delete(ids[1])
	if s.Tombstones() != 1 {
		t.Fatalf("Expected 1 tombstone, got %d", s.Tombstones())
	}

	if reclaimed := s.Compact(); reclaimed != 1 {
		t.Fatalf("Expected 1 reclaimed slot, got %d", reclaimed)
	}
	if s.Tombstones() != 0 {
		t.Fatalf("Expected no tombstones after compact, got %d", s.Tombstones())
	}

	// Survivors still searchable.
	matches, err := s.Search([]float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches[0].ID != ids[2] {
		t.Fatalf("Expected id %d after compact, got %d", ids[2], matches[0].ID)
	}
}

func TestL2MetricOrdersByNegatedDistance(t *testing.T) {
	s := newTestStore(t, WithMetric(MetricL2))

	ids, err := s.Add([][]float32{{0, 0, 0}, {3, 0, 0}}, []string{"near", "far"}, nil)
	if err != nil {
		t.Fatalf("Failed to add vectors: %v", err)
	}

	matches, err := s.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches[0].ID != ids[0] {
		t.Fatalf("Expected nearest vector first, got id %d", matches[0].ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("Expected descending scores, got %f then %f", matches[0].Score, matches[1].Score)
	}
	if matches[0].Score > 0 {
		t.Fatalf("Expected negated distance, got positive score %f", matches[0].Score)
	}
}

func TestConcurrentSearchDuringWrites(t *testing.T) {
	s := newTestStore(t)

	const (
		batches   = 50
		batchSize = 4
	)

	done := make(chan struct{})
	var wg sync.WaitGroup

	// One writer adds whole batches and retires every third batch in a
	// single Delete call; both operations take the write lock, so a
	// reader must see each batch entirely or not at all.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for b := 0; b < batches; b++ {
			vecs := make([][]float32, batchSize)
			texts := make([]string, batchSize)
			for i := range vecs {
				vecs[i] = []float32{1, 0, 0}
				texts[i] = fmt.Sprintf("batch-%d", b)
			}
			ids, err := s.Add(vecs, texts, nil)
			if err != nil {
				t.Errorf("Failed to add batch %d: %v", b, err)
				return
			}
			if b%3 == 0 {
				s.Delete(ids...)
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				matches, err := s.Search([]float32{1, 0, 0}, batches*batchSize)
				if err != nil {
					t.Errorf("Search failed: %v", err)
					return
				}
				counts := make(map[string]int)
				for _, m := range matches {
					counts[m.Text]++
				}
				for text, n := range counts {
					if n != batchSize {
						t.Errorf("Observed partial batch %s: %d of %d", text, n, batchSize)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
