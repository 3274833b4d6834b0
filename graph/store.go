package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/poiesic/noesis/core"
)

// Store provides typed node and edge operations over a Backend.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates a graph store on the given backend.
func NewStore(backend *Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", core.ErrInvalidInput)
	}

	s := &Store{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the store. The backend is owned by the caller and must be
// closed separately.
func (s *Store) Close() error {
	return nil
}

// AddDocument upserts a Document node. On update the original InsertedAt
// is preserved and attributes are overwritten.
func (s *Store) AddDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.ID)

		now := time.Now().UTC()
		existing, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			doc.InsertedAt = existing.InsertedAt
		} else {
			doc.InsertedAt = now
		}
		doc.UpdatedAt = now

		if err := tx.Set(key, MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AddEntity upserts an Entity node.
func (s *Store) AddEntity(ctx context.Context, entity *core.Entity) error {
	if err := core.ValidateEntity(entity); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEntityKey(entity.ID)

		now := time.Now().UTC()
		existing, err := s.readEntity(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			entity.InsertedAt = existing.InsertedAt
		} else {
			entity.InsertedAt = now
		}
		entity.UpdatedAt = now

		if err := tx.Set(key, MarshalEntity(entity)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LinkDocumentEntity creates a MENTIONS edge from a document to an
// entity. Both endpoints must exist. Linking the same pair twice is a
// no-op: MENTIONS edges form a set.
func (s *Store) LinkDocumentEntity(ctx context.Context, docID, entityID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.requireDocument(tx, docID); err != nil {
			return err
		}
		if err := s.requireEntity(tx, entityID); err != nil {
			return err
		}

		if err := tx.Set(makeMentionKey(docID, entityID), nil); err != nil {
			return err
		}
		if err := tx.Set(makeMentionReverseKey(entityID, docID), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LinkEntities creates a RELATED_TO edge between two entities. Multiple
// edges between the same pair are allowed only when their relation types
// differ; re-linking with the same type is a no-op.
func (s *Store) LinkEntities(ctx context.Context, sourceID, targetID, relationType string) error {
	if relationType == "" {
		return fmt.Errorf("%w: relation type cannot be empty", core.ErrInvalidInput)
	}
	if sourceID == targetID {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrSelfLink)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.requireEntity(tx, sourceID); err != nil {
			return err
		}
		if err := s.requireEntity(tx, targetID); err != nil {
			return err
		}

		if err := tx.Set(makeRelationKey(sourceID, relationType, targetID), nil); err != nil {
			return err
		}
		if err := tx.Set(makeRelationReverseKey(targetID, sourceID, relationType), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by ID.
// Returns core.ErrNotFound if the document doesn't exist.
func (s *Store) GetDocument(ctx context.Context, docID string) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = s.readDocument(tx, makeDocumentKey(docID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %q", core.ErrNotFound, docID)
	}
	return doc, nil
}

// GetEntity retrieves an entity by ID.
// Returns core.ErrNotFound if the entity doesn't exist.
func (s *Store) GetEntity(ctx context.Context, entityID string) (*core.Entity, error) {
	var entity *core.Entity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entity, err = s.readEntity(tx, makeEntityKey(entityID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: entity %q", core.ErrNotFound, entityID)
	}
	return entity, nil
}

// GetDocumentEntities returns all entities mentioned by a document, in
// edge-key order.
func (s *Store) GetDocumentEntities(ctx context.Context, docID string) ([]*core.Entity, error) {
	var entities []*core.Entity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeMentionPrefix(docID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			entityID, _, err := readSegment(iter.Item().Key(), len(prefix))
			if err != nil {
				return err
			}
			entity, err := s.readEntity(tx, makeEntityKey(entityID))
			if err != nil {
				return err
			}
			if entity != nil {
				entities = append(entities, entity)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetRelatedEntities performs a one-hop traversal along RELATED_TO edges
// from the given entity, optionally filtered by relation type (empty
// string matches all). Order follows the edge index and is stable for a
// given store state.
func (s *Store) GetRelatedEntities(ctx context.Context, entityID, relationType string) ([]*core.RelatedEntity, error) {
	var related []*core.RelatedEntity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		base := makeRelationPrefix(entityID, "")
		prefix := makeRelationPrefix(entityID, relationType)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			relType, off, err := readSegment(key, len(base))
			if err != nil {
				return err
			}
			targetID, _, err := readSegment(key, off)
			if err != nil {
				return err
			}

			entity, err := s.readEntity(tx, makeEntityKey(targetID))
			if err != nil {
				return err
			}
			if entity != nil {
				related = append(related, &core.RelatedEntity{
					Entity:       entity,
					RelationType: relType,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return related, nil
}

// SearchEntities returns entities whose name contains namePattern,
// optionally filtered by entity type.
func (s *Store) SearchEntities(ctx context.Context, namePattern string, entityType core.EntityType) ([]*core.Entity, error) {
	var entities []*core.Entity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entity *core.Entity
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entity, err = UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}
			if !strings.Contains(entity.Name, namePattern) {
				continue
			}
			if entityType != "" && entity.Type != entityType {
				continue
			}
			entities = append(entities, entity)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// DeleteDocument removes a document node, its MENTIONS edges, and its
// vector-id mapping. Returns the mapped vector id (if any) so the caller
// can tombstone it in the vector store.
// Returns core.ErrNotFound if the document doesn't exist.
func (s *Store) DeleteDocument(ctx context.Context, docID string) (vectorID int64, hadVector bool, err error) {
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(docID)
		doc, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: document %q", core.ErrNotFound, docID)
		}

		// Cascade mentions edges
		prefix := makeMentionPrefix(docID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		var entityIDs []string
		for iter.Rewind(); iter.Valid(); iter.Next() {
			entityID, _, err := readSegment(iter.Item().Key(), len(prefix))
			if err != nil {
				iter.Close()
				return err
			}
			entityIDs = append(entityIDs, entityID)
		}
		iter.Close()
		for _, entityID := range entityIDs {
			if err := tx.Delete(makeMentionKey(docID, entityID)); err != nil {
				return err
			}
			if err := tx.Delete(makeMentionReverseKey(entityID, docID)); err != nil {
				return err
			}
		}

		// Drop the vector mapping
		mapKey := makeVectorMapKey(docID)
		item, err := tx.Get(mapKey)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				id, err := UnmarshalVectorID(val)
				if err != nil {
					return err
				}
				vectorID = id
				hadVector = true
				return nil
			}); err != nil {
				return err
			}
			if err := tx.Delete(mapKey); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorReverseKey(vectorID)); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return vectorID, hadVector, err
}

// DeleteEntity removes an entity node and every edge incident to it.
// Returns core.ErrNotFound if the entity doesn't exist.
func (s *Store) DeleteEntity(ctx context.Context, entityID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEntityKey(entityID)
		entity, err := s.readEntity(tx, key)
		if err != nil {
			return err
		}
		if entity == nil {
			return fmt.Errorf("%w: entity %q", core.ErrNotFound, entityID)
		}

		// Incoming mentions
		mentionPrefix := makeMentionReversePrefix(entityID)
		docIDs, err := collectSegments(tx, mentionPrefix, 1)
		if err != nil {
			return err
		}
		for _, segs := range docIDs {
			docID := segs[0]
			if err := tx.Delete(makeMentionKey(docID, entityID)); err != nil {
				return err
			}
			if err := tx.Delete(makeMentionReverseKey(entityID, docID)); err != nil {
				return err
			}
		}

		// Outgoing relations
		outgoing, err := collectSegments(tx, makeRelationPrefix(entityID, ""), 2)
		if err != nil {
			return err
		}
		for _, segs := range outgoing {
			relType, targetID := segs[0], segs[1]
			if err := tx.Delete(makeRelationKey(entityID, relType, targetID)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationReverseKey(targetID, entityID, relType)); err != nil {
				return err
			}
		}

		// Incoming relations
		incoming, err := collectSegments(tx, makeRelationReversePrefix(entityID), 2)
		if err != nil {
			return err
		}
		for _, segs := range incoming {
			sourceID, relType := segs[0], segs[1]
			if err := tx.Delete(makeRelationKey(sourceID, relType, entityID)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationReverseKey(entityID, sourceID, relType)); err != nil {
				return err
			}
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SetVectorID records the vector store id assigned to a document's
// embedding. Returns core.ErrNodeNotFound if the document is absent.
func (s *Store) SetVectorID(ctx context.Context, docID string, vectorID int64) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.requireDocument(tx, docID); err != nil {
			return err
		}

		// Re-ingest replaces the mapping; drop the stale reverse entry.
		if item, err := tx.Get(makeVectorMapKey(docID)); err == nil {
			var oldID int64
			if err := item.Value(func(val []byte) error {
				var err error
				oldID, err = UnmarshalVectorID(val)
				return err
			}); err != nil {
				return err
			}
			if oldID != vectorID {
				if err := tx.Delete(makeVectorReverseKey(oldID)); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(makeVectorMapKey(docID), MarshalVectorID(vectorID)); err != nil {
			return err
		}
		if err := tx.Set(makeVectorReverseKey(vectorID), []byte(docID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// VectorID returns the vector store id mapped to a document.
// Returns core.ErrNotFound if no mapping exists.
func (s *Store) VectorID(ctx context.Context, docID string) (int64, error) {
	var vectorID int64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorMapKey(docID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no vector mapping for document %q", core.ErrNotFound, docID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vectorID, err = UnmarshalVectorID(val)
			return err
		})
	}, false)
	return vectorID, err
}

// DocumentIDByVectorID resolves a vector store id back to its document.
// Returns core.ErrNotFound if no mapping exists.
func (s *Store) DocumentIDByVectorID(ctx context.Context, vectorID int64) (string, error) {
	var docID string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorReverseKey(vectorID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no document for vector id %d", core.ErrNotFound, vectorID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			docID = string(val)
			return nil
		})
	}, false)
	return docID, err
}

func (s *Store) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		doc, err = UnmarshalDocument(val)
		return err
	})
	return doc, err
}

func (s *Store) readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		entity, err = UnmarshalEntity(val)
		return err
	})
	return entity, err
}

func (s *Store) requireDocument(tx *badger.Txn, docID string) error {
	if _, err := tx.Get(makeDocumentKey(docID)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: document %q", core.ErrNodeNotFound, docID)
		}
		return err
	}
	return nil
}

func (s *Store) requireEntity(tx *badger.Txn, entityID string) error {
	if _, err := tx.Get(makeEntityKey(entityID)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: entity %q", core.ErrNodeNotFound, entityID)
		}
		return err
	}
	return nil
}

// collectSegments scans a composite-key prefix and decodes count
// segments from each key past the prefix.
func collectSegments(tx *badger.Txn, prefix []byte, count int) ([][]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var results [][]string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		segs := make([]string, count)
		off := len(prefix)
		for i := 0; i < count; i++ {
			var (
				seg string
				err error
			)
			seg, off, err = readSegment(key, off)
			if err != nil {
				return nil, err
			}
			segs[i] = seg
		}
		results = append(results, segs)
	}
	return results, nil
}
