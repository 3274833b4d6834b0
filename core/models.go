package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentID generates a deterministic 64-bit identifier from text using
// BLAKE2b hashing. Identical content always produces the same identifier.
func ContentID(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// EntityType categorizes an entity node in the knowledge graph.
type EntityType string

const (
	EntityTypePerson       EntityType = "person"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeLocation     EntityType = "location"
	EntityTypeConcept      EntityType = "concept"
	EntityTypeTechnology   EntityType = "technology"
	EntityTypeEvent        EntityType = "event"
	EntityTypeProduct      EntityType = "product"
	EntityTypeOther        EntityType = "other"
)

// Valid reports whether t is one of the recognized entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypePerson, EntityTypeOrganization, EntityTypeLocation,
		EntityTypeConcept, EntityTypeTechnology, EntityTypeEvent,
		EntityTypeProduct, EntityTypeOther:
		return true
	}
	return false
}

// Document represents an ingested document node. Documents are immutable
// after ingestion except for entity links; attributes are overwritten on
// re-ingestion of the same ID (upsert).
type Document struct {
	ID         string
	Title      string
	Content    string
	URL        string
	InsertedAt time.Time // When the document was first inserted
	UpdatedAt  time.Time // When the document was last upserted
}

// Entity represents a typed entity node in the knowledge graph.
type Entity struct {
	ID          string
	Name        string
	Type        EntityType
	Description string
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// RelatedEntity is an entity reached by a one-hop RELATED_TO traversal,
// together with the relation type of the edge that reached it.
type RelatedEntity struct {
	Entity       *Entity
	RelationType string
}

// EntityMention describes an entity accompanying a document at ingestion
// time. The entity is created if absent and linked with a MENTIONS edge.
type EntityMention struct {
	ID          string
	Name        string
	Type        EntityType
	Description string
}

// VectorRecord is a single entry in the vector store's index. The ID joins
// back to a document through the graph store's vector-id mapping and into
// the store's id→text side table. Deleted records are tombstones:
// unsearchable but retained until compaction.
type VectorRecord struct {
	ID      int64
	Vector  []float32
	Deleted bool
}

// VectorMatch is a single similarity search hit.
type VectorMatch struct {
	ID    int64
	Score float32
	Text  string
}

// RetrievalResult is a ranked retrieval hit with optional graph context.
// OriginalScore holds the pre-rerank similarity when Reranked is set.
type RetrievalResult struct {
	ID            int64
	Score         float32
	Content       string
	Entities      []*Entity
	OriginalScore float32
	Reranked      bool
}
