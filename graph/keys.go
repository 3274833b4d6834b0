package graph

import (
	"encoding/binary"

	"github.com/mus-format/mus-go/ord"
)

// Key prefixes. Node payloads live under doc/ent; edges live in
// composite-key indexes with forward and reverse orientations; vmp/vmr
// hold the document↔vector-id mapping.
const (
	documentPrefix        = "doc:"
	entityPrefix          = "ent:"
	mentionPrefix         = "men:" // men:<docID><entityID>
	mentionReversePrefix  = "mnr:" // mnr:<entityID><docID>
	relationPrefix        = "rel:" // rel:<srcID><relType><dstID>
	relationReversePrefix = "rlr:" // rlr:<dstID><srcID><relType>
	vectorMapPrefix       = "vmp:" // vmp:<docID> -> vector id
	vectorReversePrefix   = "vmr:" // vmr:<vector id BE> -> doc id
)

// appendSegment appends a length-prefixed string segment to a key.
// Length prefixing keeps composite keys unambiguous for ids that contain
// separator-like characters, while preserving prefix scans per segment.
func appendSegment(key []byte, seg string) []byte {
	off := len(key)
	key = append(key, make([]byte, ord.String.Size(seg))...)
	ord.String.Marshal(seg, key[off:])
	return key
}

// readSegment decodes one length-prefixed segment starting at key[off:].
func readSegment(key []byte, off int) (string, int, error) {
	seg, n, err := ord.String.Unmarshal(key[off:])
	return seg, off + n, err
}

func makeDocumentKey(docID string) []byte {
	return appendSegment([]byte(documentPrefix), docID)
}

func makeEntityKey(entityID string) []byte {
	return appendSegment([]byte(entityPrefix), entityID)
}

func makeMentionKey(docID, entityID string) []byte {
	return appendSegment(appendSegment([]byte(mentionPrefix), docID), entityID)
}

func makeMentionPrefix(docID string) []byte {
	return appendSegment([]byte(mentionPrefix), docID)
}

func makeMentionReverseKey(entityID, docID string) []byte {
	return appendSegment(appendSegment([]byte(mentionReversePrefix), entityID), docID)
}

func makeMentionReversePrefix(entityID string) []byte {
	return appendSegment([]byte(mentionReversePrefix), entityID)
}

func makeRelationKey(srcID, relationType, dstID string) []byte {
	key := appendSegment([]byte(relationPrefix), srcID)
	key = appendSegment(key, relationType)
	return appendSegment(key, dstID)
}

// makeRelationPrefix covers all outgoing relations of srcID; with a
// non-empty relationType it narrows to that relation only.
func makeRelationPrefix(srcID, relationType string) []byte {
	key := appendSegment([]byte(relationPrefix), srcID)
	if relationType != "" {
		key = appendSegment(key, relationType)
	}
	return key
}

func makeRelationReverseKey(dstID, srcID, relationType string) []byte {
	key := appendSegment([]byte(relationReversePrefix), dstID)
	key = appendSegment(key, srcID)
	return appendSegment(key, relationType)
}

func makeRelationReversePrefix(dstID string) []byte {
	return appendSegment([]byte(relationReversePrefix), dstID)
}

func makeVectorMapKey(docID string) []byte {
	return appendSegment([]byte(vectorMapPrefix), docID)
}

func makeVectorReverseKey(vectorID int64) []byte {
	key := make([]byte, len(vectorReversePrefix)+8)
	copy(key, vectorReversePrefix)
	// BigEndian so keys sort by vector id
	binary.BigEndian.PutUint64(key[len(vectorReversePrefix):], uint64(vectorID))
	return key
}
