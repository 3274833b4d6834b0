package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/noesis/core"
)

// File format identifiers. The index and side table carry a shared save
// generation; a load rejects a pair whose generations disagree.
const (
	indexMagic    = "NVIX"
	textsMagic    = "NVTX"
	formatVersion = byte(1)
)

// TextsSuffix plus the save generation is appended to the index path to
// locate the side table, e.g. index.nvix.texts.3.
const TextsSuffix = ".texts"

func textsPath(path string, gen uint64) string {
	return fmt.Sprintf("%s%s.%d", path, TextsSuffix, gen)
}

// Save serializes the index to path and the id→text side table to a
// generation-suffixed sibling file. The side table lands first under the
// new generation's name, leaving the previous pair untouched; the index
// rename is the single commit point. A crash anywhere in between leaves
// the old index still referencing the old side table, so the previous
// snapshot stays loadable. Superseded side tables are removed only after
// the commit.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveGen++

	if err := writeFileAtomic(textsPath(path, s.saveGen), s.encodeTexts()); err != nil {
		s.saveGen--
		return err
	}
	if err := writeFileAtomic(path, s.encodeIndex()); err != nil {
		s.saveGen--
		return err
	}

	s.removeStaleSideTables(path)

	s.logger.Debug("saved vector index", "path", path, "live", s.live, "generation", s.saveGen)
	return nil
}

// removeStaleSideTables deletes side tables of generations other than the
// current one. Failures are logged, not returned: a leftover file is
// harmless and the next save retries.
func (s *Store) removeStaleSideTables(path string) {
	matches, err := filepath.Glob(path + TextsSuffix + ".*")
	if err != nil {
		return
	}
	keep := textsPath(path, s.saveGen)
	for _, m := range matches {
		if m == keep {
			continue
		}
		if err := os.Remove(m); err != nil {
			s.logger.Warn("failed to remove stale side table", "path", m, "error", err)
		}
	}
}

// Load replaces the store's contents with a previously saved pair of
// files. The loaded dimension and metric must match the store's
// configuration.
func (s *Store) Load(path string) error {
	indexData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading index %s: %w", core.ErrStorageIO, path, err)
	}
	loaded, err := decodeIndex(indexData)
	if err != nil {
		return err
	}

	// The index names the generation; side tables from interrupted saves
	// sit under other generation suffixes and are ignored.
	sidePath := textsPath(path, loaded.saveGen)
	textsData, err := os.ReadFile(sidePath)
	if err != nil {
		return fmt.Errorf("%w: reading side table %s: %w", core.ErrStorageIO, sidePath, err)
	}
	texts, textsGen, err := decodeTexts(textsData)
	if err != nil {
		return err
	}
	if textsGen != loaded.saveGen {
		return fmt.Errorf("%w: index generation %d does not match side table generation %d",
			core.ErrStorageIO, loaded.saveGen, textsGen)
	}
	if loaded.dim != s.dim {
		return fmt.Errorf("%w: stored dimension %d, store configured with %d",
			core.ErrDimensionMismatch, loaded.dim, s.dim)
	}
	if loaded.metric != s.metric {
		return fmt.Errorf("%w: stored metric %q, store configured with %q",
			core.ErrInvalidInput, loaded.metric, s.metric)
	}

	byID := make(map[int64]int, len(loaded.records))
	live := 0
	for i := range loaded.records {
		byID[loaded.records[i].ID] = i
		if !loaded.records[i].Deleted {
			live++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = loaded.records
	s.texts = texts
	s.byID = byID
	s.nextID = loaded.nextID
	s.live = live
	s.saveGen = loaded.saveGen

	s.logger.Debug("loaded vector index", "path", path, "live", live)
	return nil
}

func (s *Store) encodeIndex() []byte {
	size := len(indexMagic) + 1
	size += varint.Uint64.Size(s.saveGen)
	size += varint.Int.Size(s.dim)
	size += ord.String.Size(string(s.metric))
	size += varint.Int64.Size(s.nextID)
	size += varint.Int.Size(len(s.records))
	for i := range s.records {
		size += core.VectorRecordMUS.Size(s.records[i])
	}

	bs := make([]byte, size)
	n := copy(bs, indexMagic)
	bs[n] = formatVersion
	n++
	n += varint.Uint64.Marshal(s.saveGen, bs[n:])
	n += varint.Int.Marshal(s.dim, bs[n:])
	n += ord.String.Marshal(string(s.metric), bs[n:])
	n += varint.Int64.Marshal(s.nextID, bs[n:])
	n += varint.Int.Marshal(len(s.records), bs[n:])
	for i := range s.records {
		n += core.VectorRecordMUS.Marshal(s.records[i], bs[n:])
	}
	return bs
}

func (s *Store) encodeTexts() []byte {
	ids := make([]int64, 0, len(s.texts))
	for id := range s.texts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	size := len(textsMagic) + 1
	size += varint.Uint64.Size(s.saveGen)
	size += varint.Int.Size(len(ids))
	for _, id := range ids {
		size += varint.Int64.Size(id)
		size += ord.String.Size(s.texts[id])
	}

	bs := make([]byte, size)
	n := copy(bs, textsMagic)
	bs[n] = formatVersion
	n++
	n += varint.Uint64.Marshal(s.saveGen, bs[n:])
	n += varint.Int.Marshal(len(ids), bs[n:])
	for _, id := range ids {
		n += varint.Int64.Marshal(id, bs[n:])
		n += ord.String.Marshal(s.texts[id], bs[n:])
	}
	return bs
}

type loadedIndex struct {
	saveGen uint64
	dim     int
	metric  Metric
	nextID  int64
	records []core.VectorRecord
}

func decodeIndex(bs []byte) (*loadedIndex, error) {
	bs, err := checkHeader(bs, indexMagic)
	if err != nil {
		return nil, err
	}

	var (
		loaded loadedIndex
		n, n1  int
		metric string
		count  int
	)
	if loaded.saveGen, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return nil, fmt.Errorf("%w: corrupt index header: %w", core.ErrStorageIO, err)
	}
	if loaded.dim, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return nil, fmt.Errorf("%w: corrupt index header: %w", core.ErrStorageIO, err)
	}
	n += n1
	if metric, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, fmt.Errorf("%w: corrupt index header: %w", core.ErrStorageIO, err)
	}
	n += n1
	loaded.metric = Metric(metric)
	if loaded.nextID, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return nil, fmt.Errorf("%w: corrupt index header: %w", core.ErrStorageIO, err)
	}
	n += n1
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return nil, fmt.Errorf("%w: corrupt index header: %w", core.ErrStorageIO, err)
	}
	n += n1

	loaded.records = make([]core.VectorRecord, 0, count)
	for i := 0; i < count; i++ {
		rec, n1, err := core.VectorRecordMUS.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt record %d: %w", core.ErrStorageIO, i, err)
		}
		n += n1
		loaded.records = append(loaded.records, rec)
	}
	return &loaded, nil
}

func decodeTexts(bs []byte) (map[int64]string, uint64, error) {
	bs, err := checkHeader(bs, textsMagic)
	if err != nil {
		return nil, 0, err
	}

	var (
		n, n1 int
		gen   uint64
		count int
	)
	if gen, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return nil, 0, fmt.Errorf("%w: corrupt side table header: %w", core.ErrStorageIO, err)
	}
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return nil, 0, fmt.Errorf("%w: corrupt side table header: %w", core.ErrStorageIO, err)
	}
	n += n1

	texts := make(map[int64]string, count)
	for i := 0; i < count; i++ {
		id, n1, err := varint.Int64.Unmarshal(bs[n:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: corrupt side table entry %d: %w", core.ErrStorageIO, i, err)
		}
		n += n1
		text, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: corrupt side table entry %d: %w", core.ErrStorageIO, i, err)
		}
		n += n1
		texts[id] = text
	}
	return texts, gen, nil
}

func checkHeader(bs []byte, magic string) ([]byte, error) {
	if len(bs) < len(magic)+1 || string(bs[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: not a %s file", core.ErrStorageIO, magic)
	}
	if bs[len(magic)] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", core.ErrStorageIO, bs[len(magic)])
	}
	return bs[len(magic)+1:], nil
}

// writeFileAtomic writes data to a temporary file in the target directory,
// syncs it, and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", core.ErrStorageIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorageIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", core.ErrStorageIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing %s: %w", core.ErrStorageIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", core.ErrStorageIO, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: renaming %s: %w", core.ErrStorageIO, tmpName, err)
	}
	return nil
}
