package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/carepath/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map. Records are
// lost when the process exits.
type MemoryStorage struct {
	records map[string]*memoryEntry
	seq     uint64
	mu      sync.RWMutex
}

type memoryEntry struct {
	record audit.Record
	seq    uint64
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*memoryEntry),
	}
}

// Store persists a copy of record. A record with an existing ID replaces it.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := checkRecord("memory", record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.records[record.ID] = &memoryEntry{record: *record, seq: s.seq}
	return nil
}

// Query returns copies of the records matching query.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := s.matching(query)
	s.mu.RUnlock()

	desc := query.SortOrder != audit.SortAsc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.record.RecordedAt.Equal(b.record.RecordedAt) {
			if desc {
				return a.record.RecordedAt.After(b.record.RecordedAt)
			}
			return a.record.RecordedAt.Before(b.record.RecordedAt)
		}
		if desc {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	limit := query.Limit
	if limit == 0 {
		limit = audit.DefaultLimit
	}
	if query.Offset >= len(matched) {
		return []*audit.Record{}, nil
	}
	matched = matched[query.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	results := make([]*audit.Record, len(matched))
	for i, entry := range matched {
		recordCopy := entry.record
		results[i] = &recordCopy
	}
	return results, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matching(query))), nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, entry := range s.records {
		if query.Matches(&entry.record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close discards all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*memoryEntry)
	return nil
}

// GetByID returns a copy of the record with the given ID.
func (s *MemoryStorage) GetByID(id string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.records[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	recordCopy := entry.record
	return &recordCopy, nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// matching must be called with s.mu held.
func (s *MemoryStorage) matching(query *audit.Query) []*memoryEntry {
	var out []*memoryEntry
	for _, entry := range s.records {
		if query.Matches(&entry.record) {
			out = append(out, entry)
		}
	}
	return out
}

func checkRecord(backend string, record *audit.Record) error {
	if record == nil {
		return audit.NewStorageError(backend, "store", errNilRecord)
	}
	if record.ID == "" {
		return audit.NewStorageError(backend, "store", errMissingID)
	}
	return nil
}
