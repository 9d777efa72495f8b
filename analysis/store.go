package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type idSet map[int]struct{}

func (s idSet) add(ids ...int) int {
	added := 0
	for _, id := range ids {
		if _, ok := s[id]; ok {
			continue
		}
		s[id] = struct{}{}
		added++
	}
	return added
}

func (s idSet) sorted() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// EntitySentiment holds the positive and negative review-ID sets for one entity.
// Counts are always derived from the sets; an ID may appear in both.
type EntitySentiment struct {
	Positive []int `json:"positive_review_ids"`
	Negative []int `json:"negative_review_ids"`
}

func (e EntitySentiment) PositiveCount() int { return len(e.Positive) }
func (e EntitySentiment) NegativeCount() int { return len(e.Negative) }
func (e EntitySentiment) Mentions() int { return len(e.Positive) + len(e.Negative) }

// EntityRecord pairs a name with its sentiment sets.
type EntityRecord struct {
	Name string
	EntitySentiment
}

type entityState struct {
	positive idSet
	negative idSet
}

func (st *entityState) snapshot() EntitySentiment {
	return EntitySentiment{Positive: st.positive.sorted(), Negative: st.negative.sorted()}
}

// Store is the in-memory aggregate of a run: per-entity sentiment sets, the insertion-ordered
// vocabulary, and the batch cursor. It is not safe for concurrent use; runs are single-writer.
type Store struct {
	entities     map[string]*entityState
	vocab        []string
	batchSize    *int
	lastBatchIdx *int
}

func NewStore() *Store {
	return &Store{entities: map[string]*entityState{}}
}

// Merge unions positive and negative into the named entity, creating it (and appending the name to the
// vocabulary) if unseen. Re-merging IDs already present is a no-op. Returns true if the name was new.
func (s *Store) Merge(name string, positive, negative []int) bool {
	st, ok := s.entities[name]
	if !ok {
		st = &entityState{positive: idSet{}, negative: idSet{}}
		s.entities[name] = st
		s.vocab = append(s.vocab, name)
	}
	st.positive.add(positive...)
	st.negative.add(negative...)
	return !ok
}

// MergeExtraction merges every entity of a batch in extraction order and returns the names that were
// appended to the vocabulary, in first-encountered order.
func (s *Store) MergeExtraction(ex Extraction) []string {
	var added []string
	for _, m := range ex.Entities {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		if s.Merge(m.Name, m.Positive, m.Negative) {
			added = append(added, m.Name)
		}
	}
	return added
}

// Get returns a copy of the entity's sets.
func (s *Store) Get(name string) (EntitySentiment, bool) {
	st, ok := s.entities[name]
	if !ok {
		return EntitySentiment{}, false
	}
	return st.snapshot(), true
}

// ReviewIDs returns the sorted IDs recorded for an entity under one sentiment, or nil if the entity is unknown.
func (s *Store) ReviewIDs(name string, sentiment Sentiment) []int {
	st, ok := s.entities[name]
	if !ok {
		return nil
	}
	switch sentiment {
	case Positive:
		return st.positive.sorted()
	case Negative:
		return st.negative.sorted()
	default:
		return nil
	}
}

// Entities returns all records in vocabulary order.
func (s *Store) Entities() []EntityRecord {
	out := make([]EntityRecord, 0, len(s.vocab))
	for _, name := range s.vocab {
		st, ok := s.entities[name]
		if !ok {
			continue
		}
		out = append(out, EntityRecord{Name: name, EntitySentiment: st.snapshot()})
	}
	return out
}

// Names returns a copy of the vocabulary in insertion order.
func (s *Store) Names() []string {
	return append([]string(nil), s.vocab...)
}

func (s *Store) Len() int { return len(s.vocab) }

// CoveredReviewIDs returns every review ID referenced by any entity, sorted.
func (s *Store) CoveredReviewIDs() []int {
	set := idSet{}
	for _, st := range s.entities {
		for id := range st.positive {
			set.add(id)
		}
		for id := range st.negative {
			set.add(id)
		}
	}
	return set.sorted()
}

// BatchSize reports the fixed batch size, if one has been recorded.
func (s *Store) BatchSize() (int, bool) {
	if s.batchSize == nil {
		return 0, false
	}
	return *s.batchSize, true
}

// LastBatchIdx returns a copy of the cursor, or nil if no batch has completed.
func (s *Store) LastBatchIdx() *int {
	if s.lastBatchIdx == nil {
		return nil
	}
	v := *s.lastBatchIdx
	return &v
}

// EnsureBatchSize records size on first use; afterwards a different size is a *ConfigError
// wrapping ErrBatchSizeMismatch.
func (s *Store) EnsureBatchSize(size int) error {
	if size <= 0 {
		return &ConfigError{Field: "batch_size", Err: fmt.Errorf("must be > 0 (got %d)", size)}
	}
	if s.batchSize == nil {
		v := size
		s.batchSize = &v
		return nil
	}
	if *s.batchSize != size {
		return &ConfigError{
			Field: "batch_size",
			Err:   fmt.Errorf("%w: checkpoint was written with %d, requested %d", ErrBatchSizeMismatch, *s.batchSize, size),
		}
	}
	return nil
}

// Advance moves the cursor to a completed batch start. start must be a multiple of the batch size and
// beyond the current cursor.
func (s *Store) Advance(start int) error {
	if s.batchSize == nil {
		return errors.New("Advance: batch size not set")
	}
	if start < 0 || start%*s.batchSize != 0 {
		return fmt.Errorf("Advance: start %d is not a multiple of batch size %d", start, *s.batchSize)
	}
	if s.lastBatchIdx != nil && start <= *s.lastBatchIdx {
		return fmt.Errorf("Advance: start %d does not move past cursor %d", start, *s.lastBatchIdx)
	}
	v := start
	s.lastBatchIdx = &v
	return nil
}

// Report returns the persisted shape of the aggregate.
func (s *Store) Report() Report {
	out := make(Report, len(s.entities))
	for name, st := range s.entities {
		out[name] = ReportEntry{PositiveReviewIDs: st.positive.sorted(), NegativeReviewIDs: st.negative.sorted()}
	}
	return out
}

// Checkpoint returns the cursor state to persist alongside the report.
func (s *Store) Checkpoint() Checkpoint {
	return Checkpoint{
		BatchSize:        copyIntPtr(s.batchSize),
		LastBatchIdx:     copyIntPtr(s.lastBatchIdx),
		ExistingEntities: s.Names(),
	}
}

// RestoreStore rebuilds a Store from persisted state. Vocabulary order comes from the checkpoint;
// report entities missing from it are appended in name order, and vocabulary names with no report
// record get empty sets.
func RestoreStore(cp Checkpoint, report Report) (*Store, error) {
	if cp.BatchSize != nil && *cp.BatchSize <= 0 {
		return nil, fmt.Errorf("RestoreStore: batch_size must be > 0 (got %d)", *cp.BatchSize)
	}
	if cp.LastBatchIdx != nil {
		if cp.BatchSize == nil {
			return nil, errors.New("RestoreStore: last_batch_idx set without batch_size")
		}
		if *cp.LastBatchIdx < 0 || *cp.LastBatchIdx%*cp.BatchSize != 0 {
			return nil, fmt.Errorf("RestoreStore: last_batch_idx %d is not a multiple of batch_size %d", *cp.LastBatchIdx, *cp.BatchSize)
		}
	}

	s := NewStore()
	s.batchSize = copyIntPtr(cp.BatchSize)
	s.lastBatchIdx = copyIntPtr(cp.LastBatchIdx)

	for _, name := range cp.ExistingEntities {
		if _, ok := s.entities[name]; ok || name == "" {
			continue
		}
		s.Merge(name, nil, nil)
	}

	extra := make([]string, 0)
	for name := range report {
		if _, ok := s.entities[name]; !ok && name != "" {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		s.Merge(name, nil, nil)
	}
	for name, e := range report {
		if name == "" {
			continue
		}
		s.Merge(name, e.PositiveReviewIDs, e.NegativeReviewIDs)
	}
	return s, nil
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
