package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

// EntityIndexRecord is one JSONL row of the entity index.
type EntityIndexRecord struct {
	Entity        string  `json:"entity"`
	Rank          int     `json:"rank"`
	Position      int     `json:"vocabulary_position"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
	Mentions      int     `json:"mentions"`
	NetSentiment  float64 `json:"net_sentiment"`

	// ShardFile and Anchor are filled in when the markdown pack is written.
	ShardFile string `json:"shard_file,omitempty"`
	Anchor    string `json:"anchor,omitempty"`
}

// BuildEntityIndex ranks entities by mention count (descending), then vocabulary position.
func BuildEntityIndex(store *Store) []EntityIndexRecord {
	if store == nil {
		return nil
	}
	ents := store.Entities()
	out := make([]EntityIndexRecord, 0, len(ents))
	for pos, e := range ents {
		r := EntityIndexRecord{
			Entity:        e.Name,
			Position:      pos,
			PositiveCount: e.PositiveCount(),
			NegativeCount: e.NegativeCount(),
			Mentions:      e.Mentions(),
		}
		if r.Mentions > 0 {
			r.NetSentiment = float64(r.PositiveCount-r.NegativeCount) / float64(r.Mentions)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Position < out[j].Position
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// WriteJSONL writes one JSON document per line, atomically.
func WriteJSONL[T any](path string, records []T, overwrite bool) error {
	if path == "" {
		return errors.New("WriteJSONL: path is empty")
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("WriteJSONL: file exists: %s", path)
		}
	}

	var b strings.Builder
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("WriteJSONL: marshal: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := fileutils.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("WriteJSONL: %w", err)
	}
	return nil
}

// UnattendedReview is one JSONL row of the unattended-review listing.
type UnattendedReview struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// UnattendedReviews pairs unattended IDs with their texts from src.
func UnattendedReviews(c Coverage, src *ReviewSource) []UnattendedReview {
	out := make([]UnattendedReview, 0, len(c.Unattended))
	for _, id := range c.Unattended {
		text, _ := src.Lookup(id)
		out = append(out, UnattendedReview{ID: id, Text: text})
	}
	return out
}

// EntityReviews returns the reviews recorded for an entity under one sentiment, sorted by ID.
// IDs that src doesn't contain are returned with empty text.
func EntityReviews(store *Store, src *ReviewSource, entity string, sentiment Sentiment) ([]Review, error) {
	if store == nil {
		return nil, errors.New("EntityReviews: store is nil")
	}
	if _, ok := store.Get(entity); !ok {
		return nil, fmt.Errorf("EntityReviews: unknown entity %q", entity)
	}
	ids := store.ReviewIDs(entity, sentiment)
	out := make([]Review, 0, len(ids))
	for _, id := range ids {
		text, _ := src.Lookup(id)
		out = append(out, Review{ID: id, Text: text})
	}
	return out, nil
}
