package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Review is one input text. ID is its zero-based position in the original collection and stays
// stable across runs over the same source, even when other rows are dropped.
type Review struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Sentiment selects one of the two ID sets kept per entity.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
)

// ParseSentiment accepts "positive"/"negative" (and the "_reviews" suffixed forms).
func ParseSentiment(s string) (Sentiment, error) {
	switch s {
	case "positive", "positive_reviews", "positive_review_ids":
		return Positive, nil
	case "negative", "negative_reviews", "negative_review_ids":
		return Negative, nil
	default:
		return "", fmt.Errorf("unknown sentiment %q (want positive|negative)", s)
	}
}

// EntityMention is one entity as returned by the model for a single batch.
// ID lists are deduplicated and sorted.
type EntityMention struct {
	Name     string
	Positive []int
	Negative []int
}

// Extraction is the parsed model output for one batch. Entities keep the order in which the model
// listed them; that order decides how new names are appended to the vocabulary.
type Extraction struct {
	Entities []EntityMention
}

// Names returns entity names in extraction order.
func (e Extraction) Names() []string {
	out := make([]string, 0, len(e.Entities))
	for _, m := range e.Entities {
		out = append(out, m.Name)
	}
	return out
}

// ReviewIDs returns every review ID referenced by the extraction, sorted and deduplicated.
func (e Extraction) ReviewIDs() []int {
	set := idSet{}
	for _, m := range e.Entities {
		set.add(m.Positive...)
		set.add(m.Negative...)
	}
	return set.sorted()
}

// IDsOutside returns referenced IDs that are not part of batch, sorted.
func (e Extraction) IDsOutside(batch []Review) []int {
	in := make(map[int]struct{}, len(batch))
	for _, r := range batch {
		in[r.ID] = struct{}{}
	}
	var out []int
	for _, id := range e.ReviewIDs() {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// ReportEntry is the persisted shape of one entity record; ID lists are written sorted.
type ReportEntry struct {
	PositiveReviewIDs []int `json:"positive_review_ids" jsonschema:"required,description=IDs of reviews expressing positive sentiment about the entity"`
	NegativeReviewIDs []int `json:"negative_review_ids" jsonschema:"required,description=IDs of reviews expressing negative sentiment about the entity"`
}

// Report is the persisted aggregate: entity name to its review-ID sets.
type Report map[string]ReportEntry

// MarshalJSON writes the canonical response shape with entities in extraction order.
func (e Extraction) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range e.Entities {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(m.Name)
		if err != nil {
			return nil, err
		}
		entry, err := json.Marshal(ReportEntry{PositiveReviewIDs: nonNil(m.Positive), NegativeReviewIDs: nonNil(m.Negative)})
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(entry)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (e Extraction) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<extraction: %v>", err)
	}
	return string(b)
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
