package analysis

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReviewSource is the ordered review collection the planner slices into batches.
// Reviews with empty text are excluded, but the remaining reviews keep their original IDs.
type ReviewSource struct {
	reviews []Review
	total   int
}

// NewReviewSource builds a source from raw texts; the ID of each text is its index in texts.
func NewReviewSource(texts []string) *ReviewSource {
	src := &ReviewSource{total: len(texts)}
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		src.reviews = append(src.reviews, Review{ID: i, Text: t})
	}
	return src
}

// Len is the number of non-empty reviews (the planner's N).
func (s *ReviewSource) Len() int {
	if s == nil {
		return 0
	}
	return len(s.reviews)
}

// Total is the number of rows in the original collection, including dropped empty ones.
func (s *ReviewSource) Total() int {
	if s == nil {
		return 0
	}
	return s.total
}

// Slice returns reviews at positions [start, end) of the filtered collection.
func (s *ReviewSource) Slice(start, end int) []Review {
	if s == nil {
		return nil
	}
	if start < 0 {
		start = 0
	}
	if end > len(s.reviews) {
		end = len(s.reviews)
	}
	if start >= end {
		return nil
	}
	return append([]Review(nil), s.reviews[start:end]...)
}

// IDs returns the IDs of all non-empty reviews in order.
func (s *ReviewSource) IDs() []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s.reviews))
	for i, r := range s.reviews {
		out[i] = r.ID
	}
	return out
}

// Lookup returns the review text for an ID.
func (s *ReviewSource) Lookup(id int) (string, bool) {
	if s == nil {
		return "", false
	}
	// IDs are ascending, so binary search works even with gaps.
	lo, hi := 0, len(s.reviews)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.reviews[mid].ID == id:
			return s.reviews[mid].Text, true
		case s.reviews[mid].ID < id:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return "", false
}

// LoadOptions controls how LoadReviews reads a dataset.
type LoadOptions struct {
	// Column is the CSV header (or JSON object field) holding the review text. Defaults to "Review".
	Column string

	// ArrayField names the array inside a top-level JSON object. When empty the first array-valued
	// field is used.
	ArrayField string

	// MaxReviews keeps only the first N rows (0 = all). Dropped empty rows still count as rows.
	MaxReviews int
}

// LoadReviews reads reviews from a .csv, .jsonl/.ndjson, .json or .txt file.
//
// JSON input may be a top-level array or an object wrapping an array; array elements may be strings or
// objects carrying the text in opts.Column. The JSON array is stream-decoded and never read into
// memory at once.
func LoadReviews(ctx context.Context, path string, opts LoadOptions) (*ReviewSource, error) {
	if ctx == nil {
		return nil, errors.New("LoadReviews: ctx is nil")
	}
	if path == "" {
		return nil, errors.New("LoadReviews: path is empty")
	}
	if opts.Column == "" {
		opts.Column = "Review"
	}
	if opts.MaxReviews < 0 {
		return nil, errors.New("LoadReviews: MaxReviews must be >= 0")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadReviews: open input: %w", err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	var texts []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		texts, err = readCSVTexts(ctx, r, opts)
	case ".jsonl", ".ndjson":
		texts, err = readJSONLTexts(ctx, r, opts)
	case ".json":
		texts, err = readJSONTexts(ctx, r, opts)
	case ".txt":
		texts, err = readLineTexts(ctx, r, opts)
	default:
		return nil, fmt.Errorf("LoadReviews: unsupported input extension %q (want .csv, .json, .jsonl, .txt)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("LoadReviews: %s: %w", path, err)
	}
	return NewReviewSource(texts), nil
}

func limitReached(n int, opts LoadOptions) bool {
	return opts.MaxReviews > 0 && n >= opts.MaxReviews
}

func readCSVTexts(ctx context.Context, r io.Reader, opts LoadOptions) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")) == opts.Column {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("csv column %q not found in header %v", opts.Column, header)
	}

	var texts []string
	for !limitReached(len(texts), opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read csv row %d: %w", len(texts)+1, err)
		}
		text := ""
		if col < len(rec) {
			text = rec[col]
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func readJSONLTexts(ctx context.Context, r io.Reader, opts LoadOptions) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var texts []string
	line := 0
	for sc.Scan() && !limitReached(len(texts), opts) {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		text, err := reviewTextFromJSON(json.RawMessage(raw), opts.Column)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		texts = append(texts, text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan jsonl: %w", err)
	}
	return texts, nil
}

func readLineTexts(ctx context.Context, r io.Reader, opts LoadOptions) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var texts []string
	for sc.Scan() && !limitReached(len(texts), opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		texts = append(texts, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return texts, nil
}

func readJSONTexts(ctx context.Context, r io.Reader, opts LoadOptions) ([]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("expected JSON array/object, got %T", tok)
	}

	switch delim {
	case '[':
		return readJSONArrayFromOpen(ctx, dec, opts)
	case '{':
		for dec.More() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("expected string key, got %T", keyTok)
			}
			valTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read value token for key %q: %w", key, err)
			}

			isTarget := opts.ArrayField != "" && key == opts.ArrayField
			if !isTarget && opts.ArrayField == "" {
				if d, ok := valTok.(json.Delim); ok && d == '[' {
					isTarget = true
				}
			}
			if isTarget {
				if d, ok := valTok.(json.Delim); !ok || d != '[' {
					return nil, fmt.Errorf("key %q was chosen as array but value isn't an array", key)
				}
				return readJSONArrayFromOpen(ctx, dec, opts)
			}
			if err := skipValue(dec, valTok); err != nil {
				return nil, fmt.Errorf("skip key %q value: %w", key, err)
			}
		}
		return nil, errors.New("no reviews array found in top-level object")
	default:
		return nil, fmt.Errorf("unsupported top-level delimiter %q", delim)
	}
}

func readJSONArrayFromOpen(ctx context.Context, dec *json.Decoder, opts LoadOptions) ([]string, error) {
	var texts []string
	for dec.More() && !limitReached(len(texts), opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode review element %d: %w", len(texts), err)
		}
		text, err := reviewTextFromJSON(raw, opts.Column)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(texts), err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// reviewTextFromJSON accepts a JSON string, null, or an object carrying the text under field.
func reviewTextFromJSON(raw json.RawMessage, field string) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("unmarshal review: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case map[string]any:
		switch fv := t[field].(type) {
		case nil:
			return "", nil
		case string:
			return fv, nil
		default:
			return "", fmt.Errorf("review field %q is %T, want string", field, fv)
		}
	default:
		return "", fmt.Errorf("review element is %T, want string or object", v)
	}
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive: already consumed.
		return nil
	}
	switch d {
	case '{', '[':
	default:
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
