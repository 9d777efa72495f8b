package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

const (
	fieldPositive       = "positive_review_ids"
	fieldNegative       = "negative_review_ids"
	fieldPositiveLegacy = "positive_reviews"
	fieldNegativeLegacy = "negative_reviews"
	wrapperField        = "entity_sentiment_map"
	listShapeField      = "entities"

	// maxReviewID bounds ids to integers a float64 holds exactly.
	maxReviewID = 1 << 53
)

var (
	payloadSchemaOnce sync.Once
	payloadSchema     *gojsonschema.Schema
	payloadSchemaErr  error
)

// PayloadSchema returns the JSON Schema of a batch response: an object mapping entity names to
// ReportEntry objects.
func PayloadSchema() (map[string]any, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	entry := r.Reflect(&ReportEntry{})
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("PayloadSchema: marshal entry schema: %w", err)
	}
	var entryMap map[string]any
	if err := json.Unmarshal(b, &entryMap); err != nil {
		return nil, fmt.Errorf("PayloadSchema: unmarshal entry schema: %w", err)
	}
	delete(entryMap, "$schema")
	delete(entryMap, "$id")

	return map[string]any{
		"type":                 "object",
		"description":          "Entity name to the review IDs mentioning it positively and negatively.",
		"additionalProperties": entryMap,
	}, nil
}

func compiledPayloadSchema() (*gojsonschema.Schema, error) {
	payloadSchemaOnce.Do(func() {
		m, err := PayloadSchema()
		if err != nil {
			payloadSchemaErr = err
			return
		}
		payloadSchema, payloadSchemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(m))
	})
	return payloadSchema, payloadSchemaErr
}

type rawField struct {
	key   string
	value json.RawMessage
}

type normalizedEntry struct {
	name     string
	positive []any
	negative []any
}

// ParseExtraction turns a raw model response into an Extraction.
//
// Code fences and surrounding prose are stripped. The accepted document is an object mapping entity
// names to {positive_review_ids, negative_review_ids}; the legacy positive_reviews/negative_reviews
// names, a single entity_sentiment_map wrapper, and the list form {"entities":[{"name":...}]} are
// also accepted. Missing or null lists default to empty. Entities keep document order; repeated names
// are unioned. Anything else is a *ParseError.
func ParseExtraction(raw string) (Extraction, error) {
	text, err := fileutils.ExtractJSONObject(raw)
	if err != nil {
		return Extraction{}, &ParseError{Reason: "no JSON object in response", Raw: raw, Err: err}
	}

	fields, err := decodeOrderedObject([]byte(text))
	if err != nil {
		return Extraction{}, &ParseError{Reason: "top-level value is not an object", Raw: raw, Err: err}
	}
	if len(fields) == 1 && fields[0].key == wrapperField {
		inner, err := decodeOrderedObject(fields[0].value)
		if err != nil {
			return Extraction{}, &ParseError{Reason: wrapperField + " is not an object", Raw: raw, Err: err}
		}
		fields = inner
	}

	var entries []normalizedEntry
	if len(fields) == 1 && fields[0].key == listShapeField && isJSONArray(fields[0].value) {
		entries, err = normalizeListShape(fields[0].value)
	} else {
		entries, err = normalizeMapShape(fields)
	}
	if err != nil {
		return Extraction{}, &ParseError{Reason: "unexpected entity shape", Raw: raw, Err: err}
	}

	order := make([]string, 0, len(entries))
	doc := make(map[string]any, len(entries))
	for _, e := range entries {
		prev, ok := doc[e.name].(map[string]any)
		if !ok {
			order = append(order, e.name)
			doc[e.name] = map[string]any{fieldPositive: e.positive, fieldNegative: e.negative}
			continue
		}
		prev[fieldPositive] = append(prev[fieldPositive].([]any), e.positive...)
		prev[fieldNegative] = append(prev[fieldNegative].([]any), e.negative...)
	}

	if err := validatePayload(doc); err != nil {
		return Extraction{}, &ParseError{Reason: "schema validation failed", Raw: raw, Err: err}
	}

	ex := Extraction{Entities: make([]EntityMention, 0, len(order))}
	for _, name := range order {
		rec := doc[name].(map[string]any)
		pos, err := toIDs(rec[fieldPositive].([]any))
		if err != nil {
			return Extraction{}, &ParseError{Reason: fmt.Sprintf("entity %q positive ids", name), Raw: raw, Err: err}
		}
		neg, err := toIDs(rec[fieldNegative].([]any))
		if err != nil {
			return Extraction{}, &ParseError{Reason: fmt.Sprintf("entity %q negative ids", name), Raw: raw, Err: err}
		}
		ex.Entities = append(ex.Entities, EntityMention{Name: name, Positive: pos, Negative: neg})
	}
	return ex, nil
}

func validatePayload(doc map[string]any) error {
	schema, err := compiledPayloadSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

// decodeOrderedObject reads a JSON object's members in document order.
func decodeOrderedObject(data []byte) ([]rawField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected '{', got %v", tok)
	}
	var out []rawField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", keyTok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode value for %q: %w", key, err)
		}
		out = append(out, rawField{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read closing '}': %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after object")
	}
	return out, nil
}

func isJSONArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func normalizeMapShape(fields []rawField) ([]normalizedEntry, error) {
	out := make([]normalizedEntry, 0, len(fields))
	for _, f := range fields {
		name := f.key
		if strings.TrimSpace(name) == "" {
			continue
		}
		var v any
		if err := json.Unmarshal(f.value, &v); err != nil {
			return nil, fmt.Errorf("entity %q: %w", name, err)
		}
		if v == nil {
			out = append(out, normalizedEntry{name: name, positive: []any{}, negative: []any{}})
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entity %q: value is %s, want object", name, jsonKind(v))
		}
		e, err := normalizeEntry(name, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func normalizeListShape(raw json.RawMessage) ([]normalizedEntry, error) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", listShapeField, err)
	}
	out := make([]normalizedEntry, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: value is %s, want object", listShapeField, i, jsonKind(it))
		}
		name, _ := obj["name"].(string)
		if name == "" {
			name, _ = obj["entity"].(string)
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		e, err := normalizeEntry(name, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func normalizeEntry(name string, obj map[string]any) (normalizedEntry, error) {
	pos, err := collectIDs(obj, fieldPositive, fieldPositiveLegacy)
	if err != nil {
		return normalizedEntry{}, fmt.Errorf("entity %q: %w", name, err)
	}
	neg, err := collectIDs(obj, fieldNegative, fieldNegativeLegacy)
	if err != nil {
		return normalizedEntry{}, fmt.Errorf("entity %q: %w", name, err)
	}
	return normalizedEntry{name: name, positive: pos, negative: neg}, nil
}

// collectIDs unions the lists found under any of keys. Missing and null lists are empty.
func collectIDs(obj map[string]any, keys ...string) ([]any, error) {
	out := []any{}
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s is %s, want array", k, jsonKind(v))
		}
		for _, item := range list {
			out = append(out, coerceID(item))
		}
	}
	return out, nil
}

// coerceID turns "12" and "review-12" into 12; everything else is left for the schema to judge.
func coerceID(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "review-")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return v
	}
	return float64(n)
}

func toIDs(list []any) ([]int, error) {
	set := idSet{}
	for _, v := range list {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("id %v is %s, want integer", v, jsonKind(v))
		}
		if f != math.Trunc(f) || f < 0 {
			return nil, fmt.Errorf("id %v is not a non-negative integer", v)
		}
		if f >= maxReviewID {
			return nil, fmt.Errorf("id %v is out of range", v)
		}
		set.add(int(f))
	}
	return set.sorted(), nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
