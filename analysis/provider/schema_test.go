package provider

import (
	"sort"
	"testing"
)

func TestEntityListSchema_IsStrict(t *testing.T) {
	t.Parallel()

	s := entityListSchema
	if s["type"] != "object" || s["additionalProperties"] != false {
		t.Fatalf("root=%v", s)
	}
	if _, ok := s["$schema"]; ok {
		t.Fatalf("unexpected $schema key")
	}
	props := s["properties"].(map[string]interface{})
	entities := props["entities"].(map[string]interface{})
	if entities["type"] != "array" {
		t.Fatalf("entities=%v", entities)
	}
	item := entities["items"].(map[string]interface{})
	if item["additionalProperties"] != false {
		t.Fatalf("item not closed: %v", item)
	}
	req := append([]string(nil), item["required"].([]string)...)
	sort.Strings(req)
	want := []string{"name", "negative_review_ids", "positive_review_ids"}
	if len(req) != len(want) {
		t.Fatalf("required=%v", req)
	}
	for i := range want {
		if req[i] != want[i] {
			t.Fatalf("required=%v", req)
		}
	}
}
