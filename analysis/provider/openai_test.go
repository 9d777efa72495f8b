package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

func TestOpenAIExtractor_SendsPromptAndReturnsParsableText(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1,
  "status": "completed",
  "model": "gpt-4o-mini",
  "output": [{
    "id": "msg_1",
    "type": "message",
    "role": "assistant",
    "status": "completed",
    "content": [{"type": "output_text", "text": "{\"entities\":[{\"name\":\"Sound\",\"positive_review_ids\":[0],\"negative_review_ids\":[]}]}", "annotations": []}]
  }]
}`)
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	ext, err := NewOpenAIExtractor(&client, OpenAIOptions{Model: "gpt-4o-mini", Retry: NoRetry()})
	if err != nil {
		t.Fatalf("NewOpenAIExtractor: %v", err)
	}

	p := analysis.BuildPrompt([]string{"Sound"}, []analysis.Review{{ID: 0, Text: "great sound"}}, analysis.PromptOptions{})
	raw, err := ext.Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ex, err := analysis.ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction(%q): %v", raw, err)
	}
	if len(ex.Entities) != 1 || ex.Entities[0].Name != "Sound" {
		t.Fatalf("entities=%v", ex.Entities)
	}

	if got["instructions"] != p.System {
		t.Fatalf("instructions=%v", got["instructions"])
	}
	input, _ := got["input"].([]any)
	// examples + developer override + user turn
	if want := len(p.Examples) + 2; len(input) != want {
		t.Fatalf("len(input)=%d want=%d", len(input), want)
	}
	if _, ok := got["service_tier"]; ok {
		t.Fatalf("service_tier set without FlexTier")
	}
	text, _ := got["text"].(map[string]any)
	format, _ := text["format"].(map[string]any)
	if format["type"] != "json_schema" || format["strict"] != true {
		t.Fatalf("format=%v", format)
	}
}

func TestOpenAIExtractor_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad schema","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	ext, err := NewOpenAIExtractor(&client, OpenAIOptions{Retry: DefaultRetryPolicy()})
	if err != nil {
		t.Fatalf("NewOpenAIExtractor: %v", err)
	}
	_, err = ext.Extract(context.Background(), analysis.Prompt{System: "s", User: "u"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if statusCode(err) != http.StatusBadRequest {
		t.Fatalf("status=%d err=%v", statusCode(err), err)
	}
}
