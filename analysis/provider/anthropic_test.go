package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

func TestAnthropicExtractor_MapsTurnsAndJoinsText(t *testing.T) {
	t.Parallel()

	var got struct {
		System   []map[string]any `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [{"type": "text", "text": "{\"Battery\": {\"negative_review_ids\": [1]}}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`)
	}))
	defer srv.Close()

	client := anthropic.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	ext, err := NewAnthropicExtractor(&client, AnthropicOptions{Retry: NoRetry()})
	if err != nil {
		t.Fatalf("NewAnthropicExtractor: %v", err)
	}

	p := analysis.BuildPrompt(nil, []analysis.Review{{ID: 1, Text: "bad battery"}}, analysis.PromptOptions{})
	raw, err := ext.Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ex, err := analysis.ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if len(ex.Entities) != 1 || ex.Entities[0].Name != "Battery" {
		t.Fatalf("entities=%v", ex.Entities)
	}

	if len(got.System) != 1 || got.System[0]["text"] != p.System {
		t.Fatalf("system=%v", got.System)
	}
	if len(got.Messages) != len(p.Messages()) {
		t.Fatalf("len(messages)=%d", len(got.Messages))
	}
	if got.Messages[1].Role != "assistant" || got.Messages[len(got.Messages)-1].Role != "user" {
		t.Fatalf("roles=%v", got.Messages)
	}
}

func TestAnthropicExtractor_EmptyContentIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"max_tokens","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	client := anthropic.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	ext, err := NewAnthropicExtractor(&client, AnthropicOptions{})
	if err != nil {
		t.Fatalf("NewAnthropicExtractor: %v", err)
	}
	if _, err := ext.Extract(context.Background(), analysis.Prompt{System: "s", User: "u"}); err == nil {
		t.Fatalf("expected error")
	}
}
