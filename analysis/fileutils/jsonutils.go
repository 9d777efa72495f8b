package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StripCodeFence removes a surrounding markdown fence (```json ... ``` or ``` ... ```) if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string (json, JSON, ...) up to the first newline.
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the JSON object text inside a model response: fences are stripped and,
// if the remainder isn't valid JSON, the span from the first '{' to the last '}' is used.
func ExtractJSONObject(outputText string) (string, error) {
	s := StripCodeFence(outputText)
	if s == "" {
		return "", io.ErrUnexpectedEOF
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	sub := s[start : end+1]
	if !json.Valid([]byte(sub)) {
		return "", fmt.Errorf("extracted span is not valid JSON (len=%d)", len(sub))
	}
	return sub, nil
}
