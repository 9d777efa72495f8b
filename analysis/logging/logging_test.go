package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, false, false)
	log.Debug().Msg("hidden")
	log.Info().Str("batch", "3").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line at info level: %s", out)
	}
	if !strings.Contains(out, `"batch":"3"`) || !strings.Contains(out, `"time":`) {
		t.Fatalf("out=%s", out)
	}
}

func TestNew_DebugHuman(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, true, true)
	log.Debug().Msg("visible debug")

	out := buf.String()
	if !strings.Contains(out, "visible debug") {
		t.Fatalf("out=%s", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got JSON: %s", out)
	}
}

func TestWithRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := WithRun(New(&buf, false, false), "review-analyzer", "abc")
	log.Info().Msg("x")
	if !strings.Contains(buf.String(), `"run_id":"abc"`) || !strings.Contains(buf.String(), `"tool":"review-analyzer"`) {
		t.Fatalf("out=%s", buf.String())
	}
}
