package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

func TestRunMetrics_RecordsOutcomes(t *testing.T) {
	t.Parallel()

	m := NewRunMetrics("openai", "gpt-4o-mini")
	m.BatchDone(analysis.OutcomeSkipped, 0)
	m.BatchDone(analysis.OutcomeSucceeded, 50)
	m.BatchDone(analysis.OutcomeSucceeded, 7)
	m.BatchDone(analysis.OutcomeFailed, 50)
	m.ExtractDuration(1500*time.Millisecond, nil)
	m.ExtractDuration(time.Second, errors.New("boom"))
	m.EntityCount(12)

	if got := testutil.ToFloat64(m.BatchesTotal.WithLabelValues(analysis.OutcomeSucceeded)); got != 2 {
		t.Fatalf("succeeded=%v", got)
	}
	if got := testutil.ToFloat64(m.BatchesTotal.WithLabelValues(analysis.OutcomeFailed)); got != 1 {
		t.Fatalf("failed=%v", got)
	}
	if got := testutil.ToFloat64(m.ReviewsProcessed); got != 57 {
		t.Fatalf("reviews=%v", got)
	}
	if got := testutil.ToFloat64(m.Entities); got != 12 {
		t.Fatalf("entities=%v", got)
	}
	if got := testutil.CollectAndCount(m.ExtractSeconds); got != 2 {
		t.Fatalf("histogram series=%d", got)
	}
}

func TestRunMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	m := NewRunMetrics("anthropic", "claude")
	m.BatchDone(analysis.OutcomeSucceeded, 3)

	path := filepath.Join(t.TempDir(), "textfile", "review_sentiment.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `review_sentiment_batches_total{model="claude",outcome="succeeded",provider="anthropic"} 1`) {
		t.Fatalf("textfile:\n%s", out)
	}
	if !strings.Contains(out, "review_sentiment_reviews_processed_total") {
		t.Fatalf("textfile:\n%s", out)
	}
}
