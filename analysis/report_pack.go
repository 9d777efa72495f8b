package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

type ReportPackOptions struct {
	OutDir    string
	MaxBytes  int // default ~100KB
	Overwrite bool

	// SampleReviews quotes up to this many review texts per sentiment under each entity (0 = none).
	SampleReviews int

	// Top limits the pack to the highest-ranked entities (0 = all).
	Top int
}

// WriteReportShards renders ranked entities as markdown shards of at most ~MaxBytes each and returns
// the index records with ShardFile/Anchor set. src may be nil when SampleReviews is 0.
func WriteReportShards(store *Store, src *ReviewSource, opts ReportPackOptions) ([]EntityIndexRecord, error) {
	if opts.OutDir == "" {
		return nil, errors.New("WriteReportShards: OutDir is empty")
	}
	if store == nil {
		return nil, errors.New("WriteReportShards: store is nil")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 100 * 1024
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("WriteReportShards: mkdir OutDir: %w", err)
	}

	ranked := BuildEntityIndex(store)
	if opts.Top > 0 && len(ranked) > opts.Top {
		ranked = ranked[:opts.Top]
	}

	var (
		shardNum     = 1
		curr         strings.Builder
		currBytes    = 0
		currFilename = ""
		index        = make([]EntityIndexRecord, 0, len(ranked))
	)

	flush := func() error {
		if currBytes == 0 {
			return nil
		}
		outPath := filepath.Join(opts.OutDir, currFilename)
		if !opts.Overwrite {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("WriteReportShards: shard exists: %s", outPath)
			}
		}
		if err := fileutils.WriteFileAtomic(outPath, []byte(curr.String()), 0o644); err != nil {
			return fmt.Errorf("WriteReportShards: write shard: %w", err)
		}
		shardNum++
		curr.Reset()
		currBytes = 0
		currFilename = ""
		return nil
	}

	for _, rec := range ranked {
		es, _ := store.Get(rec.Entity)
		section, anchor := renderEntityMarkdown(rec, es, src, opts.SampleReviews)

		if currBytes > 0 && currBytes+len(section) > opts.MaxBytes {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		if currBytes == 0 {
			currFilename = reportShardName(shardNum)
			header := fmt.Sprintf("# Entity Sentiment Report %04d\n\n", shardNum)
			curr.WriteString(header)
			currBytes += len(header)
		}
		curr.WriteString(section)
		currBytes += len(section)

		rec.ShardFile = currFilename
		rec.Anchor = anchor
		index = append(index, rec)
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return index, nil
}

func reportShardName(n int) string {
	return fmt.Sprintf("report_%04d.md", n)
}

func renderEntityMarkdown(rec EntityIndexRecord, es EntitySentiment, src *ReviewSource, samples int) (section string, anchor string) {
	anchor = fmt.Sprintf("entity-%d-%s", rec.Position, sanitizeAnchor(rec.Entity))

	var b strings.Builder
	fmt.Fprintf(&b, "<a id=\"%s\"></a>\n", anchor)
	fmt.Fprintf(&b, "## %d. %s\n\n", rec.Rank, escapeMarkdownInline(rec.Entity))
	fmt.Fprintf(&b, "- mentions: `%d` (positive `%d`, negative `%d`)\n", rec.Mentions, rec.PositiveCount, rec.NegativeCount)
	fmt.Fprintf(&b, "- net_sentiment: `%+.2f`\n\n", rec.NetSentiment)

	writeIDs := func(label string, ids []int) {
		if len(ids) == 0 {
			return
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(&b, "**%s**: %s\n\n", label, strings.Join(parts, ", "))
		if samples <= 0 || src == nil {
			return
		}
		for i, id := range ids {
			if i >= samples {
				break
			}
			text, ok := src.Lookup(id)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "> review-%d: %s\n", id, escapeMarkdownInline(fileutils.Truncate(text, 280)))
		}
		b.WriteString("\n")
	}
	writeIDs("positive_review_ids", es.Positive)
	writeIDs("negative_review_ids", es.Negative)

	b.WriteString("---\n\n")
	return b.String(), anchor
}

func sanitizeAnchor(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		} else {
			out.WriteByte('-')
		}
	}
	if a := strings.Trim(out.String(), "-"); a != "" {
		return a
	}
	return "entity"
}

func escapeMarkdownInline(s string) string {
	return fileutils.SingleLine(s)
}
