package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

// Role is the speaker of a prompt turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one chat message.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is everything sent to the extractor for one batch.
type Prompt struct {
	System   string `json:"system"`
	Examples []Turn `json:"examples,omitempty"`
	User     string `json:"user"`
}

// Messages returns the few-shot turns followed by the user turn.
func (p Prompt) Messages() []Turn {
	out := make([]Turn, 0, len(p.Examples)+1)
	out = append(out, p.Examples...)
	out = append(out, Turn{Role: RoleUser, Content: p.User})
	return out
}

// Render flattens the prompt into a single string, for debug logs and single-string transports.
func (p Prompt) Render() string {
	var b strings.Builder
	b.WriteString("[system]\n")
	b.WriteString(p.System)
	b.WriteString("\n")
	for _, t := range p.Messages() {
		b.WriteString("\n[")
		b.WriteString(string(t.Role))
		b.WriteString("]\n")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// DefaultSystemHeader is the instruction block used unless PromptOptions.SystemHeader overrides it.
const DefaultSystemHeader = `You are an assistant specializing in extracting structured insights from user reviews.
Your goal is to identify key entities, classify sentiment, and avoid redundant entity creation.

Key responsibilities:
- Extract entities: identify the aspects, features, themes and topics the reviews talk about.
- Standardize names: group synonyms and near-duplicates under one entity name.
- Assign sentiment: classify each mention as positive or negative. Ignore neutral statements.
- Track occurrences: record each review ID under the sentiment it expresses for the entity.

Focus on the meaning and implication of each review, not just keywords. A request for a missing
feature counts as negative sentiment toward that feature.`

// outputContract is always appended to the system header so custom headers can't drop it.
const outputContract = `Output format:
Return only a JSON object mapping each entity name to
{"positive_review_ids": [int, ...], "negative_review_ids": [int, ...]}.
Use the numeric part of the review tags as IDs. Reuse names from the existing entity list exactly as
written whenever they apply. Do not wrap the JSON in markdown or add commentary.`

// PromptOptions configures BuildPrompt.
type PromptOptions struct {
	// SystemHeader replaces DefaultSystemHeader when non-empty.
	SystemHeader string

	// Examples replaces DefaultExamples when non-nil. An empty non-nil slice sends no examples.
	Examples []FewShotExample
}

// BuildPrompt assembles the prompt for one batch. It is pure: the same inputs always produce the
// same prompt.
func BuildPrompt(existing []string, batch []Review, opts PromptOptions) Prompt {
	header := strings.TrimSpace(opts.SystemHeader)
	if header == "" {
		header = DefaultSystemHeader
	}
	examples := opts.Examples
	if examples == nil {
		examples = DefaultExamples()
	}

	p := Prompt{
		System: header + "\n\n" + outputContract,
		User:   userMessage(existing, batch),
	}
	for _, ex := range examples {
		p.Examples = append(p.Examples,
			Turn{Role: RoleUser, Content: userMessage(nil, ex.Reviews)},
			Turn{Role: RoleAssistant, Content: ex.Output.String()},
		)
	}
	return p
}

func userMessage(existing []string, batch []Review) string {
	var b strings.Builder
	b.WriteString("The following entities have been identified from previous reviews.\n")
	b.WriteString("Please refer to and reuse these entities wherever applicable to avoid creating duplicates:\n")
	b.WriteString(formatVocabulary(existing))
	b.WriteString("\n\nYou are tasked with extracting entities/themes/topics and their corresponding sentiment from the new set of reviews:\n")
	b.WriteString(FormatReviews(batch))
	return b.String()
}

func formatVocabulary(existing []string) string {
	if existing == nil {
		existing = []string{}
	}
	b, err := json.Marshal(existing)
	if err != nil {
		// []string always marshals.
		panic(err)
	}
	return string(b)
}

// FormatReviews renders one "review-<id>: <text>" line per review.
func FormatReviews(batch []Review) string {
	var b strings.Builder
	for i, r := range batch {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "review-%d: %s", r.ID, fileutils.SingleLine(r.Text))
	}
	return b.String()
}
