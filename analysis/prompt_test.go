package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_EmbedsVocabularyAndTaggedReviews(t *testing.T) {
	t.Parallel()

	batch := []Review{{ID: 50, Text: "Great sound"}, {ID: 53, Text: "battery\ndies fast"}}
	p := BuildPrompt([]string{"Sound", "Battery Life"}, batch, PromptOptions{})

	assert.Contains(t, p.User, `["Sound","Battery Life"]`)
	assert.Contains(t, p.User, "reuse these entities")
	assert.Contains(t, p.User, "review-50: Great sound\nreview-53: battery dies fast")
	assert.Contains(t, p.System, DefaultSystemHeader)
	assert.Contains(t, p.System, "positive_review_ids")

	msgs := p.Messages()
	require.Len(t, msgs, 2*len(DefaultExamples())+1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, Turn{Role: RoleUser, Content: p.User}, msgs[len(msgs)-1])
}

func TestBuildPrompt_IsPure(t *testing.T) {
	t.Parallel()

	vocab := []string{"Sound"}
	batch := []Review{{ID: 0, Text: "great sound"}}
	a := BuildPrompt(vocab, batch, PromptOptions{})
	b := BuildPrompt(vocab, batch, PromptOptions{})
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"Sound"}, vocab)
}

func TestBuildPrompt_EmptyVocabularyAndCustomHeader(t *testing.T) {
	t.Parallel()

	p := BuildPrompt(nil, []Review{{ID: 1, Text: "x"}}, PromptOptions{
		SystemHeader: "You analyze headphone reviews.",
		Examples:     []FewShotExample{},
	})
	assert.Contains(t, p.User, "[]")
	assert.True(t, strings.HasPrefix(p.System, "You analyze headphone reviews."))
	assert.Contains(t, p.System, "Output format:")
	assert.Empty(t, p.Examples)
}

func TestDefaultExamples_AssistantTurnsParse(t *testing.T) {
	t.Parallel()

	for _, ex := range DefaultExamples() {
		parsed, err := ParseExtraction(ex.Output.String())
		require.NoError(t, err, ex.Name)
		assert.Equal(t, ex.Output.Names(), parsed.Names(), ex.Name)
		assert.Empty(t, parsed.IDsOutside(ex.Reviews), ex.Name)
	}
}

func TestPrompt_RenderIncludesEveryTurn(t *testing.T) {
	t.Parallel()

	p := BuildPrompt(nil, []Review{{ID: 9, Text: "ads everywhere"}}, PromptOptions{})
	out := p.Render()
	assert.True(t, strings.HasPrefix(out, "[system]\n"))
	assert.Equal(t, len(DefaultExamples())+1, strings.Count(out, "[user]\n"))
	assert.Equal(t, len(DefaultExamples()), strings.Count(out, "[assistant]\n"))
	assert.Contains(t, out, "review-9: ads everywhere")
}
