package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmb4u/gamegirl/internal/story"
)

// wordCounter counts whitespace separated words, which keeps budgets easy to
// reason about in tests.
type wordCounter struct{}

func (wordCounter) Count(s string) int { return len(strings.Fields(s)) }

func memoryWithTurns(t *testing.T, n int) *story.Memory {
	t.Helper()
	m := story.New("story_1")
	require.NoError(t, m.SetProfile(story.ProfileCharacter, story.Choice{Emoji: "🧭", Name: "Ines", Choice: "A cartographer"}))
	require.NoError(t, m.SetProfile(story.ProfileSetting, story.Choice{Choice: "An island that moves"}))
	for i := 1; i <= n; i++ {
		_, err := m.AppendTurn(story.Turn{
			Action:      fmt.Sprintf("action %d", i),
			Consequence: fmt.Sprintf("consequence %d", i),
			Plot:        fmt.Sprintf("plot %d", i),
			Prose:       fmt.Sprintf("prose up to %d", i),
		})
		require.NoError(t, err)
	}
	return m
}

func TestNextChoicesInterpolatesMemory(t *testing.T) {
	m := memoryWithTurns(t, 2)
	out, err := NewBuilder().NextChoices(m)
	require.NoError(t, err)

	assert.Contains(t, out, "Story summary: plot 2")
	assert.Contains(t, out, "Character: 🧭 - Ines - A cartographer")
	assert.Contains(t, out, "Setting: An island that moves")
	assert.Contains(t, out, "Motivation: (not chosen yet)")
	assert.Contains(t, out, "Prose: prose up to 2")
	assert.Contains(t, out, "1. action 1 -> consequence 1")
	assert.Contains(t, out, "2. action 2 -> consequence 2")
}

func TestNextChoicesOnEmptyStory(t *testing.T) {
	out, err := NewBuilder().NextChoices(story.New("story_1"))
	require.NoError(t, err)
	assert.Contains(t, out, "(the story has not started yet)")
	assert.NotContains(t, out, "Recent actions")
}

func TestRecentActionsWindow(t *testing.T) {
	m := memoryWithTurns(t, 6)
	out, err := NewBuilder(WithRecentActions(2)).Consequence(m, "dig")
	require.NoError(t, err)

	assert.Contains(t, out, "Action: dig")
	assert.Contains(t, out, "5. action 5")
	assert.Contains(t, out, "6. action 6")
	assert.NotContains(t, out, "4. action 4")
}

func TestQuestionPrompt(t *testing.T) {
	m := memoryWithTurns(t, 1)
	out, err := NewBuilder().Question(m, "Where is the map?")
	require.NoError(t, err)
	assert.Contains(t, out, "Question: Where is the map?")
	assert.Contains(t, out, "Story so far: prose up to 1")
}

func TestInitialOptionsPrompt(t *testing.T) {
	out, err := NewBuilder().InitialOptions("", story.ProfileSetting)
	require.NoError(t, err)
	assert.Contains(t, out, "(a brand new story)")
	assert.Contains(t, out, `choice_type ("setting")`)
}

func TestProfileContext(t *testing.T) {
	m := memoryWithTurns(t, 0)
	assert.Equal(t, "Character: 🧭 - Ines - A cartographer\nSetting: An island that moves", ProfileContext(m))
	assert.Equal(t, "", ProfileContext(story.New("x")))
}

func TestFitProseKeepsRecentParagraphs(t *testing.T) {
	b := NewBuilder(WithProseBudget(wordCounter{}, 6))
	prose := "one two three\n\nfour five six\n\nseven eight"

	got := b.FitProse(prose)
	assert.Equal(t, "… four five six\n\nseven eight", got)
	assert.LessOrEqual(t, wordCounter{}.Count(got), 6)
}

func TestFitProseFallsBackToSentences(t *testing.T) {
	b := NewBuilder(WithProseBudget(wordCounter{}, 4))
	got := b.FitProse("First long sentence here. Second one. Third.")
	assert.Equal(t, "… Second one. Third.", got)
}

func TestFitProseSplitsLastParagraphIntoSentences(t *testing.T) {
	b := NewBuilder(WithProseBudget(wordCounter{}, 4))
	got := b.FitProse("one two three\n\nLong opening sentence here. Then this. End.")
	assert.Equal(t, "… Then this. End.", got)
}

func TestFitProseCutsSingleLongUnit(t *testing.T) {
	b := NewBuilder(WithProseBudget(ApproxCounter{}, 5))
	got := b.FitProse(strings.Repeat("x", 200))
	assert.True(t, strings.HasPrefix(got, trimMarker))
	assert.LessOrEqual(t, ApproxCounter{}.Count(got), 5)
}

func TestFitProseWithinBudgetUnchanged(t *testing.T) {
	b := NewBuilder(WithProseBudget(wordCounter{}, 100))
	assert.Equal(t, "short story", b.FitProse("short story"))
	assert.Equal(t, "no budget at all", NewBuilder().FitProse("no budget at all"))
}

func TestApproxCounter(t *testing.T) {
	assert.Equal(t, 0, ApproxCounter{}.Count(""))
	assert.Equal(t, 1, ApproxCounter{}.Count("abcd"))
	assert.Equal(t, 2, ApproxCounter{}.Count("abcde"))
}
