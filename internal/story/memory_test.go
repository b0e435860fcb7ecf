package story

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixClock(t *testing.T) {
	t.Helper()
	base := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	tick := 0
	prev := now
	now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	t.Cleanup(func() { now = prev })
}

func sampleMemory(t *testing.T) *Memory {
	t.Helper()
	m := New("story_1")
	require.NoError(t, m.SetProfile(ProfileCharacter, Choice{Emoji: "🎻", Name: "Mira", Choice: "A violinist who lost her hearing", ChoiceType: "character"}))
	require.NoError(t, m.SetProfile(ProfileSetting, Choice{Choice: "A flooded Lisbon"}))
	require.NoError(t, m.SetProfile(ProfileMotivation, Choice{Name: "Debt", Choice: "Repay her brother"}))
	_, err := m.AppendTurn(Turn{
		Offered:     []Choice{{Emoji: "🚪", Name: "Door", Choice: "Open the cellar door"}},
		Action:      "Open the cellar door",
		Consequence: "Water rushes in.",
		Plot:        "Mira enters the cellar.",
		Prose:       "Mira pushed the door.",
	})
	require.NoError(t, err)
	_, err = m.AppendTurn(Turn{
		Action:      "Swim to the stairs",
		Custom:      true,
		Consequence: "She reaches the landing.",
		Plot:        "Mira escapes the flood.",
		Prose:       "Mira pushed the door. She swam.",
	})
	require.NoError(t, err)
	m.RecordQuestion("Who owns the house?", "Her brother.")
	return m
}

func TestAppendTurnNumbersSequentially(t *testing.T) {
	fixClock(t)
	m := sampleMemory(t)

	turns := m.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, 1, turns[0].Number)
	assert.Equal(t, 2, turns[1].Number)
	assert.Equal(t, 3, m.NextTurn())
	assert.Equal(t, "Mira escapes the flood.", m.Plot())
	assert.Equal(t, "Mira pushed the door. She swam.", m.Prose())
}

func TestLastTurn(t *testing.T) {
	fixClock(t)
	_, ok := New("story_1").LastTurn()
	assert.False(t, ok)

	m := sampleMemory(t)
	last, ok := m.LastTurn()
	require.True(t, ok)
	assert.Equal(t, 2, last.Number)
	assert.Equal(t, "Swim to the stairs", last.Action)
	assert.True(t, last.Custom)
}

func TestAppendTurnRejectsOutOfOrder(t *testing.T) {
	m := New("story_1")

	_, err := m.AppendTurn(Turn{Number: 2, Action: "jump"})
	assert.ErrorIs(t, err, ErrTurnOrder)
	assert.Equal(t, 0, m.Len())

	_, err = m.AppendTurn(Turn{Number: 1, Action: "jump"})
	require.NoError(t, err)
	_, err = m.AppendTurn(Turn{Number: 1, Action: "jump again"})
	assert.ErrorIs(t, err, ErrTurnOrder)
	assert.Equal(t, 1, m.Len())
}

func TestAppendTurnRejectsEmptyAction(t *testing.T) {
	m := New("story_1")
	_, err := m.AppendTurn(Turn{Action: "   "})
	assert.ErrorIs(t, err, ErrEmptyAction)
	assert.Equal(t, 0, m.Version())
}

func TestAppendTurnDoesNotAlterPriorTurns(t *testing.T) {
	fixClock(t)
	m := sampleMemory(t)
	before := m.Turns()

	_, err := m.AppendTurn(Turn{Action: "Light a match", Plot: "p", Prose: "q"})
	require.NoError(t, err)

	after := m.Turns()
	if diff := cmp.Diff(before, after[:2]); diff != "" {
		t.Fatalf("prior turns changed (-before +after):\n%s", diff)
	}
}

func TestTurnsReturnsCopies(t *testing.T) {
	fixClock(t)
	m := sampleMemory(t)

	turns := m.Turns()
	turns[0].Action = "rewritten"
	turns[0].Offered[0].Name = "rewritten"

	first, ok := m.Turn(1)
	require.True(t, ok)
	assert.Equal(t, "Open the cellar door", first.Action)
	assert.Equal(t, "Door", first.Offered[0].Name)
}

func TestAppendTurnCopiesInput(t *testing.T) {
	m := New("story_1")
	offered := []Choice{{Name: "A"}}
	_, err := m.AppendTurn(Turn{Action: "go", Offered: offered})
	require.NoError(t, err)

	offered[0].Name = "B"
	got, _ := m.Turn(1)
	assert.Equal(t, "A", got.Offered[0].Name)
}

func TestSetProfileLockedAfterFirstTurn(t *testing.T) {
	m := New("story_1")
	require.NoError(t, m.SetProfile(ProfileCharacter, Choice{Choice: "A"}))
	_, err := m.AppendTurn(Turn{Action: "go"})
	require.NoError(t, err)

	err = m.SetProfile(ProfileCharacter, Choice{Choice: "B"})
	assert.ErrorIs(t, err, ErrProfileLocked)
	c, ok := m.ProfileChoice(ProfileCharacter)
	assert.True(t, ok)
	assert.Equal(t, "A", c.Choice)
}

func TestSetProfileUnknownKind(t *testing.T) {
	m := New("story_1")
	assert.ErrorIs(t, m.SetProfile("villain", Choice{}), ErrUnknownProfile)
}

func TestHistoryTracksEveryMutation(t *testing.T) {
	fixClock(t)
	m := sampleMemory(t)

	hist := m.History()
	keys := make([]string, len(hist))
	for i, r := range hist {
		keys[i] = r.Key
		assert.Equal(t, i+1, r.Version)
	}
	assert.Equal(t, []string{"character", "setting", "motivation", "turns", "turns", "user_questions"}, keys)
	assert.Equal(t, 6, m.Version())
}

func TestRecordQuestionPointsAtCurrentTurn(t *testing.T) {
	m := New("story_1")
	q := m.RecordQuestion("why?", "because")
	assert.Equal(t, 0, q.AfterTurn)

	_, err := m.AppendTurn(Turn{Action: "go"})
	require.NoError(t, err)
	q = m.RecordQuestion("and now?", "still because")
	assert.Equal(t, 1, q.AfterTurn)
	assert.Len(t, m.Questions(), 2)
}

func TestRestoreRejectsInvalidSnapshots(t *testing.T) {
	fixClock(t)
	valid := sampleMemory(t).Snapshot()

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"missing id", func(s *Snapshot) { s.ID = "" }},
		{"gap in turns", func(s *Snapshot) { s.Turns[1].Number = 3 }},
		{"reordered turns", func(s *Snapshot) { s.Turns[0], s.Turns[1] = s.Turns[1], s.Turns[0] }},
		{"empty action", func(s *Snapshot) { s.Turns[0].Action = "" }},
		{"question after future turn", func(s *Snapshot) { s.Questions[0].AfterTurn = 9 }},
		{"history not increasing", func(s *Snapshot) { s.History[2].Version = 1 }},
		{"version behind history", func(s *Snapshot) { s.Version = 2 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := valid
			snap.Turns = append([]Turn(nil), valid.Turns...)
			snap.Questions = append([]Question(nil), valid.Questions...)
			snap.History = append([]Revision(nil), valid.History...)
			tc.mutate(&snap)

			m, err := Restore(snap)
			assert.ErrorIs(t, err, ErrMalformedSave)
			assert.Nil(t, m)
		})
	}
}

func TestChoiceLabel(t *testing.T) {
	assert.Equal(t, "run", Choice{Choice: "run"}.Label())
	assert.Equal(t, "Flee - run", Choice{Name: "Flee", Choice: "run"}.Label())
	assert.Equal(t, "🏃 - Flee - run", Choice{Emoji: "🏃", Name: "Flee", Choice: "run"}.Label())
}
