package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmb4u/gamegirl/internal/story"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"file-json", func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), story.FormatJSON)
			require.NoError(t, err)
			return s
		}},
		{"file-yaml", func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), story.FormatYAML)
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "gamegirl.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
	}
}

func sampleMemory(t *testing.T, name string, turns int) *story.Memory {
	t.Helper()
	m := story.New(name)
	require.NoError(t, m.SetProfile(story.ProfileCharacter, story.Choice{Emoji: "🦉", Name: "Odile", Choice: "A retired judge", ChoiceType: "character"}))
	require.NoError(t, m.SetProfile(story.ProfileSetting, story.Choice{Choice: "A night train"}))
	for i := 0; i < turns; i++ {
		appendTurn(t, m)
	}
	m.RecordQuestion("Who boarded at Lyon?", "A man with no luggage.")
	return m
}

func appendTurn(t *testing.T, m *story.Memory) {
	t.Helper()
	n := m.NextTurn()
	_, err := m.AppendTurn(story.Turn{
		Offered:     []story.Choice{{Emoji: "🚪", Name: "Door", Choice: "Try the door", ChoiceType: "action"}},
		Action:      "Try the door",
		Custom:      n%2 == 0,
		Consequence: "It opens.",
		Plot:        "Odile explores carriage " + string(rune('A'+n)),
		Prose:       "Odile walked.",
	})
	require.NoError(t, err)
}

func assertSameMemory(t *testing.T, want, got *story.Memory) {
	t.Helper()
	if diff := cmp.Diff(want.Snapshot(), got.Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("memory mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			m := sampleMemory(t, "story_1", 3)

			require.NoError(t, s.Save(ctx, m))

			byID, err := s.Load(ctx, m.ID())
			if b.name == "file-json" || b.name == "file-yaml" {
				// File saves are addressed by name or path.
				require.ErrorIs(t, err, ErrNotFound)
			} else {
				require.NoError(t, err)
				assertSameMemory(t, m, byID)
			}

			byName, err := s.Load(ctx, "story_1")
			require.NoError(t, err)
			assertSameMemory(t, m, byName)
		})
	}
}

func TestStoreAppendsAcrossSaves(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			m := sampleMemory(t, "story_1", 1)
			require.NoError(t, s.Save(ctx, m))

			loaded, err := s.Load(ctx, "story_1")
			require.NoError(t, err)
			appendTurn(t, loaded)
			appendTurn(t, loaded)
			require.NoError(t, s.Save(ctx, loaded))

			again, err := s.Load(ctx, "story_1")
			require.NoError(t, err)
			assert.Equal(t, 3, again.Len())
			assertSameMemory(t, loaded, again)

			first, _ := again.Turn(1)
			orig, _ := m.Turn(1)
			if diff := cmp.Diff(orig, first, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("first turn changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreRejectsShorterHistory(t *testing.T) {
	for _, b := range backends() {
		if b.name == "file-json" || b.name == "file-yaml" {
			continue
		}
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			m := sampleMemory(t, "story_1", 1)
			require.NoError(t, s.Save(ctx, m))

			stale, err := s.Load(ctx, "story_1")
			require.NoError(t, err)

			appendTurn(t, m)
			require.NoError(t, s.Save(ctx, m))

			assert.ErrorIs(t, s.Save(ctx, stale), ErrDiverged)

			got, err := s.Load(ctx, "story_1")
			require.NoError(t, err)
			assert.Equal(t, 2, got.Len())
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.open(t).Load(context.Background(), "story_404")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreList(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			require.NoError(t, s.Save(ctx, sampleMemory(t, "story_1", 2)))
			require.NoError(t, s.Save(ctx, sampleMemory(t, "story_4", 0)))

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)

			byName := map[string]Summary{}
			for _, sum := range list {
				byName[sum.Name] = sum
			}
			assert.Equal(t, 2, byName["story_1"].Turns)
			assert.Equal(t, "Odile", byName["story_1"].Character)
			assert.NotEmpty(t, byName["story_1"].Plot)
			assert.Equal(t, 0, byName["story_4"].Turns)
			assert.Equal(t, "story_5", NextName(list))
		})
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			assert.ErrorIs(t, s.Save(ctx, story.New("story_1")), context.Canceled)
			_, err := s.List(ctx)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestNextName(t *testing.T) {
	assert.Equal(t, "story_1", NextName(nil))
	assert.Equal(t, "story_13", NextName([]Summary{
		{Name: "story_2"}, {Name: "story_12"}, {Name: "my adventure"}, {Name: "story_x"},
	}))
	assert.Equal(t, "story_8", NextName([]Summary{
		{Name: "story_1", File: "story_7.json"}, {Name: "story_3", File: "story_3.yaml"},
	}))
}

func TestFileStoreLoadsByPathAndSavesBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	legacy := filepath.Join(dir, "saves", "old_game.gsg")

	m := sampleMemory(t, "story_9", 1)
	data, err := story.Encode(story.FormatJSON, m)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(legacy), 0o755))
	require.NoError(t, os.WriteFile(legacy, data, 0o644))

	s, err := NewFileStore(dir, story.FormatYAML)
	require.NoError(t, err)
	loaded, err := s.Load(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, legacy, s.PathFor(loaded))

	appendTurn(t, loaded)
	require.NoError(t, s.Save(ctx, loaded))

	raw, err := os.ReadFile(legacy)
	require.NoError(t, err)
	again, err := story.Decode(story.FormatJSON, raw)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Len())

	_, err = os.Stat(filepath.Join(dir, "story_9.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreMalformedSaveFailsCleanly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "story_1.json"), []byte(`{"format":"gamegirl-save","schema":1,"memory":{"id":"x","turns":[{"number":3,"action":"a"}]}}`), 0o644))

	s, err := NewFileStore(dir, story.FormatJSON)
	require.NoError(t, err)
	m, err := s.Load(context.Background(), "story_1")
	assert.ErrorIs(t, err, story.ErrMalformedSave)
	assert.Nil(t, m)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "story_1", list[0].Name)
	assert.ErrorIs(t, list[0].Err, story.ErrMalformedSave)
}

func TestFileStoreNeverOverwritesAnotherSave(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	broken := filepath.Join(dir, "story_1.json")
	data := []byte(`{"format":"gamegirl-save","schema":2,"memory":{}}`)
	require.NoError(t, os.WriteFile(broken, data, 0o644))

	s, err := NewFileStore(dir, story.FormatJSON)
	require.NoError(t, err)
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "story_2", NextName(list))

	assert.ErrorIs(t, s.Save(ctx, story.New("story_1")), ErrExists)
	raw, err := os.ReadFile(broken)
	require.NoError(t, err)
	assert.Equal(t, data, raw)

	// A readable save of a different story is protected too.
	require.NoError(t, s.Save(ctx, sampleMemory(t, "story_2", 1)))
	other, err := NewFileStore(dir, story.FormatJSON)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Save(ctx, story.New("story_2")), ErrExists)

	got, err := other.Load(ctx, "story_2")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, story.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleMemory(t, "story_1", 1)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "story_1.json", entries[0].Name())
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(Config{Backend: "floppy"})
	assert.Error(t, err)

	_, err = Open(Config{Backend: BackendSupabase})
	assert.Error(t, err)
}

func TestSupabaseRowRoundTrip(t *testing.T) {
	m := sampleMemory(t, "story_2", 2)
	row, err := rowFor(m)
	require.NoError(t, err)

	assert.Equal(t, m.ID(), row.ID)
	assert.Equal(t, 2, row.Turns)
	assert.Equal(t, "Odile", row.Character)

	got, err := row.memory()
	require.NoError(t, err)
	assertSameMemory(t, m, got)

	_, err = supabaseRow{ID: "x"}.memory()
	assert.ErrorIs(t, err, story.ErrMalformedSave)
}
