package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	supa "github.com/supabase-community/supabase-go"

	"github.com/atmb4u/gamegirl/internal/story"
)

const DefaultSupabaseTable = "stories"

// supabaseRow matches the stories table: a few columns for listing plus the
// full save document in a jsonb column.
type supabaseRow struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Turns     int             `json:"turns"`
	Character string          `json:"character"`
	Plot      string          `json:"plot"`
	UpdatedAt time.Time       `json:"updated_at"`
	Save      json.RawMessage `json:"save,omitempty"`
}

// SupabaseStore keeps one row per story in a Supabase table.
type SupabaseStore struct {
	client *supa.Client
	table  string
}

func NewSupabaseStore(url, key, table string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, errors.New("supabase url and key are required")
	}
	if table == "" {
		table = DefaultSupabaseTable
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to supabase: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

func rowFor(m *story.Memory) (supabaseRow, error) {
	data, err := story.Encode(story.FormatJSON, m)
	if err != nil {
		return supabaseRow{}, err
	}
	sum := summarize(m)
	return supabaseRow{
		ID:        sum.ID,
		Name:      sum.Name,
		Turns:     sum.Turns,
		Character: sum.Character,
		Plot:      sum.Plot,
		UpdatedAt: sum.UpdatedAt,
		Save:      data,
	}, nil
}

func (r supabaseRow) memory() (*story.Memory, error) {
	if len(r.Save) == 0 {
		return nil, fmt.Errorf("%w: row %s has no save", story.ErrMalformedSave, r.ID)
	}
	return story.Decode(story.FormatJSON, r.Save)
}

func (r supabaseRow) summary() Summary {
	return Summary{
		ID:        r.ID,
		Name:      r.Name,
		Turns:     r.Turns,
		Character: r.Character,
		Plot:      r.Plot,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *SupabaseStore) Save(ctx context.Context, m *story.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var existing []supabaseRow
	if _, err := s.client.From(s.table).Select("id,turns", "", false).Eq("id", m.ID()).ExecuteTo(&existing); err != nil {
		return fmt.Errorf("check story %s: %w", m.ID(), err)
	}
	if len(existing) > 0 && existing[0].Turns > m.Len() {
		return fmt.Errorf("%w: stored %d turns, saving %d", ErrDiverged, existing[0].Turns, m.Len())
	}

	row, err := rowFor(m)
	if err != nil {
		return err
	}
	var saved []supabaseRow
	if _, err := s.client.From(s.table).Insert(row, true, "id", "representation", "").ExecuteTo(&saved); err != nil {
		return fmt.Errorf("save story %s: %w", m.ID(), err)
	}
	if len(saved) == 0 {
		return fmt.Errorf("story %s was not saved, but no error was returned", m.ID())
	}
	return nil
}

func (s *SupabaseStore) Load(ctx context.Context, ref string) (*story.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	column := "name"
	if _, err := uuid.Parse(ref); err == nil {
		column = "id"
	}
	var rows []supabaseRow
	if _, err := s.client.From(s.table).Select("*", "", false).Eq(column, ref).Limit(1, "").ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("load story %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return rows[0].memory()
}

func (s *SupabaseStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []supabaseRow
	if _, err := s.client.From(s.table).Select("id,name,turns,character,plot,updated_at", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *SupabaseStore) Close() error { return nil }
