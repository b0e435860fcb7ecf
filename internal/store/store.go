// Package store persists story memories. Every backend stores the whole
// turn history of a story and hands back a freshly validated Memory on load.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atmb4u/gamegirl/internal/story"
)

var (
	ErrNotFound = errors.New("save not found")
	// ErrDiverged means the memory being saved has fewer turns than the
	// stored copy, i.e. it is not a continuation of it.
	ErrDiverged = errors.New("memory diverged from stored history")
	// ErrExists means the save location is taken by a different story.
	ErrExists = errors.New("save already exists")
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// Store saves and loads story memories.
type Store interface {
	Save(ctx context.Context, m *story.Memory) error
	// Load accepts a story ID or name; the file backend also accepts a path.
	Load(ctx context.Context, ref string) (*story.Memory, error)
	List(ctx context.Context) ([]Summary, error)
	Close() error
}

// Summary describes a save without its full history.
type Summary struct {
	ID        string
	Name      string
	Turns     int
	Character string
	Plot      string
	UpdatedAt time.Time
	// File is the save file name, file backend only.
	File string
	// Err is set for a save that exists but cannot be read.
	Err error
}

func summarize(m *story.Memory) Summary {
	return Summary{
		ID:        m.ID(),
		Name:      m.Name(),
		Turns:     m.Len(),
		Character: characterName(m.Profile().Character),
		Plot:      m.Plot(),
		UpdatedAt: m.UpdatedAt(),
	}
}

func characterName(c story.Choice) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Choice
}

var storyName = regexp.MustCompile(`^story_(\d+)$`)

// NextName returns story_<N> with N one past the highest numbered save,
// counting both story names and save file names.
func NextName(saves []Summary) string {
	highest := 0
	for _, s := range saves {
		for _, name := range []string{s.Name, strings.TrimSuffix(s.File, filepath.Ext(s.File))} {
			m := storyName.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}
	return fmt.Sprintf("story_%d", highest+1)
}

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Dir           string
	Format        story.Format
	SQLitePath    string
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string
}

// Open builds the configured backend.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(cfg.Dir, cfg.Format)
	case BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case BackendSupabase:
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable)
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
