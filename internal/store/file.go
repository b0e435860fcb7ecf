package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atmb4u/gamegirl/internal/story"
)

var knownExts = []string{".json", ".yaml", ".yml", ".gsg"}

// FileStore keeps one save file per story in a directory.
type FileStore struct {
	dir    string
	format story.Format
	// paths remembers where a loaded story came from so it is saved back
	// to the same file.
	paths map[string]string
}

func NewFileStore(dir string, format story.Format) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if format == "" {
		format = story.FormatJSON
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{dir: filepath.Clean(dir), format: format, paths: make(map[string]string)}, nil
}

// PathFor is the file a memory is written to.
func (s *FileStore) PathFor(m *story.Memory) string {
	if p, ok := s.paths[m.ID()]; ok {
		return p
	}
	return filepath.Join(s.dir, m.Name()+s.format.Ext())
}

func (s *FileStore) Save(ctx context.Context, m *story.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.PathFor(m)
	if _, known := s.paths[m.ID()]; !known {
		if err := claim(path, m.ID()); err != nil {
			return err
		}
	}
	format, ok := story.FormatFromPath(path)
	if !ok {
		format = s.format
	}
	data, err := story.Encode(format, m)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	s.paths[m.ID()] = path
	return nil
}

func (s *FileStore) Load(ctx context.Context, ref string) (*story.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	m, err := readSave(path)
	if err != nil {
		return nil, err
	}
	s.paths[m.ID()] = path
	return m, nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read save dir: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !hasKnownExt(e.Name()) {
			continue
		}
		m, err := readSave(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// Unreadable saves are listed so their names are never reused.
			sum := Summary{Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), File: e.Name(), Err: err}
			if info, err := e.Info(); err == nil {
				sum.UpdatedAt = info.ModTime()
			}
			out = append(out, sum)
			continue
		}
		sum := summarize(m)
		sum.File = e.Name()
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) resolve(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	var candidates []string
	if hasKnownExt(ref) || strings.ContainsRune(ref, filepath.Separator) {
		candidates = append(candidates, ref)
		if !filepath.IsAbs(ref) {
			candidates = append(candidates, filepath.Join(s.dir, ref))
		}
	} else {
		for _, ext := range knownExts {
			candidates = append(candidates, filepath.Join(s.dir, ref+ext))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// claim refuses to write over a file that holds another story or cannot be
// read.
func claim(path, id string) error {
	existing, err := readSave(path)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("%w: %s: %v", ErrExists, path, err)
	case existing.ID() != id:
		return fmt.Errorf("%w: %s holds story %s", ErrExists, path, existing.ID())
	}
	return nil
}

func readSave(path string) (*story.Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format, ok := story.FormatFromPath(path)
	if !ok {
		format = story.FormatJSON
	}
	m, err := story.Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

func hasKnownExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, k := range knownExts {
		if ext == k {
			return true
		}
	}
	return false
}

// writeFileAtomic writes through a temp file in the same directory so a
// crash never leaves a half-written save behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
