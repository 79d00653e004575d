// Package levelfs stores levels as text files named level<N>.txt in one
// directory.
package levelfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"codelevels/internal/domain/level"
	"codelevels/internal/ports"
)

var levelFilePattern = regexp.MustCompile(`^level([1-9][0-9]*)\.txt$`)

// Store reads level files from a directory on every call.
type Store struct {
	dir string
}

var _ ports.LevelStore = (*Store)(nil)

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file path for level id.
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("level%d.txt", id))
}

// Load reads and parses level id.
func (s *Store) Load(ctx context.Context, id int) (level.Level, error) {
	if err := ctx.Err(); err != nil {
		return level.Level{}, err
	}
	if id <= 0 {
		return level.Level{}, fmt.Errorf("level %d: %w", id, ports.ErrLevelNotFound)
	}

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return level.Level{}, fmt.Errorf("level %d: %w", id, ports.ErrLevelNotFound)
		}
		return level.Level{}, fmt.Errorf("read level %d: %w", id, err)
	}

	return level.Parse(string(data)), nil
}

// Count returns how many level files exist in the directory right now.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("list levels: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() && levelFilePattern.MatchString(entry.Name()) {
			count++
		}
	}
	return count, nil
}

// Save writes lvl as level id. It is used by tooling and tests; the web
// service never mutates levels.
func (s *Store) Save(id int, lvl level.Level) error {
	if id <= 0 {
		return fmt.Errorf("save level %d: id must be positive", id)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create level dir: %w", err)
	}
	if err := os.WriteFile(s.Path(id), []byte(level.Format(lvl)), 0o644); err != nil {
		return fmt.Errorf("write level %d: %w", id, err)
	}
	return nil
}
