package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
)

const fileExt = ".json"

// File stores each tree as a JSON roster document named <tree>.json in a
// directory. Writes go through a temporary file and a rename.
type File struct {
	mu  sync.RWMutex
	dir string
}

// NewFile creates the directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create store dir %s", dir)
	}
	return &File{dir: dir}, nil
}

// Dir returns the store directory.
func (s *File) Dir() string { return s.dir }

func (s *File) path(treeID string) string {
	return filepath.Join(s.dir, treeID+fileExt)
}

func (s *File) Load(ctx context.Context, treeID string) (*family.Roster, error) {
	if err := checkTree(treeID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := graph.ReadRosterFile(s.path(treeID))
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return emptyRoster(), nil
	}
	if err != nil {
		return nil, storageErr(err, "load tree %s", treeID)
	}
	return doc.Roster(), nil
}

func (s *File) Save(ctx context.Context, treeID string, r *family.Roster) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	data, err := graph.MarshalRoster(treeID, r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+treeID+"-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	if err := os.Rename(tmp.Name(), s.path(treeID)); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	return nil
}

func (s *File) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *File) Delete(ctx context.Context, treeID string) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(treeID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete tree %s", treeID)
	}
	return nil
}

func (s *File) Close() error { return nil }

var _ RosterStore = (*File)(nil)
