package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/errors"
)

const sessionExt = ".session"

// FileStore keeps one JSON file per session in a directory. File names are
// a hash of the session id, so ids and the tokens they guard never appear
// in a directory listing. Files are written 0600 through a rename.
type FileStore struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time
}

// NewFileStore opens dir, creating it 0700. An empty dir means
// <config dir>/sessions.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := config.Dir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "sessions")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create session dir %s", dir)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the session directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) file(id string) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+sessionExt)
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, err := readSession(s.file(id))
	s.mu.RUnlock()
	if err != nil || sess == nil {
		return nil, err
	}
	if s.now().After(sess.ExpiresAt) {
		return nil, s.Delete(ctx, id)
	}
	return sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "session has no id")
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(s.dir, s.file(sess.ID), data)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.file(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeStorage, err, "remove session")
	}
	return nil
}

// Cleanup removes expired and unreadable session files.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return s.walk(func(path string, sess *Session) error {
		if sess == nil || now.After(sess.ExpiresAt) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return errors.Wrap(errors.ErrCodeStorage, err, "remove session")
			}
		}
		return nil
	})
}

// List returns the live sessions, oldest first.
func (s *FileStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []*Session
	err := s.walk(func(_ string, sess *Session) error {
		if sess != nil && !now.After(sess.ExpiresAt) {
			out = append(out, sess)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *Session) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, err
}

// walk calls fn for every session file; sess is nil when a file cannot be
// decoded. The caller holds the lock.
func (s *FileStore) walk(fn func(path string, sess *Session) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "read session dir")
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != sessionExt {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		sess, _ := readSession(path)
		if err := fn(path, sess); err != nil {
			return err
		}
	}
	return nil
}

// readSession returns nil, nil when path does not exist.
func readSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read session")
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode session %s", filepath.Base(path))
	}
	return &sess, nil
}

func writeFile(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write session")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeStorage, err, "write session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write session")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write session")
	}
	return nil
}

var _ Store = (*FileStore)(nil)

// =============================================================================
// CLI sessions
// =============================================================================

const currentFile = "current"

// CLIStore holds the command-line client's sessions: at most one per user,
// plus a pointer to the active one. Logging in again as the same user
// replaces that user's session; logging in as someone else keeps the
// other sessions until they expire.
type CLIStore struct {
	store *FileStore
}

// NewCLIStore opens a CLI session store under dir; an empty dir uses the
// default session directory.
func NewCLIStore(dir string) (*CLIStore, error) {
	store, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &CLIStore{store: store}, nil
}

func (c *CLIStore) pointer() string { return filepath.Join(c.store.dir, currentFile) }

func (c *CLIStore) currentID() (string, error) {
	data, err := os.ReadFile(c.pointer())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "read current session")
	}
	return strings.TrimSpace(string(data)), nil
}

// GetSession returns the active session, or nil when logged out or expired.
func (c *CLIStore) GetSession(ctx context.Context) (*Session, error) {
	id, err := c.currentID()
	if err != nil || id == "" {
		return nil, err
	}
	sess, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		_ = os.Remove(c.pointer())
	}
	return sess, nil
}

// SaveSession stores sess, drops any older session of the same user and
// makes sess the active one.
func (c *CLIStore) SaveSession(ctx context.Context, sess *Session) error {
	others, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	for _, o := range others {
		if o.ID != sess.ID && o.UserID() != "" && o.UserID() == sess.UserID() {
			if err := c.store.Delete(ctx, o.ID); err != nil {
				return err
			}
		}
	}
	if err := c.store.Set(ctx, sess); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return writeFile(c.store.dir, c.pointer(), []byte(sess.ID+"\n"))
}

// DeleteSession logs the active user out. Other users' sessions stay.
func (c *CLIStore) DeleteSession(ctx context.Context) error {
	id, err := c.currentID()
	if err != nil || id == "" {
		return err
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(c.pointer()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeStorage, err, "clear current session")
	}
	return nil
}

// Sessions returns the live sessions of every signed-in user, oldest first.
func (c *CLIStore) Sessions(ctx context.Context) ([]*Session, error) {
	return c.store.List(ctx)
}

// Path returns the active session's file, or "" when logged out.
func (c *CLIStore) Path() string {
	id, err := c.currentID()
	if err != nil || id == "" {
		return ""
	}
	return c.store.file(id)
}
