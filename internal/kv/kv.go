package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/peterbourgon/diskv/v3"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// Keys used by the view and the daemon.
const (
	KeyEnemies             = "enemies"
	KeyEnemiesTimestamp    = "enemies_timestamp"
	KeyActive              = "ativo"
	KeySeen                = "vistos"
	KeyInstallDismissed    = "install_dismissed"
	KeyNotifAsked          = "notif_asked"
	KeyNotifPermission     = "notif_permission"
	KeyNotifFallbackActive = "notif_fallback_active"
)

// Store is a string-keyed store with one file per key. Both binaries open
// the same directory, so the in-memory cache is disabled.
type Store struct {
	d        *diskv.Diskv
	basePath string

	mu sync.Mutex
}

// DefaultDir is the store location shared by the daemon and the view.
func DefaultDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hunters-journal", "kv")
	}
	return filepath.Join(home, ".local", "share", "hunters-journal", "kv")
}

// Open returns a store rooted at basePath, creating it if needed.
func Open(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("kv: ensure base path: %w", err)
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			TempDir:      filepath.Join(basePath, ".tmp"),
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 0,
		}),
		basePath: basePath,
	}, nil
}

// Path returns the directory backing the store.
func (s *Store) Path() string { return s.basePath }

// Get returns the raw value for key.
func (s *Store) Get(key string) (string, bool) {
	if !s.d.Has(key) {
		return "", false
	}
	val, err := s.d.Read(key)
	if err != nil {
		return "", false
	}
	return string(val), true
}

// Set writes value under key.
func (s *Store) Set(key, value string) error {
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("kv: write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := s.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("kv: erase %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value under key into v. It reports false when the key
// is absent or does not decode.
func (s *Store) GetJSON(key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// SetJSON encodes v under key.
func (s *Store) SetJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(key, string(b))
}

// Flag reports whether key holds "true".
func (s *Store) Flag(key string) bool {
	v, ok := s.Get(key)
	return ok && v == "true"
}

// SetFlag stores a boolean; false removes the key.
func (s *Store) SetFlag(key string, on bool) error {
	if !on {
		return s.Delete(key)
	}
	return s.Set(key, "true")
}

// ActiveSlug returns the persisted selection.
func (s *Store) ActiveSlug() string {
	v, _ := s.Get(KeyActive)
	return v
}

// SetActiveSlug persists the selection.
func (s *Store) SetActiveSlug(slug string) error {
	return s.Set(KeyActive, slug)
}

// MarkSeen appends slug to the seen set. The set only grows.
func (s *Store) MarkSeen(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.seen()
	if slices.Contains(seen, slug) {
		return nil
	}
	return s.SetJSON(KeySeen, append(seen, slug))
}

// Seen returns the seen slugs in first-seen order.
func (s *Store) Seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen()
}

func (s *Store) seen() []string {
	var seen []string
	if !s.GetJSON(KeySeen, &seen) {
		return nil
	}
	return seen
}

// Enemies returns the locally cached list and when it was stored.
func (s *Store) Enemies() ([]model.Enemy, time.Time, bool) {
	var list []model.Enemy
	if !s.GetJSON(KeyEnemies, &list) {
		return nil, time.Time{}, false
	}
	raw, ok := s.Get(KeyEnemiesTimestamp)
	if !ok {
		return nil, time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, time.Time{}, false
	}
	return list, time.UnixMilli(ms), true
}

// SetEnemies stores list with the given timestamp.
func (s *Store) SetEnemies(list []model.Enemy, at time.Time) error {
	if err := s.SetJSON(KeyEnemies, list); err != nil {
		return err
	}
	return s.Set(KeyEnemiesTimestamp, strconv.FormatInt(at.UnixMilli(), 10))
}

// Permission returns the recorded notification permission.
func (s *Store) Permission() model.Permission {
	v, ok := s.Get(KeyNotifPermission)
	if !ok {
		return model.PermissionDefault
	}
	return model.Permission(v)
}

// SetPermission records the notification permission answer.
func (s *Store) SetPermission(p model.Permission) error {
	return s.Set(KeyNotifPermission, string(p))
}
