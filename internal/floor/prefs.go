package floor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Prefs is the per-device display state that survives restarts.
type Prefs struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
}

func defaultPrefs() Prefs { return Prefs{NotificationsEnabled: true} }

// PrefsStore is the persistence port for display preferences, injected
// so the notifier is testable without touching the filesystem.
type PrefsStore interface {
	Load() (Prefs, error)
	Save(Prefs) error
}

// FilePrefsStore keeps prefs in a small JSON file next to the display
// process. A missing file yields the defaults.
type FilePrefsStore struct {
	mu   sync.Mutex
	path string
}

func NewFilePrefsStore(path string) *FilePrefsStore { return &FilePrefsStore{path: path} }

func (s *FilePrefsStore) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return defaultPrefs(), nil
	}
	if err != nil {
		return defaultPrefs(), fmt.Errorf("load prefs: %w", err)
	}
	p := defaultPrefs()
	if err := json.Unmarshal(b, &p); err != nil {
		return defaultPrefs(), fmt.Errorf("load prefs: %w", err)
	}
	return p, nil
}

func (s *FilePrefsStore) Save(p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// MemoryPrefsStore is the in-memory port used in tests.
type MemoryPrefsStore struct {
	mu    sync.Mutex
	prefs Prefs
	set   bool
}

func (s *MemoryPrefsStore) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return defaultPrefs(), nil
	}
	return s.prefs, nil
}

func (s *MemoryPrefsStore) Save(p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs, s.set = p, true
	return nil
}
