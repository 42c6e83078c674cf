// Package session stores and restores interpreter sessions: the variable
// store plus the turtle pose and pen.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidSlot is returned for slot names that are empty or contain
	// path elements.
	ErrInvalidSlot = errors.New("invalid slot name")
	// ErrNotFound is returned when no document exists for a slot.
	ErrNotFound = errors.New("session not found")
)

// Snapshot is the flat session document.
type Snapshot struct {
	Variables     map[string]any `yaml:"variables" json:"variables"`
	TurtleX       float64        `yaml:"turtle_x" json:"turtle_x"`
	TurtleY       float64        `yaml:"turtle_y" json:"turtle_y"`
	TurtleHeading float64        `yaml:"turtle_heading" json:"turtle_heading"`
	PenDown       bool           `yaml:"pen_down" json:"pen_down"`
	PenColor      string         `yaml:"pen_color" json:"pen_color"`
	PenWidth      int            `yaml:"pen_width" json:"pen_width"`
	RunID         string         `yaml:"run_id,omitempty" json:"run_id,omitempty"`
}

// ValidateSlot checks that slot can be used as a file name.
func ValidateSlot(slot string) error {
	if slot == "" || slot == "." || strings.Contains(slot, "..") ||
		strings.ContainsAny(slot, `/\:`) || filepath.IsAbs(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// FileStore keeps one YAML document per slot in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore. A leading "~" is expanded to the
// user's home directory.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: ExpandHome(dir)}
}

// ExpandHome replaces a leading "~" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Save writes snap to <Dir>/<slot>.yaml.
func (s *FileStore) Save(slot string, snap Snapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	path := filepath.Join(s.Dir, slot+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", path, err)
	}
	return nil
}

// Load reads the document for slot. Older saves written as .json are
// accepted too; JSON is decoded by the YAML parser.
func (s *FileStore) Load(slot string) (Snapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return Snapshot{}, err
	}
	for _, ext := range []string{".yaml", ".json"} {
		data, err := os.ReadFile(filepath.Join(s.Dir, slot+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to read session %s: %w", slot, err)
		}
		return Decode(data)
	}
	return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, slot)
}

// Decode parses a YAML or JSON session document.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode session: %w", err)
	}
	if snap.Variables == nil {
		snap.Variables = make(map[string]any)
	}
	return snap, nil
}

// MemoryStore keeps snapshots in memory.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]Snapshot)}
}

// Save stores snap under slot.
func (m *MemoryStore) Save(slot string, snap Snapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = snap
	return nil
}

// Load returns the snapshot stored under slot.
func (m *MemoryStore) Load(slot string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.slots[slot]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return snap, nil
}
