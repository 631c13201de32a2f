package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults of the built-in session preset.
const (
	DefaultPresetID         = "default-preset-1"
	DefaultPresetName       = "Standard Practice (Default)"
	DefaultModelID          = "eleven_multilingual_v2"
	DefaultFollowDelayRatio = 1.2
)

var (
	// ErrPresetNotFound is returned when deleting or exporting an unknown preset.
	ErrPresetNotFound = errors.New("session preset not found")
	// ErrInvalidPreset is returned when an imported document is not a preset.
	ErrInvalidPreset = errors.New("invalid preset format")
)

// SessionPreset is a saved voice configuration for a practice session.
type SessionPreset struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Voices           []Applied `json:"appliedVoices"`
	FollowDelayRatio float64   `json:"followDelayRatio"`
	ModelID          string    `json:"modelId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// DefaultSessionPreset is offered when the user has saved nothing.
func DefaultSessionPreset() SessionPreset {
	jake := NewApplied(JakeVoiceID, "Jake", 1.0, 1)
	jake.ID = "default-voice-jake"
	return SessionPreset{
		ID:               DefaultPresetID,
		Name:             DefaultPresetName,
		Voices:           []Applied{jake},
		FollowDelayRatio: DefaultFollowDelayRatio,
		ModelID:          DefaultModelID,
	}
}

// PresetStore persists session presets as a JSON document.
type PresetStore struct {
	path string
	mu   sync.Mutex
}

// NewPresetStore returns a store backed by the file at path.
func NewPresetStore(path string) *PresetStore {
	return &PresetStore{path: path}
}

// Saved returns only the presets the user saved.
func (s *PresetStore) Saved() ([]SessionPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// List returns the saved presets, or the built-in default when none exist.
func (s *PresetStore) List() ([]SessionPreset, error) {
	saved, err := s.Saved()
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return []SessionPreset{DefaultSessionPreset()}, nil
	}
	return saved, nil
}

// Save inserts or replaces a preset, assigning an id when missing.
func (s *PresetStore) Save(p SessionPreset) (SessionPreset, error) {
	if p.Name == "" {
		return p, errors.New("preset name is required")
	}
	if len(p.Voices) == 0 {
		return p, errors.New("preset needs at least one voice")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	presets, err := s.load()
	if err != nil {
		return p, err
	}
	replaced := false
	for i := range presets {
		if presets[i].ID == p.ID {
			presets[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		presets = append(presets, p)
	}
	return p, s.store(presets)
}

// Delete removes a preset by id.
func (s *PresetStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets, err := s.load()
	if err != nil {
		return err
	}
	kept := presets[:0]
	for _, p := range presets {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(presets) {
		return ErrPresetNotFound
	}
	return s.store(kept)
}

// Find looks a preset up by id or name, including the built-in default.
func (s *PresetStore) Find(ref string) (SessionPreset, error) {
	presets, err := s.List()
	if err != nil {
		return SessionPreset{}, err
	}
	for _, p := range presets {
		if p.ID == ref || p.Name == ref {
			return p, nil
		}
	}
	if def := DefaultSessionPreset(); ref == def.ID || ref == def.Name {
		return def, nil
	}
	return SessionPreset{}, ErrPresetNotFound
}

// Export renders a preset as indented JSON.
func Export(p SessionPreset) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Import saves a preset previously written by Export. The preset always
// gets a new id so it never replaces an existing one.
func (s *PresetStore) Import(data []byte) (SessionPreset, error) {
	var raw struct {
		SessionPreset
		Voices *[]Applied `json:"appliedVoices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return SessionPreset{}, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	p := raw.SessionPreset
	if strings.TrimSpace(p.Name) == "" || raw.Voices == nil {
		return SessionPreset{}, ErrInvalidPreset
	}
	p.Voices = *raw.Voices
	for i := range p.Voices {
		if err := p.Voices[i].Validate(); err != nil {
			return SessionPreset{}, fmt.Errorf("%w: voice %d: %v", ErrInvalidPreset, i+1, err)
		}
		if p.Voices[i].ID == "" {
			p.Voices[i].ID = uuid.NewString()
		}
	}
	if p.FollowDelayRatio <= 0 {
		p.FollowDelayRatio = DefaultFollowDelayRatio
	}
	if p.ModelID == "" {
		p.ModelID = DefaultModelID
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	return s.Save(p)
}

func (s *PresetStore) load() ([]SessionPreset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read presets: %w", err)
	}
	var presets []SessionPreset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("unable to parse presets: %w", err)
	}
	// Drop entries without voices, as older files may contain them.
	valid := presets[:0]
	for _, p := range presets {
		if len(p.Voices) > 0 {
			valid = append(valid, p)
		}
	}
	return valid, nil
}

func (s *PresetStore) store(presets []SessionPreset) error {
	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
