package voice

import (
	"errors"
	"sort"
	"sync"
)

// Default synthesis parameters for voices that have no preset entry.
const (
	DefaultSimilarityBoost = 0.75
	DefaultStyle           = 0.0
	DefaultSpeakerBoost    = true
)

// ErrUnknownPreset is returned when a preset id is not registered.
var ErrUnknownPreset = errors.New("unknown voice preset")

// Preset holds the fixed synthesis parameters of one provider voice.
type Preset struct {
	ID              string
	VoiceID         string
	Name            string
	Description     string
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// Settings is the per-voice part of a synthesis parameter bundle.
type Settings struct {
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// Settings returns the preset's synthesis parameters.
func (p Preset) Settings() Settings {
	return Settings{
		SimilarityBoost: p.SimilarityBoost,
		Style:           p.Style,
		SpeakerBoost:    p.SpeakerBoost,
	}
}

// DefaultSettings is used for voices absent from the registry.
func DefaultSettings() Settings {
	return Settings{
		SimilarityBoost: DefaultSimilarityBoost,
		Style:           DefaultStyle,
		SpeakerBoost:    DefaultSpeakerBoost,
	}
}

// Registry is the owned table of voice presets. Reads return copies and
// writes replace whole entries, so readers never observe a half-updated
// preset.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]Preset
	byVoice map[string]string // voice id -> preset id
}

// NewRegistry returns a registry seeded with presets.
func NewRegistry(presets ...Preset) *Registry {
	r := &Registry{
		byID:    make(map[string]Preset, len(presets)),
		byVoice: make(map[string]string, len(presets)),
	}
	for _, p := range presets {
		r.put(p)
	}
	return r
}

// NewDefaultRegistry returns a registry seeded with the built-in presets.
func NewDefaultRegistry() *Registry {
	return NewRegistry(BuiltinPresets()...)
}

// Upsert adds or replaces a preset.
func (r *Registry) Upsert(p Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[p.ID]; ok && old.VoiceID != p.VoiceID {
		delete(r.byVoice, old.VoiceID)
	}
	r.put(p)
}

// Remove deletes a preset by id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrUnknownPreset
	}
	delete(r.byID, id)
	if r.byVoice[p.VoiceID] == id {
		delete(r.byVoice, p.VoiceID)
	}
	return nil
}

// Get returns a preset by id.
func (r *Registry) Get(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// ForVoice returns the preset registered for a provider voice id.
func (r *Registry) ForVoice(voiceID string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byVoice[voiceID]
	if !ok {
		return Preset{}, false
	}
	return r.byID[id], true
}

// Settings returns the synthesis parameters for a voice, falling back to
// DefaultSettings when the voice has no preset.
func (r *Registry) Settings(voiceID string) Settings {
	if p, ok := r.ForVoice(voiceID); ok {
		return p.Settings()
	}
	return DefaultSettings()
}

// List returns a snapshot of all presets ordered by name.
func (r *Registry) List() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Catalog converts the registry into a voice list, used when the provider
// catalog cannot be fetched.
func (r *Registry) Catalog() []Voice {
	presets := r.List()
	out := make([]Voice, 0, len(presets))
	for _, p := range presets {
		out = append(out, Voice{
			VoiceID:     p.VoiceID,
			Name:        p.Name,
			Category:    "preset",
			Description: p.Description,
		})
	}
	return out
}

func (r *Registry) put(p Preset) {
	r.byID[p.ID] = p
	r.byVoice[p.VoiceID] = p.ID
}
