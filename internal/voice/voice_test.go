package voice

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func TestRegistrySettings(t *testing.T) {
	reg := NewDefaultRegistry()

	s := reg.Settings("EXAVITQu4vr4xnSDxMaL")
	if s.SimilarityBoost != 0.8 || s.Style != 0.1 || !s.SpeakerBoost {
		t.Errorf("unexpected preset settings: %+v", s)
	}

	if got := reg.Settings("unknown-voice"); got != DefaultSettings() {
		t.Errorf("unknown voice: got %+v, want defaults", got)
	}
}

func TestRegistryUpsertAndRemove(t *testing.T) {
	reg := NewRegistry(Preset{ID: "a", VoiceID: "V1", Name: "A", SimilarityBoost: 0.5})

	reg.Upsert(Preset{ID: "a", VoiceID: "V2", Name: "A", SimilarityBoost: 0.9})
	if _, ok := reg.ForVoice("V1"); ok {
		t.Error("old voice mapping should be dropped after voice id change")
	}
	if got := reg.Settings("V2").SimilarityBoost; got != 0.9 {
		t.Errorf("similarity boost: got %v, want 0.9", got)
	}

	if err := reg.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := reg.Remove("a"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("second Remove: got %v, want ErrUnknownPreset", err)
	}
	if len(reg.List()) != 0 {
		t.Error("registry should be empty")
	}
}

func TestRegistryConcurrentReaders(t *testing.T) {
	reg := NewRegistry(Preset{ID: "a", VoiceID: "V", SimilarityBoost: 0.1, Style: 0.1})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			v := float64(n) / 10
			reg.Upsert(Preset{ID: "a", VoiceID: "V", SimilarityBoost: v, Style: v})
		}(i)
		go func() {
			defer wg.Done()
			s := reg.Settings("V")
			if s.SimilarityBoost != s.Style {
				t.Errorf("observed half-updated preset: %+v", s)
			}
		}()
	}
	wg.Wait()
}

func TestParseApplied(t *testing.T) {
	reg := NewDefaultRegistry()

	tests := []struct {
		spec    string
		voiceID string
		name    string
		speed   float64
		repeat  int
		wantErr bool
	}{
		{spec: "rachel", voiceID: "21m00Tcm4TlvDq8ikWAM", name: "Rachel", speed: 1, repeat: 1},
		{spec: JakeVoiceID + ":0.9:3", voiceID: JakeVoiceID, name: "Jake", speed: 0.9, repeat: 3},
		{spec: "custom::2", voiceID: "custom", name: "custom", speed: 1, repeat: 2},
		{spec: "custom:1.5", wantErr: true},
		{spec: "custom:1:0", wantErr: true},
		{spec: "custom:abc", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			a, err := ParseApplied(tt.spec, reg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", a)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseApplied failed: %v", err)
			}
			if a.VoiceID != tt.voiceID || a.Name != tt.name || a.Speed != tt.speed || a.Repeat != tt.repeat {
				t.Errorf("got %+v", a)
			}
			if a.ID == "" {
				t.Error("applied voice should get a slot id")
			}
		})
	}
}

func TestAppliedSlotIDsAreDistinct(t *testing.T) {
	a := NewApplied(JakeVoiceID, "Jake", 1, 1)
	b := NewApplied(JakeVoiceID, "Jake", 0.8, 2)
	if a.ID == b.ID {
		t.Error("same voice applied twice must get distinct slot ids")
	}
}

func TestClampSpeed(t *testing.T) {
	tests := map[float64]float64{0.5: 0.7, 0.7: 0.7, 1.0: 1.0, 1.2: 1.2, 2.0: 1.2}
	for in, want := range tests {
		if got := ClampSpeed(in); got != want {
			t.Errorf("ClampSpeed(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPresetStore(t *testing.T) {
	store := NewPresetStore(filepath.Join(t.TempDir(), "presets.json"))

	list, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != DefaultPresetID {
		t.Fatalf("expected built-in default, got %+v", list)
	}

	saved, err := store.Save(SessionPreset{
		Name:             "Evening",
		Voices:           []Applied{NewApplied("V1", "One", 0.9, 2)},
		FollowDelayRatio: 1.5,
		ModelID:          "M1",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.ID == "" {
		t.Error("saved preset should get an id")
	}

	list, _ = store.List()
	if len(list) != 1 || list[0].Name != "Evening" {
		t.Fatalf("saved presets should replace the default, got %+v", list)
	}

	saved.FollowDelayRatio = 2
	if _, err := store.Save(saved); err != nil {
		t.Fatalf("re-Save failed: %v", err)
	}
	found, err := store.Find("Evening")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found.FollowDelayRatio != 2 {
		t.Errorf("update not persisted: %+v", found)
	}

	if err := store.Delete(saved.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(saved.ID); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("second Delete: got %v", err)
	}
	if _, err := store.Find(DefaultPresetName); err != nil {
		t.Errorf("default preset should always be findable: %v", err)
	}
}

func TestPresetStoreRejectsEmpty(t *testing.T) {
	store := NewPresetStore(filepath.Join(t.TempDir(), "presets.json"))
	if _, err := store.Save(SessionPreset{Name: "empty"}); err == nil {
		t.Error("expected error for preset without voices")
	}
}

func TestPresetStoreImport(t *testing.T) {
	store := NewPresetStore(filepath.Join(t.TempDir(), "presets.json"))
	saved, err := store.Save(SessionPreset{
		Name:             "Morning",
		Voices:           []Applied{NewApplied("V1", "One", 0.9, 2), NewApplied("V2", "Two", 1.1, 1)},
		FollowDelayRatio: 1.5,
		ModelID:          "M1",
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := Export(saved)
	if err != nil {
		t.Fatal(err)
	}

	imported, err := store.Import(data)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported.ID == saved.ID || imported.ID == "" {
		t.Errorf("imported preset should get a new id, got %q", imported.ID)
	}
	if imported.Name != saved.Name || imported.ModelID != "M1" || imported.FollowDelayRatio != 1.5 {
		t.Errorf("got %+v, want the exported settings", imported)
	}
	if len(imported.Voices) != 2 || imported.Voices[1].VoiceID != "V2" || imported.Voices[0].Repeat != 2 {
		t.Errorf("got voices %+v", imported.Voices)
	}

	list, err := store.Saved()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("got %d presets, want the original and the import", len(list))
	}
}

func TestPresetStoreImportRejectsInvalid(t *testing.T) {
	store := NewPresetStore(filepath.Join(t.TempDir(), "presets.json"))
	tests := map[string]string{
		"not json":        `voices`,
		"no name":         `{"appliedVoices":[{"voiceId":"V1","speed":1,"repeat":1}]}`,
		"no voices":       `{"name":"Empty"}`,
		"voices not list": `{"name":"Odd","appliedVoices":"V1"}`,
		"bad speed":       `{"name":"Fast","appliedVoices":[{"voiceId":"V1","speed":3,"repeat":1}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Import([]byte(doc)); !errors.Is(err, ErrInvalidPreset) {
				t.Errorf("got %v, want ErrInvalidPreset", err)
			}
		})
	}
	if saved, _ := store.Saved(); len(saved) != 0 {
		t.Errorf("nothing should be saved, got %+v", saved)
	}
}
