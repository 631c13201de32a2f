package cache

import (
	"testing"
)

func TestTextHash(t *testing.T) {
	tests := []struct {
		text string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 97*31 + 98},
		{"Hello world", -832992604},
		// Non-BMP characters hash as two UTF-16 code units.
		{"😀", 0xD83D*31 + 0xDE00},
	}

	for _, tt := range tests {
		if got := TextHash(tt.text); got != tt.want {
			t.Errorf("TextHash(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestFingerprintFormat(t *testing.T) {
	got := Fingerprint("Hello world", "V1", 1.0, 0.4, 0.75, "M1", 0, true)
	want := "ga_-832992604_V1_1_0.4_0.75_M1_0_true"
	if got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}

	p := Params{Text: "Hello world", VoiceID: "V1", ModelID: "M1", Speed: 1, Stability: 0.4, SimilarityBoost: 0.75, SpeakerBoost: true}
	if p.Fingerprint() != want {
		t.Errorf("Params.Fingerprint = %q, want %q", p.Fingerprint(), want)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	p := Params{Text: "Where is the station?", VoiceID: "V", ModelID: "M", Speed: 0.9, Stability: 0.5, SimilarityBoost: 0.75, Style: 0.1, SpeakerBoost: true}
	first := p.Fingerprint()
	for i := 0; i < 100; i++ {
		if got := p.Fingerprint(); got != first {
			t.Fatalf("fingerprint changed between calls: %q vs %q", got, first)
		}
	}

	empty := Params{VoiceID: "V", ModelID: "M", Speed: 1}
	if empty.Fingerprint() != empty.Fingerprint() {
		t.Error("empty text must fingerprint deterministically")
	}
}

func TestFingerprintFieldPerturbation(t *testing.T) {
	base := Params{Text: "Good morning", VoiceID: "V", ModelID: "M", Speed: 1, Stability: 0.5, SimilarityBoost: 0.75, Style: 0, SpeakerBoost: true}

	perturb := map[string]func(p *Params){
		"text":            func(p *Params) { p.Text = "Good evening" },
		"voice":           func(p *Params) { p.VoiceID = "W" },
		"model":           func(p *Params) { p.ModelID = "N" },
		"speed":           func(p *Params) { p.Speed = 1.1 },
		"stability":       func(p *Params) { p.Stability = 0.4 },
		"similarityBoost": func(p *Params) { p.SimilarityBoost = 0.7 },
		"style":           func(p *Params) { p.Style = 0.2 },
		"speakerBoost":    func(p *Params) { p.SpeakerBoost = false },
	}

	seen := map[string]string{base.Fingerprint(): "base"}
	for field, fn := range perturb {
		p := base
		fn(&p)
		fp := p.Fingerprint()
		if other, dup := seen[fp]; dup {
			t.Errorf("changing %s produced the same fingerprint as %s: %q", field, other, fp)
		}
		seen[fp] = field
	}
}

func TestBindingKey(t *testing.T) {
	got := BindingKey(12, 3, "V1", "M1", 1, 0.5, 0.75)
	want := "12_3_V1_M1_1_0.5_0.75"
	if got != want {
		t.Errorf("BindingKey = %q, want %q", got, want)
	}
	if BindingKey(12, 3, "V1", "M1", 0.9, 0.5, 0.75) == got {
		t.Error("speed must be part of the binding key")
	}
}
