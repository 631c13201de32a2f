package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyDataDir, t.TempDir())
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	c, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Engine != tts.EngineElevenLabs {
		t.Errorf("got engine %q", c.Engine)
	}
	if c.ModelID != tts.DefaultModelID {
		t.Errorf("got model %q", c.ModelID)
	}
	if c.FollowDelayRatio != 1.2 || c.LeadIn != time.Second || c.RecorderSettle != 800*time.Millisecond {
		t.Errorf("unexpected timing defaults: %+v", c)
	}
	if c.CacheMemoryMB != 64 || c.RequestsPerMinute != 120 || c.VoicesTimeout != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.HasCredentials() {
		t.Error("no key should mean no credentials")
	}
}

func TestLoad_EnvKeyWins(t *testing.T) {
	v := newViper(t)
	v.Set(KeyAPIKey, "from-config")

	t.Setenv("ELEVENLABS_API_KEY", "")
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.APIKey != "from-config" {
		t.Errorf("got %q, want config key", c.APIKey)
	}

	t.Setenv("ELEVENLABS_API_KEY", "from-env")
	c, err = Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.APIKey != "from-env" || !c.HasCredentials() {
		t.Errorf("got %q, want env key", c.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{KeyEngine, "piper"},
		{KeyFollowDelayRatio, 0},
		{KeyFollowDelayRatio, 11},
		{KeyCacheMemoryMB, -1},
		{KeyLogLevel, "loud"},
		{KeyLeadIn, "-1s"},
	}

	for _, tt := range tests {
		v := newViper(t)
		v.Set(tt.key, tt.value)
		if _, err := Load(v); err == nil {
			t.Errorf("%s=%v: expected error", tt.key, tt.value)
		}
	}
}

func TestLoad_ExpandsDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	v := newViper(t)
	v.Set(KeyDataDir, "~/shadow-data")

	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(c.DataDir, home) {
		t.Errorf("got %q, want it under %q", c.DataDir, home)
	}
	if c.SessionsDB() != filepath.Join(c.DataDir, "sessions.db") || c.TriggerFile() != filepath.Join(c.DataDir, "autostart.url") {
		t.Error("unexpected data paths")
	}
}

func TestAppliedVoices(t *testing.T) {
	c := &Config{Voices: []string{"rachel:0.9:2", " ", voice.JakeVoiceID}}
	voices, err := c.AppliedVoices(voice.NewDefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[0].Speed != 0.9 || voices[0].Repeat != 2 || voices[1].VoiceID != voice.JakeVoiceID {
		t.Errorf("unexpected voices %+v", voices)
	}

	c.Voices = []string{"x:3"}
	if _, err := c.AppliedVoices(nil); err == nil {
		t.Error("out of range speed should fail")
	}
}

func TestSetup_FindsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHADOW_CONFIG_HOME", dir)
	path := filepath.Join(dir, "shadow.yml")
	if err := os.WriteFile(path, []byte("model_id: eleven_turbo_v2_5\ncache:\n  memory_mb: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	used, err := Setup(v)
	if err != nil {
		t.Fatal(err)
	}
	if used != path {
		t.Errorf("got config %q, want %q", used, path)
	}
	v.Set(KeyDataDir, t.TempDir())
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.ModelID != "eleven_turbo_v2_5" || c.CacheMemoryMB != 8 {
		t.Errorf("file values not applied: %+v", c)
	}
}

func TestSetup_MissingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHADOW_CONFIG_HOME", dir)

	used, err := Setup(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	if used != filepath.Join(dir, "shadow.yml") {
		t.Errorf("got %q, want default location in %q", used, dir)
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "shadow.yml")
	if err := os.WriteFile(path, []byte("api_key: \"\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := newViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	Watch(v, nil, func(c *Config) { reloaded <- c })

	if err := os.WriteFile(path, []byte("api_key: secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if c.APIKey == "secret" {
				return
			}
		case <-deadline:
			t.Fatal("configuration was not reloaded")
		}
	}
}
