// Package config loads shadow's settings from the config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// AppName names the config file, the environment prefix and the
// application directories.
const AppName = "shadow"

// Config keys.
const (
	KeyAPIKey              = "api_key"
	KeyEngine              = "engine"
	KeyModelID             = "model_id"
	KeyVoices              = "voices"
	KeyFollowDelayRatio    = "follow_delay_ratio"
	KeyLeadIn              = "lead_in"
	KeyRecorderSettle      = "recorder_settle"
	KeyDataDir             = "data_dir"
	KeyCacheMemoryMB       = "cache.memory_mb"
	KeyRequestsPerMinute   = "requests_per_minute"
	KeyVoicesTimeout       = "voices_timeout"
	KeyRecordCommand       = "record.command"
	KeyRecordAutoCommand   = "record.automation_command"
	KeyLogLevel            = "log_level"
	KeyMouse               = "mouse"
	KeyElevenLabsBaseURL   = "elevenlabs.base_url"
	KeyElevenLabsOutFormat = "elevenlabs.output_format"
)

// Credentials are read from the environment.
type Credentials struct {
	APIKey string `env:"ELEVENLABS_API_KEY"`
}

// Config is the resolved configuration.
type Config struct {
	APIKey            string
	Engine            tts.EngineType
	ModelID           string
	Voices            []string
	FollowDelayRatio  float64
	LeadIn            time.Duration
	RecorderSettle    time.Duration
	DataDir           string
	CacheMemoryMB     int
	RequestsPerMinute int
	VoicesTimeout     time.Duration
	RecordCommand     string
	AutoRecordCommand string
	LogLevel          string
	Mouse             bool
	BaseURL           string
	OutputFormat      string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyEngine, string(tts.EngineElevenLabs))
	v.SetDefault(KeyModelID, tts.DefaultModelID)
	v.SetDefault(KeyVoices, []string{})
	v.SetDefault(KeyFollowDelayRatio, voice.DefaultFollowDelayRatio)
	v.SetDefault(KeyLeadIn, time.Second)
	v.SetDefault(KeyRecorderSettle, 800*time.Millisecond)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyCacheMemoryMB, 64)
	v.SetDefault(KeyRequestsPerMinute, 120)
	v.SetDefault(KeyVoicesTimeout, tts.DefaultVoicesTimeout)
	v.SetDefault(KeyRecordCommand, "")
	v.SetDefault(KeyRecordAutoCommand, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMouse, false)
}

// Load resolves the configuration held by v. ELEVENLABS_API_KEY takes
// precedence over api_key.
func Load(v *viper.Viper) (*Config, error) {
	engine, err := tts.ParseEngine(v.GetString(KeyEngine))
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", KeyEngine, v.GetString(KeyEngine), err)
	}

	c := &Config{
		APIKey:            v.GetString(KeyAPIKey),
		Engine:            engine,
		ModelID:           v.GetString(KeyModelID),
		Voices:            v.GetStringSlice(KeyVoices),
		FollowDelayRatio:  v.GetFloat64(KeyFollowDelayRatio),
		LeadIn:            v.GetDuration(KeyLeadIn),
		RecorderSettle:    v.GetDuration(KeyRecorderSettle),
		CacheMemoryMB:     v.GetInt(KeyCacheMemoryMB),
		RequestsPerMinute: v.GetInt(KeyRequestsPerMinute),
		VoicesTimeout:     v.GetDuration(KeyVoicesTimeout),
		RecordCommand:     v.GetString(KeyRecordCommand),
		AutoRecordCommand: v.GetString(KeyRecordAutoCommand),
		LogLevel:          v.GetString(KeyLogLevel),
		Mouse:             v.GetBool(KeyMouse),
		BaseURL:           v.GetString(KeyElevenLabsBaseURL),
		OutputFormat:      v.GetString(KeyElevenLabsOutFormat),
	}

	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if creds.APIKey != "" {
		c.APIKey = creds.APIKey
	}

	c.DataDir, err = resolveDataDir(v.GetString(KeyDataDir))
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.FollowDelayRatio <= 0 || c.FollowDelayRatio > 10 {
		return fmt.Errorf("%s must be in (0, 10], got %.2f", KeyFollowDelayRatio, c.FollowDelayRatio)
	}
	if c.LeadIn < 0 || c.RecorderSettle < 0 {
		return errors.New("durations must not be negative")
	}
	if c.CacheMemoryMB < 0 || c.CacheMemoryMB > 4096 {
		return fmt.Errorf("%s must be between 0 and 4096, got %d", KeyCacheMemoryMB, c.CacheMemoryMB)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%s must not be negative", KeyRequestsPerMinute)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return nil
}

// HasCredentials reports whether synthesis can be attempted.
func (c *Config) HasCredentials() bool {
	return c.Engine == tts.EngineMock || c.APIKey != ""
}

// AppliedVoices parses the configured voice list.
func (c *Config) AppliedVoices(reg *voice.Registry) ([]voice.Applied, error) {
	voices := make([]voice.Applied, 0, len(c.Voices))
	for _, spec := range c.Voices {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		a, err := voice.ParseApplied(spec, reg)
		if err != nil {
			return nil, err
		}
		voices = append(voices, a)
	}
	return voices, nil
}

// Paths of the files kept under the data directory.
func (c *Config) CacheDir() string { return filepath.Join(c.DataDir, "audio") }
func (c *Config) SessionsDB() string { return filepath.Join(c.DataDir, "sessions.db") }
func (c *Config) PresetsFile() string { return filepath.Join(c.DataDir, "presets.json") }
func (c *Config) TriggerFile() string { return filepath.Join(c.DataDir, "autostart.url") }
func (c *Config) LogFile() string { return filepath.Join(c.DataDir, AppName+".log") }
func (c *Config) RecordingsDir() string { return filepath.Join(c.DataDir, "recordings") }

func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		p, err := homedir.Expand(dir)
		if err != nil {
			return "", fmt.Errorf("unable to expand %s: %w", KeyDataDir, err)
		}
		return p, nil
	}
	return DefaultDataDir()
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() (string, error) {
	scope := gap.NewScope(gap.User, AppName)
	p, err := scope.DataPath("")
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	return p, nil
}

// ConfigDirs returns the directories searched for the config file, most
// specific first.
func ConfigDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, err
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("SHADOW_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// Setup points v at the default config locations and the environment. It
// returns the path of the config file in use, or where a new one should be
// created.
func Setup(v *viper.Viper) (string, error) {
	dirs, err := ConfigDirs()
	if err != nil {
		return "", err
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("could not parse configuration file: %w", err)
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		return used, nil
	}
	return filepath.Join(dirs[0], AppName+".yml"), nil
}

// Watch reloads the configuration whenever the config file changes and
// hands the result to fn. Invalid edits are logged and skipped.
func Watch(v *viper.Viper, logger *log.Logger, fn func(*Config)) {
	if logger == nil {
		logger = log.Default()
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		c, err := Load(v)
		if err != nil {
			logger.Warn("ignoring invalid configuration", "path", e.Name, "err", err)
			return
		}
		logger.Debug("configuration reloaded", "path", e.Name)
		fn(c)
	})
	v.WatchConfig()
}
