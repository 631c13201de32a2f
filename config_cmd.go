package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# synthesis engine: elevenlabs or mock
engine: "elevenlabs"
# ElevenLabs API key. ELEVENLABS_API_KEY takes precedence.
# api_key: ""
model_id: "eleven_multilingual_v2"

# voices played for every sentence, in order: voiceID[:speed[:repeat]]
# a preset id such as "jake" may be used instead of a voice id
voices: []

# pause after each clip, as a multiple of its length
follow_delay_ratio: 1.2
# silence before the first sentence
lead_in: "1s"

# where lessons, audio and session history are kept
# data_dir: "~/.local/share/shadow"

cache:
  # memory tier size per cache, in MB (0 disables it)
  memory_mb: 64

requests_per_minute: 120
voices_timeout: "10s"

# external capture program; {file} is replaced by the output path
record:
  # command: "ffmpeg -f pulse -i default -y {file}"
  # automation_command: "ffmpeg -f pulse -i default.monitor -y {file}"

# wait before capture starts
recorder_settle: "800ms"

# debug, info, warn or error
log_level: "info"
# mouse support (TUI-mode only)
mouse: false

elevenlabs:
  # base_url: "https://api.elevenlabs.io"
  # output_format: "mp3_44100_128"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the shadow config file",
	Long:    paragraph(fmt.Sprintf("\n%s the shadow config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("shadow config\nshadow config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// The file must stay editable when it no longer validates.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Shadow", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
