// Package main provides the entry point for the shadow CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/shadow/internal/config"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool
	mouse      bool

	// logCloser flushes the log file opened by the root command.
	logCloser = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "shadow",
		Short: "Practice English by shadowing synthesized speech",
		Long: paragraph(
			fmt.Sprintf("\nListen, then %s. Lessons are synthesized once, cached, and played back sentence by sentence with a pause to repeat after each voice.", keyword("repeat")),
		),
		SilenceErrors:     false,
		SilenceUsage:      true,
		TraverseChildren:  true,
		PersistentPreRunE: initCommand,
	}
)

// initCommand reads the config file named by --config and opens the log.
func initCommand(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	if cmd.Flags().Changed("config") {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer, err := setupLog(cfg, debug)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	logCloser = closer
	log.Debug("configuration loaded", "file", v.ConfigFileUsed(), "engine", cfg.Engine, "data", cfg.DataDir)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logCloser()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", configFile))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.PersistentFlags().String("engine", "", "synthesis engine (elevenlabs or mock)")
	rootCmd.PersistentFlags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support (TUI-mode only)")
	_ = rootCmd.PersistentFlags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag(config.KeyEngine, rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag(config.KeyMouse, rootCmd.PersistentFlags().Lookup("mouse"))

	rootCmd.AddCommand(
		playCmd,
		downloadCmd,
		autoCmd,
		lessonsCmd,
		showCmd,
		voicesCmd,
		presetsCmd,
		sessionsCmd,
		cacheCmd,
		configCmd,
		manCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	path, err := config.Setup(viper.GetViper())
	if err != nil {
		log.Warn("Could not load configuration", "err", err)
		return
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = path
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
