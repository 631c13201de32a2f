package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/shadow/internal/voice"
)

var (
	presetVoices []string
	presetRatio  float64
	presetModel  string

	presetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "Manage saved voice presets",
		Args:  cobra.NoArgs,
	}

	presetsListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List saved presets",
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			presets, err := a.presets.List()
			if err != nil {
				return err
			}
			for _, p := range presets {
				fmt.Printf("%s  %s\n", headerStyle.Render(p.Name), dimStyle.Render(p.ID))
				for _, v := range p.Voices {
					fmt.Printf("    %s ×%d at %.2gx\n", v.Name, v.Repeat, v.Speed)
				}
				fmt.Println(dimStyle.Render(fmt.Sprintf("    pause %.2g× · %s", p.FollowDelayRatio, p.ModelID)))
			}
			return nil
		},
	}

	presetsSaveCmd = &cobra.Command{
		Use:     "save NAME",
		Short:   "Save a preset from --voice flags",
		Example: paragraph("shadow presets save evening --voice jake:0.9:2 --voice rachel --ratio 1.5"),
		Args:    cobra.ExactArgs(1),
		RunE:    savePreset,
	}

	presetsRemoveCmd = &cobra.Command{
		Use:     "rm PRESET",
		Aliases: []string{"delete"},
		Short:   "Delete a saved preset by id or name",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			p, err := a.presets.Find(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			if err := a.presets.Delete(p.ID); err != nil {
				return err
			}
			fmt.Println("Deleted", p.Name)
			return nil
		},
	}

	presetsExportCmd = &cobra.Command{
		Use:   "export PRESET",
		Short: "Print a preset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			p, err := a.presets.Find(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			data, err := voice.Export(p)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	presetsImportCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "Save a preset from JSON written by export; - reads stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("unable to read preset: %w", err)
			}
			p, err := a.presets.Import(data)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s (%s); use it with --preset %q\n", p.Name, p.ID, p.ID)
			return nil
		},
	}
)

func savePreset(_ *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if len(presetVoices) == 0 {
		return errors.New("a preset needs at least one --voice")
	}

	p := voice.SessionPreset{
		Name:             strings.TrimSpace(args[0]),
		FollowDelayRatio: presetRatio,
		ModelID:          presetModel,
	}
	if p.FollowDelayRatio <= 0 {
		p.FollowDelayRatio = a.cfg.FollowDelayRatio
	}
	if p.ModelID == "" {
		p.ModelID = a.cfg.ModelID
	}
	for _, spec := range presetVoices {
		v, err := voice.ParseApplied(spec, a.registry)
		if err != nil {
			return err
		}
		p.Voices = append(p.Voices, v)
	}

	// Saving under an existing name replaces that preset.
	if existing, err := a.presets.Find(p.Name); err == nil && existing.ID != voice.DefaultPresetID {
		p.ID = existing.ID
	}
	saved, err := a.presets.Save(p)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func init() {
	presetsSaveCmd.Flags().StringArrayVar(&presetVoices, "voice", nil, "voice as voiceID[:speed[:repeat]] (repeatable)")
	presetsSaveCmd.Flags().Float64Var(&presetRatio, "ratio", 0, "pause after each clip as a multiple of its length")
	presetsSaveCmd.Flags().StringVar(&presetModel, "model", "", "synthesis model id")

	presetsCmd.AddCommand(presetsListCmd, presetsSaveCmd, presetsRemoveCmd, presetsExportCmd, presetsImportCmd)
}
