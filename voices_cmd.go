package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/shadow/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices available to your account",
	Long: paragraph(fmt.Sprintf("\nFetches the provider's voice catalog. When the API key may not list voices, the %s are shown instead.",
		keyword("built-in presets"))),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		provider, err := a.openProvider()
		if err != nil {
			return err
		}

		cat, err := tts.FetchVoices(cmd.Context(), provider, a.registry, a.cfg.VoicesTimeout)
		if err != nil {
			return fmt.Errorf("%s", tts.Classify(err).UserMessage())
		}
		if cat.Fallback {
			fmt.Println(warnStyle.Render(cat.Warning))
		}

		for _, v := range cat.Voices {
			line := fmt.Sprintf("%-24s %s", v.VoiceID, headerStyle.Render(v.Name))
			if p, ok := a.registry.ForVoice(v.VoiceID); ok {
				line += dimStyle.Render(fmt.Sprintf("  preset %s", p.ID))
			}
			if v.Category != "" {
				line += dimStyle.Render("  " + v.Category)
			}
			fmt.Println(line)
		}
		return nil
	},
}
