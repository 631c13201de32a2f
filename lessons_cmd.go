package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/shadow/internal/lesson"
)

var (
	lessonFilter string
	writeIndex   bool
	showWidth    uint

	lessonsCmd = &cobra.Command{
		Use:     "lessons [DIR]",
		Short:   "List the lesson files in a directory",
		Long:    paragraph(fmt.Sprintf("\nFinds .json and .xml lessons below DIR, honouring .gitignore. %s writes them to %s.", keyword("--write"), lesson.IndexFile)),
		Example: paragraph("shadow lessons ~/lessons\nshadow lessons --filter travel\nshadow lessons --write"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				p, err := lesson.ResolvePath(args[0])
				if err != nil {
					return err
				}
				dir = p
			}

			entries, err := lesson.BuildIndex(dir)
			if err != nil {
				return fmt.Errorf("unable to scan %s: %w", dir, err)
			}
			if writeIndex {
				path, err := lesson.WriteIndex(dir, entries)
				if err != nil {
					return fmt.Errorf("unable to write index: %w", err)
				}
				fmt.Println("Wrote", path)
				return nil
			}

			entries = lesson.Filter(entries, lessonFilter)
			if len(entries) == 0 {
				fmt.Println(dimStyle.Render("No lessons found."))
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s\n", headerStyle.Render(e.Name), dimStyle.Render(e.Path))
			}
			return nil
		},
	}

	showCmd = &cobra.Command{
		Use:   "show LESSON",
		Short: "Render a lesson with its translations and vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := lesson.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			width := int(showWidth) //nolint:gosec
			style := "auto"
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				style = "notty"
			} else if width == 0 {
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					width = min(w, 120)
				}
			}
			if width == 0 {
				width = 80
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithColorProfile(lipgloss.ColorProfile()),
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("unable to create renderer: %w", err)
			}
			out, err := r.Render(l.Markdown())
			if err != nil {
				return fmt.Errorf("unable to render lesson: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
)

func init() {
	lessonsCmd.Flags().StringVarP(&lessonFilter, "filter", "f", "", "fuzzy match lesson titles")
	lessonsCmd.Flags().BoolVar(&writeIndex, "write", false, "write "+lesson.IndexFile+" instead of listing")
	showCmd.Flags().UintVarP(&showWidth, "width", "w", 0, "word-wrap at width")
}
