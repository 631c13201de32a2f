package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Manage practice session history",
		Args:  cobra.NoArgs,
	}

	sessionsListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List sessions, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			repo, err := a.openSessions()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			list, err := repo.List(ctx, nil)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println(dimStyle.Render("No sessions yet."))
				return nil
			}
			for _, s := range list {
				status := dimStyle.Render("in progress")
				if s.Completed() {
					status = "completed " + humanize.Time(*s.CompletedAt)
				}
				fmt.Printf("%4d  %s  %d sentences  %s\n", s.ID, headerStyle.Render(s.Title), s.SentenceCount, status)
			}
			return nil
		},
	}

	sessionsRemoveCmd = &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a session and its audio bindings",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			repo, err := a.openSessions()
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			if err := repo.Delete(ctx, nil, uint(id)); err != nil {
				return err
			}
			n, err := store.DeleteSessionBindings(ctx, uint(id))
			if err != nil {
				return fmt.Errorf("session deleted, but its audio was not: %w", err)
			}
			fmt.Printf("Deleted session %d (%d clips)\n", id, n)
			return nil
		},
	}
)

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsRemoveCmd)
}
