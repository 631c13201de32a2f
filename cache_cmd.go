package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/shadow/internal/cache"
)

var (
	listBindings bool
	confirmClear bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the audio cache",
		Args:  cobra.NoArgs,
	}

	cacheListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cached clips, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, done, err := openCache()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			if listBindings {
				sums, err := store.SessionSummaries(ctx)
				if err != nil {
					return err
				}
				for _, s := range sums {
					fmt.Printf("session %-4d %4d clips  %s\n", s.SessionID, s.Bindings, humanize.Bytes(uint64(s.Bytes))) //nolint:gosec
				}
				return nil
			}

			assets, err := store.ListGlobal(ctx)
			if err != nil {
				return err
			}
			for _, a := range assets {
				fmt.Printf("%s  %8s  %5.1fs  %s  %s\n",
					dimStyle.Render(a.ID),
					humanize.Bytes(uint64(a.Size())), //nolint:gosec
					a.Duration.Seconds(),
					humanize.Time(a.CreatedAt),
					truncate.StringWithTail(a.Text, 48, "…"),
				)
			}
			return nil
		},
	}

	cacheRemoveCmd = &cobra.Command{
		Use:   "rm FINGERPRINT...",
		Short: "Delete cached clips; session copies are kept",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, done, err := openCache()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			var errs []error
			for _, id := range args {
				if err := store.DeleteGlobal(ctx, id); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Println("Deleted", id)
			}
			return errors.Join(errs...)
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached clip and session binding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmClear {
				return errors.New("this deletes all synthesized audio; pass --yes to confirm")
			}
			store, done, err := openCache()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			if err := store.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, done, err := openCache()
			if err != nil {
				return err
			}
			defer done()

			global, sessions := store.DiskUsage()
			printUsage("Clips", global)
			printUsage("Session copies", sessions)

			stats := store.Stats()
			keys := make([]string, 0, len(stats))
			for k, v := range stats {
				if _, ok := v.(cache.CacheStats); ok {
					continue
				}
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %-16s %v\n", k, stats[k])
			}
			return nil
		},
	}
)

func openCache() (*cache.Store, func(), error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = a.Close() }, nil
}

func printUsage(label string, s cache.CacheStats) {
	fmt.Printf("%s %s in %s\n",
		headerStyle.Render(label+":"),
		humanize.Bytes(uint64(s.Size)), //nolint:gosec
		english.Plural(int(s.ItemCount), "file", "files"),
	)
}

func init() {
	cacheListCmd.Flags().BoolVarP(&listBindings, "sessions", "s", false, "summarize session bindings instead")
	cacheClearCmd.Flags().BoolVarP(&confirmClear, "yes", "y", false, "confirm")
	cacheCmd.AddCommand(cacheListCmd, cacheRemoveCmd, cacheClearCmd, cacheStatsCmd)
}
