package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tactiled/internal/history"
)

const timeLayout = "2006-01-02 15:04:05"

type sessionView struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Strategy         string    `json:"strategy"`
	Text             string    `json:"text"`
	PatternCount     int       `json:"pattern_count"`
	TotalDurationMs  int       `json:"total_duration_ms"`
	FrameBytes       int       `json:"frame_bytes"`
	TableFingerprint string    `json:"table_fingerprint"`
	Frames           []string  `json:"frames,omitempty"`
}

func newSessionView(s history.Session) sessionView {
	return sessionView{
		ID:               s.ID.String(),
		CreatedAt:        s.CreatedAt,
		Strategy:         s.Strategy,
		Text:             s.Text,
		PatternCount:     s.PatternCount,
		TotalDurationMs:  s.TotalDurationMs,
		FrameBytes:       s.FrameBytes,
		TableFingerprint: s.TableFingerprint,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the session journal",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	historyCmd.AddCommand(newHistoryMigrationsCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			sessions, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if format == outputJSON {
				views := make([]sessionView, 0, len(sessions))
				for _, s := range sessions {
					views = append(views, newSessionView(s))
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID.String(),
					s.CreatedAt.Local().Format(timeLayout),
					s.Strategy,
					strconv.Itoa(s.PatternCount),
					strconv.Itoa(s.TotalDurationMs),
					truncate(s.Text, 32),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Created", "Strategy", "Patterns", "Duration (ms)", "Text"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list, 0 for all")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table or json")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session and its frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			sess, err := store.GetSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			frames, err := store.Frames(cmd.Context(), id)
			if err != nil {
				return err
			}

			view := newSessionView(*sess)
			for _, f := range frames {
				view.Frames = append(view.Frames, hex.EncodeToString(f.Data))
			}
			return writeJSON(cmd, view)
		},
	}
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Sessions", strconv.Itoa(stats.Sessions)},
				{"Frames", strconv.Itoa(stats.Frames)},
				{"Patterns", strconv.Itoa(stats.Patterns)},
				{"Frame bytes", strconv.FormatInt(stats.FrameBytes, 10)},
			}
			if stats.Sessions > 0 {
				rows = append(rows,
					[]string{"Oldest", stats.Oldest.Local().Format(timeLayout)},
					[]string{"Newest", stats.Newest.Local().Format(timeLayout)},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			n, err := store.DeleteBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sessions\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age past which sessions are deleted")
	return cmd
}

func newHistoryMigrationsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrations",
		Short: "Show the journal schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			status, err := store.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema version %d of %d\n", status.CurrentVersion, status.LatestVersion)
			rows := make([][]string, 0, len(status.Applied))
			for _, m := range status.Applied {
				rows = append(rows, []string{strconv.Itoa(m.Version), m.AppliedAt.Local().Format(timeLayout), m.Description})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Version", "Applied", "Description"}, rows, []columnAlignment{alignRight}))
			}
			return nil
		},
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
