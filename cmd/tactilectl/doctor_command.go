package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tactiled/internal/health"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the tables, encoder, journal and log location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}

			checker := health.NewChecker()
			checker.RegisterFunc("tables", true, health.TablesCheck(ctx.tables, ctx.config.Device.ActuatorCount))
			checker.RegisterFunc("encoder", true, health.EncoderCheck(ctx.orchestrator()))
			checker.RegisterFunc("config", true, health.FuncCheck("config valid", func(context.Context) error {
				return ctx.config.Validate()
			}))
			if ctx.config.History.Enabled {
				store, err := ctx.openHistory(cmd.Context())
				if err != nil {
					return err
				}
				checker.RegisterFunc("history", false, health.HistoryCheck(store))
			}
			if out := strings.ToLower(ctx.config.Logging.Output); out == "file" || out == "both" {
				checker.RegisterFunc("log_dir", false, health.WritableDirCheck(ctx.config.Logging.FilePath))
			}

			report := checker.Run(cmd.Context())
			if format == outputJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(report.Components))
				for _, name := range checker.Names() {
					res := report.Components[name]
					detail := res.Message
					if res.Error != "" {
						detail += ": " + res.Error
					}
					rows = append(rows, []string{name, string(res.Status), detail})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Component", "Status", "Detail"}, rows, nil))
				fmt.Fprintf(out, "Overall: %s\n", report.Status)
			}

			if report.Status == health.StatusUnhealthy {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table or json")
	return cmd
}
