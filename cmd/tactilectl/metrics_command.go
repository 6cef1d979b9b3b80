package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tactiled/internal/hybrid"
	"tactiled/internal/transmit"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var strategyFlag string
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "metrics [text]...",
		Short: "Encode and frame text, then print the collected metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.metrics == nil {
				return fmt.Errorf("metrics are disabled in the configuration")
			}
			format := formatFlag
			if format == "" {
				format = ctx.config.Metrics.Format
			}

			if len(args) > 0 {
				strategy, err := ctx.strategy(strategyFlag)
				if err != nil {
					return err
				}
				if err := encodeAndFrame(cmd, ctx, strategy, strings.Join(args, " ")); err != nil {
					return err
				}
			}

			registry := ctx.metrics.Registry()
			switch strings.ToLower(format) {
			case "prometheus":
				return registry.WritePrometheus(cmd.OutOrStdout())
			case "json":
				return registry.WriteJSON(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown metrics format %q (want prometheus or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "Encoding strategy: letter, phoneme, adaptive, word_level")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Exposition format: prometheus or json (default: configured)")
	return cmd
}

// encodeAndFrame runs text through the encoder and the transmitter so the
// metrics reflect a full pass. The frames are discarded.
func encodeAndFrame(cmd *cobra.Command, ctx *commandContext, strategy hybrid.Strategy, text string) error {
	patterns := ctx.orchestrator().Encode(text, strategy)
	tx := transmit.New(io.Discard,
		transmit.WithLogger(ctx.slog()),
		transmit.WithMetrics(ctx.metrics),
		transmit.WithBatch(ctx.config.Protocol.Batch),
		transmit.WithMaxBatchPayload(ctx.config.Protocol.MaxBatchPayload),
	)
	if _, err := tx.SendPatterns(cmd.Context(), patterns); err != nil {
		return fmt.Errorf("frame patterns: %w", err)
	}
	return nil
}
