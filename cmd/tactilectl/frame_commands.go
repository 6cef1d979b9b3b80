package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tactiled/internal/protocol"
	"tactiled/internal/transmit"
)

func newFrameCommand(ctx *commandContext) *cobra.Command {
	var strategyFlag string
	var batchFlag bool
	var recordFlag bool
	var preambleFlag bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "frame <text>...",
		Short: "Encode text and print the protocol frames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := ctx.strategy(strategyFlag)
			if err != nil {
				return err
			}
			batch := ctx.config.Protocol.Batch
			if cmd.Flags().Changed("batch") {
				batch = batchFlag
			}
			record := ctx.config.History.Enabled
			if cmd.Flags().Changed("record") {
				record = recordFlag
			}

			text := strings.Join(args, " ")
			patterns := ctx.orchestrator().Encode(text, strategy)

			var stream bytes.Buffer
			opts := []transmit.Option{
				transmit.WithLogger(ctx.logger.WithComponent("transmit").Logger),
				transmit.WithBatch(batch),
				transmit.WithMaxBatchPayload(ctx.config.Protocol.MaxBatchPayload),
			}
			if ctx.metrics != nil {
				opts = append(opts, transmit.WithMetrics(ctx.metrics))
			}
			if record {
				store, err := ctx.openHistory(cmd.Context())
				if err != nil {
					return err
				}
				opts = append(opts, transmit.WithRecorder(ctx.recorder(store, strategy, text)))
			}
			tx := transmit.New(&stream, opts...)

			var frames [][]byte
			if preambleFlag {
				res, err := tx.Session(cmd.Context(), ctx.settings())
				if err != nil {
					return fmt.Errorf("send session settings: %w", err)
				}
				frames = append(frames, res.Frames...)
			}
			res, err := tx.SendPatterns(cmd.Context(), patterns)
			if err != nil {
				return fmt.Errorf("frame patterns: %w", err)
			}
			frames = append(frames, res.Frames...)

			if outPath != "" {
				if err := os.WriteFile(outPath, stream.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write frames: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			for _, f := range frames {
				fmt.Fprintf(out, "%-17s %s\n", protocol.MessageType(f[0]), hex.EncodeToString(f))
			}
			fmt.Fprintf(out, "%d patterns in %d frames, %d bytes\n", res.Patterns, len(frames), stream.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "Encoding strategy: letter, phoneme, adaptive, word_level")
	cmd.Flags().BoolVar(&batchFlag, "batch", true, "Pack patterns into PATTERN_BATCH messages")
	cmd.Flags().BoolVar(&recordFlag, "record", false, "Record the session in the history journal")
	cmd.Flags().BoolVar(&preambleFlag, "preamble", false, "Send the CONFIG settings before the patterns")
	cmd.Flags().StringVar(&outPath, "out", "", "Also write the raw frame stream to this file")
	return cmd
}

type messageView struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Body    any    `json:"body,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "decode [hex]...",
		Short: "Decode a stream of protocol frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeInput(filePath, args)
			if err != nil {
				return err
			}

			var opts []protocol.ReaderOption
			if ctx.metrics != nil {
				opts = append(opts, protocol.WithMetrics(ctx.metrics))
			}
			messages, err := decodeStream(bytes.NewReader(data), opts...)
			if len(messages) > 0 {
				if werr := writeJSON(cmd, messages); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read a raw frame stream from this file")
	return cmd
}

func decodeInput(path string, args []string) ([]byte, error) {
	if path != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("pass either --file or hex arguments, not both")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read frames: %w", err)
		}
		return data, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no frames given")
	}

	joined := strings.Join(args, "")
	joined = strings.NewReplacer(" ", "", ":", "", "\n", "").Replace(joined)
	data, err := hex.DecodeString(joined)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return data, nil
}

// decodeStream reads frames until the stream ends. Messages decoded before
// a framing error are returned with it.
func decodeStream(r io.Reader, opts ...protocol.ReaderOption) ([]messageView, error) {
	reader := protocol.NewReader(r, opts...)
	var out []messageView
	for {
		m, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("frame %d: %w", len(out), err)
		}

		view := messageView{Type: m.Type.String(), Payload: hex.EncodeToString(m.Payload)}
		body, err := protocol.ParsePayload(m)
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Body = describePayload(body)
		}
		out = append(out, view)
	}
}

// describePayload renders typed payloads with symbolic enum names.
func describePayload(body any) any {
	switch p := body.(type) {
	case *protocol.PatternPayload:
		return patternPayloadView(p)
	case *protocol.PatternBatchPayload:
		items := make([]any, len(p.Items))
		for i := range p.Items {
			items[i] = patternPayloadView(&p.Items[i])
		}
		return map[string]any{"count": len(p.Items), "items": items}
	case *protocol.ConfigPayload:
		return map[string]any{"setting": p.Type.String(), "value": p.Value}
	case *protocol.StatusPayload:
		view := map[string]any{
			"battery_level":      p.BatteryLevel,
			"connection_quality": p.ConnectionQuality,
			"queue_length":       p.QueueLength,
		}
		if code, ok := p.Err(); ok {
			view["error"] = code.String()
		}
		return view
	case *protocol.ErrorPayload:
		return map[string]any{"code": p.Code.String(), "message": p.Message}
	default:
		return body
	}
}

func patternPayloadView(p *protocol.PatternPayload) map[string]any {
	pat := p.Pattern()
	return map[string]any{
		"symbol":            pat.Symbol,
		"events":            pat.Events,
		"total_duration_ms": pat.TotalDurationMs,
	}
}

func newStatusCommand() *cobra.Command {
	var battery uint8
	var quality int8
	var errorCode uint8
	var queue uint8

	cmd := &cobra.Command{
		Use:         "status",
		Short:       "Build a STATUS_RESPONSE frame",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if errorCode != 0 {
				if _, err := protocol.ParseErrorCode(errorCode); err != nil {
					return err
				}
			}
			m := protocol.NewStatusResponseMessage(protocol.StatusPayload{
				BatteryLevel:      battery,
				ConnectionQuality: quality,
				ErrorCode:         errorCode,
				QueueLength:       queue,
			})
			return printFrame(cmd, m)
		},
	}

	cmd.Flags().Uint8Var(&battery, "battery", 100, "Battery level in percent")
	cmd.Flags().Int8Var(&quality, "quality", 0, "Connection quality (signed, e.g. RSSI in dBm)")
	cmd.Flags().Uint8Var(&errorCode, "error", 0, "Device error code, 0 for none")
	cmd.Flags().Uint8Var(&queue, "queue", 0, "Patterns waiting in the device queue")

	cmd.AddCommand(newControlMessageCommand("request", "Build a STATUS_REQUEST frame", protocol.NewStatusRequestMessage))
	cmd.AddCommand(newControlMessageCommand("heartbeat", "Build a HEARTBEAT frame", protocol.NewHeartbeatMessage))
	cmd.AddCommand(newControlMessageCommand("reset", "Build a RESET frame", protocol.NewResetMessage))
	cmd.AddCommand(newErrorMessageCommand())
	return cmd
}

func newControlMessageCommand(use, short string, build func() *protocol.Message) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFrame(cmd, build())
		},
	}
}

func newErrorMessageCommand() *cobra.Command {
	var code uint8

	cmd := &cobra.Command{
		Use:   "error [message]",
		Short: "Build an ERROR frame",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ec, err := protocol.ParseErrorCode(code)
			if err != nil {
				return err
			}
			var text string
			if len(args) == 1 {
				text = args[0]
			}
			return printFrame(cmd, protocol.NewErrorMessage(ec, text))
		},
	}

	cmd.Flags().Uint8Var(&code, "code", uint8(protocol.ErrCodeInvalidMessage), "Error code")
	return cmd
}

func printFrame(cmd *cobra.Command, m *protocol.Message) error {
	frame, err := m.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(frame))
	return nil
}
