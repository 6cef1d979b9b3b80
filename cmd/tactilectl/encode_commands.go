package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"tactiled/internal/hybrid"
	"tactiled/internal/pattern"
	"tactiled/internal/unified"
)

type segmentView struct {
	Token    string            `json:"token"`
	Kind     string            `json:"kind"`
	Route    string            `json:"route"`
	Reason   string            `json:"reason,omitempty"`
	Patterns []pattern.Pattern `json:"patterns"`
}

type encodeView struct {
	Strategy        string        `json:"strategy"`
	PatternCount    int           `json:"pattern_count"`
	TotalDurationMs int           `json:"total_duration_ms"`
	Segments        []segmentView `json:"segments"`
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var strategyFlag string
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "encode <text>...",
		Short: "Encode text into actuator patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			strategy, err := ctx.strategy(strategyFlag)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			segments := ctx.orchestrator().EncodeSegments(text, strategy)
			view := buildEncodeView(strategy, segments)

			if format == outputJSON {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Token", "Route", "Symbol", "Events", "Duration (ms)"},
				segmentRows(view.Segments),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d patterns, %d ms (%s)\n", view.PatternCount, view.TotalDurationMs, view.Strategy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "Encoding strategy: letter, phoneme, adaptive, word_level")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table or json")
	return cmd
}

func buildEncodeView(strategy hybrid.Strategy, segments []hybrid.Segment) encodeView {
	view := encodeView{Strategy: strategy.String(), Segments: make([]segmentView, 0, len(segments))}
	for _, s := range segments {
		patterns := s.Patterns
		if patterns == nil {
			patterns = []pattern.Pattern{}
		}
		view.Segments = append(view.Segments, segmentView{
			Token:    s.Token.Text,
			Kind:     s.Token.Kind.String(),
			Route:    s.Route.String(),
			Reason:   s.Reason,
			Patterns: patterns,
		})
		view.PatternCount += len(s.Patterns)
		view.TotalDurationMs += int(pattern.TotalDuration(s.Patterns).Milliseconds())
	}
	return view
}

// segmentRows lists one row per pattern; the token and route appear on the
// first row of each segment.
func segmentRows(segments []segmentView) [][]string {
	var rows [][]string
	for _, s := range segments {
		token := strconv.Quote(s.Token)
		if len(s.Patterns) == 0 {
			rows = append(rows, []string{token, s.Route, "-", "0", "0"})
			continue
		}
		for i, p := range s.Patterns {
			row := []string{"", "", strconv.Quote(p.Symbol), strconv.Itoa(p.Len()), strconv.Itoa(p.TotalDurationMs)}
			if i == 0 {
				row[0], row[1] = token, s.Route
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func newPhonemesCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "phonemes <text>...",
		Short: "Show the phoneme sequence the rules produce for text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if !utf8.ValidString(text) {
				return fmt.Errorf("text is not valid UTF-8")
			}

			enc := ctx.tables.PhonemeEncoder()
			phonemes := enc.TextToPhonemes(text)
			if phonemes == nil {
				phonemes = []string{}
			}
			if format == outputJSON {
				return writeJSON(cmd, map[string]any{"text": text, "phonemes": phonemes})
			}

			rows := make([][]string, 0, len(phonemes))
			for i, ph := range phonemes {
				_, ok := enc.EncodePhoneme(ph)
				rows = append(rows, []string{strconv.Itoa(i), strconv.Quote(ph), yesNo(ok)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Phoneme", "Pattern"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table or json")
	return cmd
}

func newSymbolCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "symbol <character>",
		Short: "Encode a single character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := unified.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			if utf8.RuneCountInString(args[0]) != 1 {
				return fmt.Errorf("expected exactly one character, got %q", args[0])
			}
			r, _ := utf8.DecodeRuneInString(args[0])

			enc := unified.New(mode,
				unified.WithGraphemes(ctx.tables.GraphemeEncoder()),
				unified.WithPhonemes(ctx.tables.PhonemeEncoder()),
			)
			p, ok := enc.EncodeSymbol(r)
			if !ok {
				return fmt.Errorf("no %s pattern for %q", enc.ModeName(), r)
			}
			return writeJSON(cmd, p)
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "letter", "Encoding mode: letter or phoneme")
	return cmd
}
