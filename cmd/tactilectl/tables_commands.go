package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tactiled/internal/pattern"
	"tactiled/internal/tables"
)

func newTablesCommand(ctx *commandContext) *cobra.Command {
	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "Pattern and pronunciation table utilities",
	}

	tablesCmd.AddCommand(newTablesValidateCommand(ctx))
	tablesCmd.AddCommand(newTablesListCommand(ctx))
	tablesCmd.AddCommand(newTablesSchemaCommand())
	return tablesCmd
}

func newTablesValidateCommand(ctx *commandContext) *cobra.Command {
	var actuators int

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a YAML or JSON table file against the schema and the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := tables.Load(args[0])
			if err != nil {
				return err
			}
			if actuators <= 0 {
				actuators = ctx.config.Device.ActuatorCount
			}
			if err := set.Validate(actuators); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Table", "Entries", "Fingerprint"},
				[][]string{
					{"graphemes", strconv.Itoa(set.Graphemes.Len()), short(set.Graphemes.Fingerprint())},
					{"phonemes", strconv.Itoa(set.Phonemes.Len()), short(set.Phonemes.Fingerprint())},
					{"rules", strconv.Itoa(set.Rules.Len()), ""},
					{"set", "", short(set.Fingerprint())},
				},
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			if unknown := set.UnknownPhonemes(); len(unknown) > 0 {
				fmt.Fprintf(out, "Warning: rules emit phonemes without a pattern: %s\n", strings.Join(unknown, " "))
			}
			fmt.Fprintf(out, "Tables valid for %d actuators\n", actuators)
			return nil
		},
	}

	cmd.Flags().IntVar(&actuators, "actuators", 0, "Actuator count to check against (default: configured device)")
	return cmd
}

func newTablesListCommand(ctx *commandContext) *cobra.Command {
	var which string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the symbols of the active tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var table *pattern.Table
			switch strings.ToLower(which) {
			case "graphemes":
				table = ctx.tables.Graphemes
			case "phonemes":
				table = ctx.tables.Phonemes
			case "rules":
				rows := make([][]string, 0, ctx.tables.Rules.Len())
				for _, g := range ctx.tables.Rules.Graphemes() {
					rule, _ := ctx.tables.Rules.Lookup(g)
					rows = append(rows, []string{strconv.Quote(g), rule.String()})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Graphemes", "Phonemes"}, rows, nil))
				return nil
			default:
				return fmt.Errorf("unknown table %q (want graphemes, phonemes or rules)", which)
			}

			rows := make([][]string, 0, table.Len())
			for _, sym := range table.Symbols() {
				p, _ := table.Lookup(sym)
				rows = append(rows, []string{strconv.Quote(sym), strconv.Itoa(p.Len()), strconv.Itoa(p.TotalDurationMs)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Symbol", "Events", "Duration (ms)"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&which, "table", "t", "graphemes", "Table to list: graphemes, phonemes or rules")
	return cmd
}

func newTablesSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "schema",
		Short:       "Print the JSON schema for table files",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(tables.Schema())
			return err
		},
	}
}

// short abbreviates a hex digest for display.
func short(digest string) string {
	if len(digest) > 16 {
		return digest[:16]
	}
	return digest
}
