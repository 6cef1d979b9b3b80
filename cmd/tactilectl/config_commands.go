package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tactiled/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigWatchCommand(ctx))
	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch strings.ToLower(formatFlag) {
			case "toml":
				return toml.NewEncoder(out).Encode(ctx.config)
			case "json":
				return writeJSON(cmd, ctx.config)
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(ctx.config)
			default:
				return fmt.Errorf("unknown format %q (want toml, json or yaml)", formatFlag)
			}
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "toml", "Output format: toml, json or yaml")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath()
			if path == "" {
				path = config.ConfigPath()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "Config file does not exist; defaults are used")
			}

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				var verrs config.ValidationErrors
				if errors.As(err, &verrs) {
					for _, v := range verrs {
						fmt.Fprintf(out, "  %s\n", v.Error())
					}
				}
				return fmt.Errorf("configuration invalid: %d problem(s)", max(len(verrs), 1))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with the defaults",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = config.ConfigPath()
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.DefaultConfig().Save(target); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file (.toml, .json or .yaml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func newConfigWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the configuration file and report reloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(ctx.configPath())
			loader.SetLogger(ctx.logger.WithComponent("config").Logger)
			defer loader.Close()

			if _, err := loader.Load(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			loader.OnChange(func(cfg *config.Config) {
				fmt.Fprintf(out, "reloaded: strategy=%s batch=%s history=%s\n",
					cfg.Encoding.Strategy, yesNo(cfg.Protocol.Batch), yesNo(cfg.History.Enabled))
			})
			if err := loader.Watch(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", loader.Path())

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			for {
				select {
				case <-sigCtx.Done():
					return nil
				case err := <-loader.Errors():
					fmt.Fprintf(out, "reload failed: %v\n", err)
				}
			}
		},
	}
}
