package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tactiled/internal/config"
	"tactiled/internal/history"
	"tactiled/internal/hybrid"
	"tactiled/internal/logging"
	"tactiled/internal/metrics"
	"tactiled/internal/pattern"
	"tactiled/internal/tables"
	"tactiled/internal/transmit"
)

// commandContext lazily builds what the commands share: the configuration,
// the logger, the tables and encoder, the metrics and the journal.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	config  *config.Config
	logger  *logging.Logger
	tables  *tables.Set
	metrics *metrics.EncoderMetrics
	history *history.Store
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads and validates the configuration and sets up logging,
// metrics and the pattern tables.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}

	cfg, err := config.Load(c.configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, cmd)
	if err != nil {
		return nil, err
	}

	set := tables.Default()
	if cfg.Encoding.TablesPath != "" {
		set, err = tables.Load(cfg.Encoding.TablesPath)
		if err != nil {
			return nil, fmt.Errorf("load tables: %w", err)
		}
		if unknown := set.UnknownPhonemes(); len(unknown) > 0 {
			logger.Warn("rules emit phonemes missing from the phoneme table",
				"path", cfg.Encoding.TablesPath, "phonemes", strings.Join(unknown, " "))
		}
	}
	if err := set.Validate(cfg.Device.ActuatorCount); err != nil {
		return nil, fmt.Errorf("tables do not fit the device: %w", err)
	}

	if cfg.Metrics.Enabled {
		c.metrics = metrics.NewEncoderMetrics(metrics.NewRegistry("tactiled", ""))
	}

	c.config = cfg
	c.logger = logger
	c.tables = set
	return cfg, nil
}

func newLogger(cfg *config.Config, cmd *cobra.Command) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = cfg.Logging.Output
	lc.FilePath = cfg.Logging.FilePath
	lc.MaxSize = int64(cfg.Logging.MaxSizeMB)
	lc.MaxBackups = cfg.Logging.MaxBackups
	lc.Compress = cfg.Logging.Compress
	lc.RedactText = cfg.Logging.RedactText
	if strings.EqualFold(cfg.Logging.Output, "stderr") {
		lc.Writer = cmd.ErrOrStderr()
	}

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, nil
}

func (c *commandContext) slog() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger.Logger
}

// orchestrator builds an encoder over the loaded tables.
func (c *commandContext) orchestrator() *hybrid.Orchestrator {
	opts := []hybrid.Option{
		hybrid.WithGraphemes(c.tables.GraphemeEncoder()),
		hybrid.WithPhonemes(c.tables.PhonemeEncoder()),
		hybrid.WithLogger(c.logger.WithComponent("hybrid").Logger),
		hybrid.WithNormalization(c.config.Encoding.Normalize),
	}
	if c.metrics != nil {
		opts = append(opts, hybrid.WithMetrics(c.metrics))
	}
	return hybrid.New(opts...)
}

// strategy resolves a --strategy flag, falling back to the configured one.
func (c *commandContext) strategy(flag string) (hybrid.Strategy, error) {
	if strings.TrimSpace(flag) == "" {
		return c.config.Strategy()
	}
	return hybrid.ParseStrategy(flag)
}

// settings converts the protocol section into session CONFIG values.
func (c *commandContext) settings() transmit.Settings {
	p := c.config.Protocol
	return transmit.Settings{
		Intensity:      uint8(p.Intensity),
		Speed:          uint8(p.Speed),
		PatternSpacing: uint8(p.PatternSpacing),
	}
}

// openHistory opens the journal and prunes sessions past the retention
// window. The store stays open until the command finishes.
func (c *commandContext) openHistory(ctx context.Context) (*history.Store, error) {
	if c.history != nil {
		return c.history, nil
	}

	store, err := history.Open(c.config.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	if days := c.config.History.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.DeleteBefore(ctx, cutoff)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("prune history: %w", err)
		}
		if n > 0 {
			c.slog().Info("pruned history", "sessions", n, "retention_days", days)
		}
	}

	c.history = store
	return store, nil
}

// recorder journals a transmission as one history session.
func (c *commandContext) recorder(store *history.Store, strategy hybrid.Strategy, text string) transmit.RecordFunc {
	return func(ctx context.Context, patterns []pattern.Pattern, frames [][]byte) error {
		sess := &history.Session{
			Strategy:         strategy.String(),
			Text:             text,
			PatternCount:     len(patterns),
			TotalDurationMs:  int(pattern.TotalDuration(patterns).Milliseconds()),
			TableFingerprint: c.tables.Fingerprint(),
		}
		if err := store.RecordSession(ctx, sess, frames); err != nil {
			return err
		}
		c.logger.WithSession(sess.ID.String()).Debug("session recorded",
			"patterns", sess.PatternCount, "frames", len(frames))
		return nil
	}
}

func (c *commandContext) close() error {
	var errs []error
	if c.history != nil {
		errs = append(errs, c.history.Close())
		c.history = nil
	}
	if c.logger != nil {
		errs = append(errs, c.logger.Close())
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
