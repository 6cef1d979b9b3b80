package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tactiled/internal/history"
	"tactiled/internal/hybrid"
	"tactiled/internal/pattern"
	"tactiled/internal/protocol"
	"tactiled/internal/tables"
)

// probeText mixes common words, a proper word, a number and code so every
// route of the orchestrator is exercised.
const probeText = "The quick brown fox jumps over 42 lazy dogs at user@example.com"

// TablesCheck validates the active tables against the device. Rules that
// emit phonemes without a pattern degrade the result, since those phonemes
// are silently skipped.
func TablesCheck(set *tables.Set, actuators int) Check {
	return func(ctx context.Context) CheckResult {
		if err := set.Validate(actuators); err != nil {
			return failed("tables do not fit the device", err)
		}

		details := map[string]any{
			"graphemes":   set.Graphemes.Len(),
			"phonemes":    set.Phonemes.Len(),
			"rules":       set.Rules.Len(),
			"fingerprint": set.Fingerprint(),
		}
		if unknown := set.UnknownPhonemes(); len(unknown) > 0 {
			details["unknown_phonemes"] = unknown
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("rules emit %d phonemes without a pattern", len(unknown)),
				Details: details,
			}
		}
		return healthy("tables valid", details)
	}
}

// EncoderCheck encodes a probe sentence under every strategy and frames
// each pattern, decoding the frame again to confirm the codec round trip.
func EncoderCheck(o *hybrid.Orchestrator) Check {
	return func(ctx context.Context) CheckResult {
		details := make(map[string]any)
		for _, s := range hybrid.Strategies() {
			if err := ctx.Err(); err != nil {
				return failed("encoder probe interrupted", err)
			}

			patterns := o.Encode(probeText, s)
			if len(patterns) == 0 {
				return failed("encoder produced no patterns", fmt.Errorf("strategy %s", s))
			}
			if err := roundTrip(patterns); err != nil {
				return failed("frame round trip failed", fmt.Errorf("strategy %s: %w", s, err))
			}
			details[s.String()] = len(patterns)
		}
		return healthy("all strategies encode and frame", details)
	}
}

func roundTrip(patterns []pattern.Pattern) error {
	for _, p := range patterns {
		m, err := protocol.NewPatternMessage(p)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p.Symbol, err)
		}
		frame, err := m.Encode()
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p.Symbol, err)
		}
		decoded, err := protocol.Decode(frame)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p.Symbol, err)
		}
		payload, err := protocol.DeserializePattern(decoded.Payload)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p.Symbol, err)
		}
		if len(payload.Events) != len(p.Events) {
			return fmt.Errorf("pattern %q: %d events decoded, %d sent", p.Symbol, len(payload.Events), len(p.Events))
		}
	}
	return nil
}

// HistoryCheck confirms the journal answers queries and its schema is
// current.
func HistoryCheck(store *history.Store) Check {
	return func(ctx context.Context) CheckResult {
		if err := store.Ping(ctx); err != nil {
			return failed("journal unreachable", err)
		}
		status, err := store.MigrationStatus(ctx)
		if err != nil {
			return failed("read journal schema", err)
		}
		// queries assume the latest schema
		if status.CurrentVersion != status.LatestVersion {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("journal schema at version %d of %d", status.CurrentVersion, status.LatestVersion),
				Details: map[string]any{"schema_version": status.CurrentVersion},
			}
		}
		stats, err := store.Stats(ctx)
		if err != nil {
			return failed("read journal stats", err)
		}

		details := map[string]any{
			"schema_version": status.CurrentVersion,
			"sessions":       stats.Sessions,
			"frame_bytes":    stats.FrameBytes,
		}
		return healthy("journal ok", details)
	}
}

// WritableDirCheck confirms a file can be created in the directory holding
// path.
func WritableDirCheck(path string) Check {
	return func(ctx context.Context) CheckResult {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failed("cannot create directory", err)
		}
		f, err := os.CreateTemp(dir, ".tactiled-probe-*")
		if err != nil {
			return failed("directory not writable", err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return healthy("directory writable", map[string]any{"path": dir})
	}
}

// FuncCheck adapts a plain error-returning function.
func FuncCheck(msg string, fn func(ctx context.Context) error) Check {
	return func(ctx context.Context) CheckResult {
		if err := fn(ctx); err != nil {
			return failed(strings.TrimSpace(msg+" failed"), err)
		}
		return healthy(msg, nil)
	}
}
