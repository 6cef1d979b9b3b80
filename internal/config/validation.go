package config

import (
	"errors"
	"fmt"
	"strings"

	"tactiled/internal/hybrid"
	"tactiled/internal/pattern"
	"tactiled/internal/protocol"
	"tactiled/internal/tables"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Fields returns the names of the offending fields.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateDevice(&c.Device)...)
	errs = append(errs, validateEncoding(&c.Encoding)...)
	errs = append(errs, validateProtocol(&c.Protocol)...)
	errs = append(errs, validateHistory(&c.History)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDevice(d *DeviceConfig) ValidationErrors {
	var errs ValidationErrors

	if d.ActuatorCount < 1 || d.ActuatorCount > pattern.MaxActuators {
		errs = append(errs, *RangeError("device.actuator_count", 1, pattern.MaxActuators))
	}
	if !isByte(d.DefaultIntensity) {
		errs = append(errs, *RangeError("device.default_intensity", 0, 255))
	}

	return errs
}

func validateEncoding(e *EncodingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := hybrid.ParseStrategy(e.Strategy); err != nil {
		errs = append(errs, ValidationError{
			Field:   "encoding.strategy",
			Message: fmt.Sprintf("invalid strategy: %s (valid: letter, phoneme, adaptive, word_level)", e.Strategy),
		})
	}

	if e.TablesPath != "" {
		if _, err := tables.FormatFromPath(e.TablesPath); err != nil {
			errs = append(errs, ValidationError{
				Field:   "encoding.tables_path",
				Message: "table file must be .yaml, .yml or .json",
			})
		}
	}

	return errs
}

func validateProtocol(p *ProtocolConfig) ValidationErrors {
	var errs ValidationErrors

	if p.MaxBatchPayload < 2 || p.MaxBatchPayload > protocol.MaxPayloadSize {
		errs = append(errs, *RangeError("protocol.max_batch_payload", 2, protocol.MaxPayloadSize))
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"protocol.intensity", p.Intensity},
		{"protocol.speed", p.Speed},
		{"protocol.pattern_spacing", p.PatternSpacing},
	} {
		if !isByte(f.value) {
			errs = append(errs, *RangeError(f.name, 0, 255))
		}
	}

	return errs
}

func validateHistory(h *HistoryConfig) ValidationErrors {
	var errs ValidationErrors

	if h.Enabled && h.Path == "" {
		errs = append(errs, *RequiredFieldError("history.path"))
	}
	if h.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.retention_days",
			Message: "retention cannot be negative",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	switch m.Format {
	case "prometheus", "json":
		return nil
	default:
		return ValidationErrors{{
			Field:   "metrics.format",
			Message: fmt.Sprintf("invalid metrics format: %s (valid: prometheus, json)", m.Format),
		}}
	}
}

func isByte(v int) bool {
	return v >= 0 && v <= 255
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
