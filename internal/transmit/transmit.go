// Package transmit turns encoded patterns into protocol frames and writes
// them to a transport.
//
// In batch mode consecutive patterns are packed into PATTERN_BATCH messages
// no larger than the configured payload limit. A pattern too large for any
// batch travels alone as a PATTERN message.
package transmit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"tactiled/internal/metrics"
	"tactiled/internal/pattern"
	"tactiled/internal/protocol"
)

// Settings are the device parameters sent at the start of a session.
type Settings struct {
	Intensity      uint8
	Speed          uint8
	PatternSpacing uint8
}

// DefaultSettings returns full-scale intensity with neutral speed and
// spacing.
func DefaultSettings() Settings {
	return Settings{Intensity: pattern.DefaultIntensity, Speed: 100, PatternSpacing: 50}
}

// Result summarizes what was written.
type Result struct {
	Frames   [][]byte
	Messages int
	Patterns int
	Bytes    int
}

func (r *Result) add(frame []byte) {
	r.Frames = append(r.Frames, frame)
	r.Messages++
	r.Bytes += len(frame)
}

// RecordFunc receives the patterns and frames of each successful
// SendPatterns call.
type RecordFunc func(ctx context.Context, patterns []pattern.Pattern, frames [][]byte) error

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transmitter) { t.logger = logger }
}

// WithMetrics enables frame metrics.
func WithMetrics(m *metrics.EncoderMetrics) Option {
	return func(t *Transmitter) { t.metrics = m }
}

// WithBatch toggles PATTERN_BATCH packing.
func WithBatch(enabled bool) Option {
	return func(t *Transmitter) { t.batch = enabled }
}

// WithMaxBatchPayload caps the payload of each batch message. Values outside
// 2..255 select 255.
func WithMaxBatchPayload(n int) Option {
	return func(t *Transmitter) { t.maxBatch = n }
}

// WithRecorder registers a function that journals each transmission.
func WithRecorder(fn RecordFunc) Option {
	return func(t *Transmitter) { t.record = fn }
}

// Transmitter writes frames to w. Calls are serialized so frames from
// concurrent senders never interleave.
type Transmitter struct {
	mu       sync.Mutex
	w        io.Writer
	logger   *slog.Logger
	metrics  *metrics.EncoderMetrics
	batch    bool
	maxBatch int
	record   RecordFunc
}

// New returns a Transmitter writing to w. Batching is on by default.
func New(w io.Writer, opts ...Option) *Transmitter {
	t := &Transmitter{w: w, batch: true, maxBatch: protocol.MaxPayloadSize}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.maxBatch <= protocol.EmptyBatchSize || t.maxBatch > protocol.MaxPayloadSize {
		t.maxBatch = protocol.MaxPayloadSize
	}
	return t
}

// Send writes one message.
func (t *Transmitter) Send(ctx context.Context, m *protocol.Message) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res Result
	err := t.write(ctx, &res, m)
	return res, err
}

// Session sends the CONFIG messages that prepare the device for a
// transmission.
func (t *Transmitter) Session(ctx context.Context, s Settings) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res Result
	for _, m := range []*protocol.Message{
		protocol.NewConfigMessage(protocol.ConfigIntensity, s.Intensity),
		protocol.NewConfigMessage(protocol.ConfigSpeed, s.Speed),
		protocol.NewConfigMessage(protocol.ConfigPatternSpacing, s.PatternSpacing),
	} {
		if err := t.write(ctx, &res, m); err != nil {
			return res, err
		}
	}
	return res, nil
}

// SendPatterns frames and writes patterns in order. It stops at the first
// error and returns what was written so far.
func (t *Transmitter) SendPatterns(ctx context.Context, patterns []pattern.Pattern) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res Result
	var err error
	if t.batch {
		err = t.sendBatched(ctx, &res, patterns)
	} else {
		err = t.sendSingles(ctx, &res, patterns)
	}
	if err != nil {
		return res, err
	}

	if t.metrics != nil {
		t.metrics.RecordSession(res.Patterns)
	}
	if t.record != nil {
		if err := t.record(ctx, patterns, res.Frames); err != nil {
			return res, fmt.Errorf("record transmission: %w", err)
		}
	}
	return res, nil
}

func (t *Transmitter) sendSingles(ctx context.Context, res *Result, patterns []pattern.Pattern) error {
	for _, p := range patterns {
		if err := t.sendSingle(ctx, res, p); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transmitter) sendSingle(ctx context.Context, res *Result, p pattern.Pattern) error {
	m, err := protocol.NewPatternMessage(p)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", p.Symbol, err)
	}
	if err := t.write(ctx, res, m); err != nil {
		return err
	}
	res.Patterns++
	return nil
}

func (t *Transmitter) sendBatched(ctx context.Context, res *Result, patterns []pattern.Pattern) error {
	var pending []pattern.Pattern
	size := protocol.EmptyBatchSize

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		m, err := protocol.NewPatternBatchMessage(pending)
		if err != nil {
			return err
		}
		if err := t.write(ctx, res, m); err != nil {
			return err
		}
		res.Patterns += len(pending)
		pending = pending[:0]
		size = protocol.EmptyBatchSize
		return nil
	}

	for _, p := range patterns {
		item := protocol.BatchItemSize(p)
		if protocol.EmptyBatchSize+item > t.maxBatch {
			if err := flush(); err != nil {
				return err
			}
			if err := t.sendSingle(ctx, res, p); err != nil {
				return err
			}
			continue
		}
		if size+item > t.maxBatch || len(pending) == 255 {
			if err := flush(); err != nil {
				return err
			}
		}
		pending = append(pending, p)
		size += item
	}
	return flush()
}

func (t *Transmitter) write(ctx context.Context, res *Result, m *protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, err := m.Encode()
	if err != nil {
		return err
	}
	if _, err := t.w.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", m.Type, err)
	}

	res.add(frame)
	if t.metrics != nil {
		t.metrics.RecordFrame(len(frame))
	}
	t.logger.Debug("frame sent", "type", m.Type.String(), "bytes", len(frame))
	return nil
}
