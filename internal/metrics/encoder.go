package metrics

import (
	"sync"
	"time"
)

// Token routes as they appear in the route label.
const (
	RouteSpace    = "space"
	RouteGrapheme = "grapheme"
	RoutePhoneme  = "phoneme"
	RouteFallback = "fallback"
)

// EncoderMetrics holds the metrics for the encoding pipeline and wire codec.
type EncoderMetrics struct {
	registry *Registry

	// Counters
	TokensSpace    *Counter
	TokensGrapheme *Counter
	TokensPhoneme  *Counter
	TokensFallback *Counter
	PatternsTotal  *Counter
	FramesEncoded  *Counter
	FramesDecoded  *Counter
	DecodeFailures *Counter
	BytesFramed    *Counter
	SessionsTotal  *Counter

	// Gauges
	LastSessionPatterns *Gauge

	// Histograms
	EncodeDuration *Histogram
	FrameSize      *Histogram
}

// NewEncoderMetrics creates and registers the encoder metrics. A nil
// registry selects Default().
func NewEncoderMetrics(registry *Registry) *EncoderMetrics {
	if registry == nil {
		registry = Default()
	}

	tokens := func(route string) *Counter {
		return registry.RegisterCounter(
			"tokens_total",
			"Tokens encoded, by route",
			Labels{"route": route},
		)
	}

	return &EncoderMetrics{
		registry: registry,

		TokensSpace:    tokens(RouteSpace),
		TokensGrapheme: tokens(RouteGrapheme),
		TokensPhoneme:  tokens(RoutePhoneme),
		TokensFallback: tokens(RouteFallback),
		PatternsTotal: registry.RegisterCounter(
			"patterns_total",
			"Patterns emitted by the encoders",
			nil,
		),
		FramesEncoded: registry.RegisterCounter(
			"frames_encoded_total",
			"Wire frames encoded",
			nil,
		),
		FramesDecoded: registry.RegisterCounter(
			"frames_decoded_total",
			"Wire frames decoded successfully",
			nil,
		),
		DecodeFailures: registry.RegisterCounter(
			"decode_failures_total",
			"Wire frames rejected on decode",
			nil,
		),
		BytesFramed: registry.RegisterCounter(
			"bytes_framed_total",
			"Bytes written as wire frames",
			nil,
		),
		SessionsTotal: registry.RegisterCounter(
			"sessions_total",
			"Transmit sessions started",
			nil,
		),

		LastSessionPatterns: registry.RegisterGauge(
			"last_session_patterns",
			"Patterns sent in the most recent transmission",
			nil,
		),

		EncodeDuration: registry.RegisterHistogram(
			"encode_duration_seconds",
			"Duration of text encoding in seconds",
			nil,
			DurationBuckets,
		),
		FrameSize: registry.RegisterHistogram(
			"frame_size_bytes",
			"Size of encoded wire frames in bytes",
			nil,
			SizeBuckets,
		),
	}
}

// Registry returns the registry the metrics are registered in.
func (m *EncoderMetrics) Registry() *Registry {
	return m.registry
}

// RecordToken counts one token on the given route. Unknown routes are
// ignored.
func (m *EncoderMetrics) RecordToken(route string) {
	switch route {
	case RouteSpace:
		m.TokensSpace.Inc()
	case RouteGrapheme:
		m.TokensGrapheme.Inc()
	case RoutePhoneme:
		m.TokensPhoneme.Inc()
	case RouteFallback:
		m.TokensFallback.Inc()
	}
}

// RecordEncode records one encode call.
func (m *EncoderMetrics) RecordEncode(patterns int, d time.Duration) {
	m.PatternsTotal.Add(uint64(patterns))
	m.EncodeDuration.ObserveDuration(d)
}

// StartEncodeTimer returns a timer for encode calls.
func (m *EncoderMetrics) StartEncodeTimer() *HistogramTimer {
	return m.EncodeDuration.Timer()
}

// RecordFrame records one encoded frame.
func (m *EncoderMetrics) RecordFrame(size int) {
	m.FramesEncoded.Inc()
	m.BytesFramed.Add(uint64(size))
	m.FrameSize.Observe(float64(size))
}

// RecordDecode records the outcome of decoding one frame.
func (m *EncoderMetrics) RecordDecode(err error) {
	if err != nil {
		m.DecodeFailures.Inc()
		return
	}
	m.FramesDecoded.Inc()
}

// RecordSession records the end of a transmission.
func (m *EncoderMetrics) RecordSession(patterns int) {
	m.SessionsTotal.Inc()
	m.LastSessionPatterns.Set(int64(patterns))
}

// Snapshot returns the key encoder metrics.
func (m *EncoderMetrics) Snapshot() map[string]any {
	return map[string]any{
		"tokens_space":          m.TokensSpace.Value(),
		"tokens_grapheme":       m.TokensGrapheme.Value(),
		"tokens_phoneme":        m.TokensPhoneme.Value(),
		"tokens_fallback":       m.TokensFallback.Value(),
		"patterns_total":        m.PatternsTotal.Value(),
		"frames_encoded":        m.FramesEncoded.Value(),
		"frames_decoded":        m.FramesDecoded.Value(),
		"decode_failures":       m.DecodeFailures.Value(),
		"bytes_framed":          m.BytesFramed.Value(),
		"encode_avg_seconds":    m.EncodeDuration.Mean(),
		"last_session_patterns": m.LastSessionPatterns.Value(),
	}
}

var (
	defaultEncoderOnce    sync.Once
	defaultEncoderMetrics *EncoderMetrics
)

// GetMetrics returns the global encoder metrics, registered in Default().
func GetMetrics() *EncoderMetrics {
	defaultEncoderOnce.Do(func() {
		defaultEncoderMetrics = NewEncoderMetrics(Default())
	})
	return defaultEncoderMetrics
}
