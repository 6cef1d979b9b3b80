// Package hybrid chooses, token by token, whether text is rendered through
// the phoneme pipeline or the grapheme table.
//
// Input is split into whitespace and non-whitespace runs. Each whitespace run
// becomes a single pause pattern. Each other token is routed according to the
// strategy passed to Encode; a phoneme attempt that fails, panics or yields
// nothing falls back to letter encoding of the same token. The orchestrator
// holds no mutable state and is safe for concurrent use.
package hybrid

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"tactiled/internal/grapheme"
	"tactiled/internal/metrics"
	"tactiled/internal/pattern"
	"tactiled/internal/phoneme"
)

// GraphemeEncoder encodes text character by character.
type GraphemeEncoder interface {
	EncodeSymbol(r rune) (pattern.Pattern, bool)
	EncodeSequence(text string) []pattern.Pattern
}

// PhonemeEncoder encodes text through a phoneme conversion.
type PhonemeEncoder interface {
	EncodeText(text string) ([]pattern.Pattern, error)
}

var (
	// ErrNoPhonemes marks a phoneme attempt that produced no patterns.
	ErrNoPhonemes = errors.New("phoneme encoding produced no patterns")
	// ErrPhonemePanic marks a phoneme attempt that panicked.
	ErrPhonemePanic = errors.New("phoneme encoder panicked")
)

// Route records which encoder produced a segment.
type Route int

const (
	// RouteSpace is a whitespace run rendered as one pause.
	RouteSpace Route = iota
	// RouteGrapheme is letter encoding chosen up front.
	RouteGrapheme
	// RoutePhoneme is a successful phoneme encoding.
	RoutePhoneme
	// RouteFallback is letter encoding after a failed phoneme attempt.
	RouteFallback
)

func (r Route) String() string {
	switch r {
	case RouteSpace:
		return metrics.RouteSpace
	case RouteGrapheme:
		return metrics.RouteGrapheme
	case RoutePhoneme:
		return metrics.RoutePhoneme
	case RouteFallback:
		return metrics.RouteFallback
	default:
		return "unknown"
	}
}

// Segment is the encoding of one token.
type Segment struct {
	Token    Token
	Route    Route
	Patterns []pattern.Pattern
	// Reason explains a grapheme or fallback route; empty otherwise.
	Reason string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGraphemes sets the letter-mode encoder.
func WithGraphemes(enc GraphemeEncoder) Option {
	return func(o *Orchestrator) { o.graphemes = enc }
}

// WithPhonemes sets the phoneme-mode encoder.
func WithPhonemes(enc PhonemeEncoder) Option {
	return func(o *Orchestrator) { o.phonemes = enc }
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics enables per-token and per-call metrics.
func WithMetrics(m *metrics.EncoderMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithNormalization toggles NFC normalization of the input.
func WithNormalization(enabled bool) Option {
	return func(o *Orchestrator) { o.normalize = enabled }
}

// Orchestrator routes tokens between the grapheme and phoneme encoders.
type Orchestrator struct {
	graphemes GraphemeEncoder
	phonemes  PhonemeEncoder
	logger    *slog.Logger
	metrics   *metrics.EncoderMetrics
	normalize bool
}

// New returns an orchestrator. Without options it uses the built-in grapheme
// and phoneme encoders, normalizes input, and logs to slog.Default().
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{normalize: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.graphemes == nil {
		o.graphemes = grapheme.Default()
	}
	if o.phonemes == nil {
		o.phonemes = phoneme.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Encode renders text under strategy and returns the patterns of every
// token in input order. Phoneme failures are never returned; they are
// resolved by the fallback policy.
func (o *Orchestrator) Encode(text string, strategy Strategy) []pattern.Pattern {
	segments := o.EncodeSegments(text, strategy)

	n := 0
	for _, s := range segments {
		n += len(s.Patterns)
	}
	patterns := make([]pattern.Pattern, 0, n)
	for _, s := range segments {
		patterns = append(patterns, s.Patterns...)
	}
	return patterns
}

// EncodeSegments is Encode with the per-token routing kept.
func (o *Orchestrator) EncodeSegments(text string, strategy Strategy) []Segment {
	var timer *metrics.HistogramTimer
	if o.metrics != nil {
		timer = o.metrics.StartEncodeTimer()
	}

	if o.normalize && utf8.ValidString(text) {
		text = norm.NFC.String(text)
	}

	var segments []Segment
	switch strategy {
	case Letter:
		segments = o.encodeLetters(text)
	case Phoneme:
		segments = o.encodePhonemes(text)
	case HybridWordLevel:
		segments = o.encodeTokens(text, o.routeWordLevel)
	default:
		segments = o.encodeTokens(text, o.routeAdaptive)
	}

	if o.metrics != nil {
		timer.Stop()
		n := 0
		for _, s := range segments {
			o.metrics.RecordToken(s.Route.String())
			n += len(s.Patterns)
		}
		o.metrics.PatternsTotal.Add(uint64(n))
	}
	return segments
}

func (o *Orchestrator) encodeLetters(text string) []Segment {
	if text == "" {
		return nil
	}
	return []Segment{{
		Token:    Token{Text: text, Kind: Passage},
		Route:    RouteGrapheme,
		Patterns: o.graphemes.EncodeSequence(text),
	}}
}

// encodePhonemes has no fallback: a failed attempt yields an empty segment.
func (o *Orchestrator) encodePhonemes(text string) []Segment {
	if text == "" {
		return nil
	}
	seg := Segment{Token: Token{Text: text, Kind: Passage}, Route: RoutePhoneme}
	res := o.attemptPhonemes(text)
	if res.err != nil && !errors.Is(res.err, ErrNoPhonemes) {
		o.logger.Warn("phoneme encoding failed", "error", res.err)
		seg.Reason = res.err.Error()
		return []Segment{seg}
	}
	seg.Patterns = res.patterns
	return []Segment{seg}
}

type router func(tok Token) Segment

func (o *Orchestrator) encodeTokens(text string, route router) []Segment {
	tokens := Tokenize(text)
	segments := make([]Segment, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == Whitespace {
			segments = append(segments, o.space(tok))
			continue
		}
		segments = append(segments, route(tok))
	}
	return segments
}

// space renders a whitespace run of any length as one pause pattern.
func (o *Orchestrator) space(tok Token) Segment {
	seg := Segment{Token: tok, Route: RouteSpace}
	if p, ok := o.graphemes.EncodeSymbol(' '); ok {
		seg.Patterns = []pattern.Pattern{p}
	}
	return seg
}

func (o *Orchestrator) routeAdaptive(tok Token) Segment {
	if tok.Kind != Word {
		return o.letters(tok, RouteGrapheme, "non-word")
	}
	return o.phonemesOrFallback(tok)
}

func (o *Orchestrator) routeWordLevel(tok Token) Segment {
	if tok.Kind != Word {
		return o.letters(tok, RouteGrapheme, "non-word")
	}
	if !IsCommonWord(tok.Text) {
		return o.letters(tok, RouteGrapheme, "uncommon word")
	}
	return o.phonemesOrFallback(tok)
}

func (o *Orchestrator) letters(tok Token, route Route, reason string) Segment {
	return Segment{
		Token:    tok,
		Route:    route,
		Patterns: o.graphemes.EncodeSequence(tok.Text),
		Reason:   reason,
	}
}

func (o *Orchestrator) phonemesOrFallback(tok Token) Segment {
	res := o.attemptPhonemes(tok.Text)
	if res.err == nil {
		return Segment{Token: tok, Route: RoutePhoneme, Patterns: res.patterns}
	}
	o.logger.Debug("phoneme fallback", "token", tok.Text, "reason", res.err)
	return o.letters(tok, RouteFallback, res.err.Error())
}

// phonemeResult is the outcome of one phoneme attempt. A nil err means
// patterns is non-empty.
type phonemeResult struct {
	patterns []pattern.Pattern
	err      error
}

// attemptPhonemes runs the phoneme encoder and turns every failure mode,
// including a panic, into a result.
func (o *Orchestrator) attemptPhonemes(text string) (res phonemeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = phonemeResult{err: fmt.Errorf("%w: %v", ErrPhonemePanic, r)}
		}
	}()

	patterns, err := o.phonemes.EncodeText(text)
	if err != nil {
		return phonemeResult{err: err}
	}
	if len(patterns) == 0 {
		return phonemeResult{err: ErrNoPhonemes}
	}
	return phonemeResult{patterns: patterns}
}
