package protocol

import (
	"errors"
	"fmt"
	"io"

	"tactiled/internal/metrics"
)

// WriteMessage frames m and writes it to w in a single Write call.
func WriteMessage(w io.Writer, m *Message) error {
	frame, err := m.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMetrics counts decoded and rejected frames.
func WithMetrics(m *metrics.EncoderMetrics) ReaderOption {
	return func(r *Reader) { r.metrics = m }
}

// Reader reads frames one at a time from a byte stream.
type Reader struct {
	r       io.Reader
	buf     [MaxFrameSize]byte
	metrics *metrics.EncoderMetrics
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{r: r}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Next reads and decodes the next frame. It returns io.EOF when the stream
// ends cleanly between frames.
func (r *Reader) Next() (*Message, error) {
	m, err := r.next()
	if r.metrics != nil && !errors.Is(err, io.EOF) {
		r.metrics.RecordDecode(err)
	}
	return m, err
}

func (r *Reader) next() (*Message, error) {
	if _, err := io.ReadFull(r.r, r.buf[:HeaderSize]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrFrameTruncated, err)
		}
		return nil, err
	}

	size := FrameSize(int(r.buf[1]))
	if _, err := io.ReadFull(r.r, r.buf[HeaderSize:size]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrFrameTruncated, io.ErrUnexpectedEOF)
		}
		return nil, err
	}

	return Decode(r.buf[:size])
}
