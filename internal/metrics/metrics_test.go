package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry("test", "")

	c := r.RegisterCounter("hits", "hits", nil)
	c.Inc()
	c.Add(4)
	assert.Equal(t, uint64(5), c.Value())
	assert.Equal(t, "test_hits", c.Name())
	assert.Same(t, c, r.RegisterCounter("hits", "hits", nil), "re-registering returns the same counter")

	g := r.RegisterGauge("depth", "depth", nil)
	g.Set(10)
	g.Dec()
	g.Inc()
	g.Inc()
	assert.Equal(t, int64(11), g.Value())
	assert.Same(t, g, r.GetGauge("depth", nil))
}

func TestCounter_LabelsAreDistinct(t *testing.T) {
	r := NewRegistry("", "")
	a := r.RegisterCounter("tokens_total", "t", Labels{"route": "a"})
	b := r.RegisterCounter("tokens_total", "t", Labels{"route": "b"})
	require.NotSame(t, a, b)

	a.Inc()
	assert.Equal(t, uint64(1), r.GetCounter("tokens_total", Labels{"route": "a"}).Value())
	assert.Equal(t, uint64(0), r.GetCounter("tokens_total", Labels{"route": "b"}).Value())
}

func TestHistogram_Buckets(t *testing.T) {
	h := NewHistogram("h", "h", nil, []float64{10, 1, 5})

	for _, v := range []float64{0.5, 1, 3, 5, 7, 100} {
		h.Observe(v)
	}

	// bounds sorted to 1, 5, 10, then +Inf
	assert.Equal(t, []uint64{2, 4, 5, 6}, h.Cumulative())
	assert.Equal(t, uint64(6), h.Count())
	assert.InDelta(t, 116.5, h.Sum(), 1e-9)
	assert.InDelta(t, 116.5/6, h.Mean(), 1e-9)
}

func TestHistogram_Timer(t *testing.T) {
	h := NewHistogram("h", "h", nil, DurationBuckets)
	d := h.Timer().Stop()
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, uint64(1), h.Count())
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("tactiled", "")
	r.RegisterCounter("tokens_total", "Tokens", Labels{"route": "phoneme"}).Add(3)
	r.RegisterCounter("tokens_total", "Tokens", Labels{"route": "grapheme"}).Add(2)
	r.RegisterGauge("queue", "Queue", nil).Set(7)
	r.RegisterHistogram("size", "Size", nil, []float64{8, 16}).Observe(10)

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, "# TYPE tactiled_tokens_total counter"))
	assert.Contains(t, out, `tactiled_tokens_total{route="grapheme"} 2`)
	assert.Contains(t, out, `tactiled_tokens_total{route="phoneme"} 3`)
	assert.Contains(t, out, "tactiled_queue 7")
	assert.Contains(t, out, `tactiled_size_bucket{le="8"} 0`)
	assert.Contains(t, out, `tactiled_size_bucket{le="16"} 1`)
	assert.Contains(t, out, `tactiled_size_bucket{le="+Inf"} 1`)
	assert.Contains(t, out, "tactiled_size_count 1")

	// grapheme sorts before phoneme
	assert.Less(t, strings.Index(out, `route="grapheme"`), strings.Index(out, `route="phoneme"`))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWritePrometheus_WriteError(t *testing.T) {
	r := NewRegistry("", "")
	r.RegisterCounter("c", "c", nil)
	assert.Error(t, r.WritePrometheus(failingWriter{}))
}

func TestWriteJSON(t *testing.T) {
	r := NewRegistry("x", "")
	r.RegisterCounter("c", "help", nil).Inc()
	r.RegisterHistogram("h", "help", nil, []float64{1}).Observe(2)

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "counter", decoded["x_c"]["type"])
	assert.Equal(t, float64(1), decoded["x_c"]["value"])
	assert.Equal(t, "histogram", decoded["x_h"]["type"])
	assert.Equal(t, float64(1), decoded["x_h"]["count"])
}

func TestSnapshotAndReset(t *testing.T) {
	r := NewRegistry("", "")
	r.RegisterCounter("c", "c", nil).Add(9)
	r.RegisterHistogram("h", "h", nil, nil).Observe(0.1)

	snap := r.Snapshot()
	assert.Equal(t, uint64(9), snap["c"])
	assert.Equal(t, uint64(1), snap["h_count"])

	r.Reset()
	snap = r.Snapshot()
	assert.Equal(t, uint64(0), snap["c"])
	assert.Equal(t, uint64(0), snap["h_count"])
}

func TestHTTPHandler(t *testing.T) {
	r := NewRegistry("", "")
	r.RegisterCounter("c", "c", nil).Inc()
	h := r.HTTPHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "c 1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, json.Valid(rec.Body.Bytes()))
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry("", "")
	c := r.RegisterCounter("c", "c", nil)
	h := r.RegisterHistogram("h", "h", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc()
				h.Observe(0.01)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8000), c.Value())
	assert.Equal(t, uint64(8000), h.Count())
}

func TestEncoderMetrics(t *testing.T) {
	r := NewRegistry("tactiled", "")
	m := NewEncoderMetrics(r)
	assert.Same(t, r, m.Registry())

	m.RecordToken(RoutePhoneme)
	m.RecordToken(RouteFallback)
	m.RecordToken(RouteFallback)
	m.RecordToken("bogus")
	m.RecordEncode(12, time.Millisecond)
	m.RecordFrame(9)
	m.RecordFrame(5)
	m.RecordDecode(nil)
	m.RecordDecode(errors.New("bad checksum"))
	m.RecordSession(12)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap["tokens_phoneme"])
	assert.Equal(t, uint64(2), snap["tokens_fallback"])
	assert.Equal(t, uint64(0), snap["tokens_grapheme"])
	assert.Equal(t, uint64(12), snap["patterns_total"])
	assert.Equal(t, uint64(2), snap["frames_encoded"])
	assert.Equal(t, uint64(14), snap["bytes_framed"])
	assert.Equal(t, uint64(1), snap["frames_decoded"])
	assert.Equal(t, uint64(1), snap["decode_failures"])
	assert.Equal(t, int64(12), snap["last_session_patterns"])

	assert.Equal(t, uint64(2), r.GetCounter("tokens_total", Labels{"route": RouteFallback}).Value())
}
