package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/normalize"
)

func TestObserveNormalization(t *testing.T) {
	t.Parallel()
	m := New()
	p := llm.Profile{Key: "qwen"}

	m.ObserveNormalization(p, normalize.Outcome{Record: fields.Record{"a": "b"}, ModelCalls: 2, FallbackUsed: true}, time.Second)
	m.ObserveNormalization(p, normalize.TransportFailure(fields.Core(), errors.New("timeout")), time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.outcomes.WithLabelValues("qwen", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.outcomes.WithLabelValues("qwen", "transport_error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fallbacks.WithLabelValues("qwen")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.calls.WithLabelValues("qwen")), 0)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dp_normalizer_normalizations_total{outcome="success",profile="qwen"} 1`)
}
