package observ

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonLabelsIsOrderIndependent(t *testing.T) {
	a := canonLabels(map[string]string{"symbol": "TCS", "result": "ok"})
	b := canonLabels(map[string]string{"result": "ok", "symbol": "TCS"})
	assert.Equal(t, "result=ok,symbol=TCS", a)
	assert.Equal(t, a, b)
	assert.Equal(t, "", canonLabels(nil))
}

func TestCountersAndGauges(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	IncCounter("news_fetch_total", map[string]string{"result": "ok"})
	IncCounter("news_fetch_total", map[string]string{"result": "ok"})
	IncCounterBy("news_fetch_total", map[string]string{"result": "error"}, 3)
	SetGauge("quote_subscribers", 4, nil)

	assert.Equal(t, int64(2), Counter("news_fetch_total", map[string]string{"result": "ok"}))
	assert.Equal(t, int64(3), Counter("news_fetch_total", map[string]string{"result": "error"}))
	assert.Equal(t, int64(0), Counter("missing", nil))
	assert.Equal(t, 4.0, Gauge("quote_subscribers", nil))
}

func TestObserveIsBounded(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	for i := 0; i < maxSamples+10; i++ {
		Observe("refresh_cycle_ms", float64(i), nil)
	}
	reg.mu.Lock()
	got := reg.hist["refresh_cycle_ms"][""]
	reg.mu.Unlock()
	require.Len(t, got, maxSamples)
	assert.Equal(t, float64(10), got[0])
}

func TestHandlerDumpsJSON(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	IncCounter("calls_generated_total", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	var body struct {
		Counters map[string]map[string]int64 `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Counters["calls_generated_total"][""])
}
