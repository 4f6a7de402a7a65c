package quotes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event within 1s")
		return Event{}
	}
}

func TestSubscribeSendsSnapshotFirst(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.SetPrice("X", 10))
	require.NoError(t, c.SetPrice("Y", 20))

	all := c.Subscribe(nil)
	defer all.Close()
	ev := next(t, all)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, map[string]float64{"X": 10, "Y": 20}, ev.Prices)

	onlyX := c.Subscribe([]string{"x"})
	defer onlyX.Close()
	ev = next(t, onlyX)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, map[string]float64{"X": 10}, ev.Prices)
}

func TestSubscribeOnEmptyCacheStillSnapshots(t *testing.T) {
	c, _ := newTestCache(t)
	s := c.Subscribe(nil)
	defer s.Close()

	ev := next(t, s)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Empty(t, ev.Prices)

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"prices":{}`)
}

func TestEventJSONShape(t *testing.T) {
	ts := time.Date(2026, 10, 16, 9, 15, 0, 0, time.UTC)

	b, err := json.Marshal(Event{Type: EventSnapshot, TS: ts})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"snapshot","prices":{},"ts":"2026-10-16T09:15:00Z"}`, string(b))

	b, err = json.Marshal(Event{Type: EventUpdate, Symbol: "TCS", Price: 4050.5, TS: ts})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update","symbol":"TCS","price":4050.5,"ts":"2026-10-16T09:15:00Z"}`, string(b))

	b, err = json.Marshal(Event{Type: EventHeartbeat, TS: ts})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat","ts":"2026-10-16T09:15:00Z"}`, string(b))

	var back Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"snapshot","prices":{"X":10},"ts":"2026-10-16T09:15:00Z"}`), &back))
	assert.Equal(t, map[string]float64{"X": 10}, back.Prices)
}

func TestUpdatesRespectFilter(t *testing.T) {
	c, _ := newTestCache(t)
	all := c.Subscribe(nil)
	defer all.Close()
	onlyY := c.Subscribe([]string{"Y"})
	defer onlyY.Close()
	next(t, all)
	next(t, onlyY)

	require.NoError(t, c.SetPrice("X", 11))
	require.NoError(t, c.SetPrice("Y", 21))

	ev := next(t, all)
	assert.Equal(t, EventUpdate, ev.Type)
	assert.Equal(t, "X", ev.Symbol)
	assert.Equal(t, 11.0, ev.Price)
	assert.Equal(t, "Y", next(t, all).Symbol)

	ev = next(t, onlyY)
	assert.Equal(t, "Y", ev.Symbol)
	assert.Equal(t, 21.0, ev.Price)
	select {
	case extra := <-onlyY.Events():
		t.Fatalf("filtered subscriber got %+v", extra)
	default:
	}
}

func TestSingleSymbolUpdatesArriveInOrder(t *testing.T) {
	c, _ := newTestCache(t)
	s := c.Subscribe([]string{"TCS"})
	defer s.Close()
	next(t, s)

	for i := 1; i <= 10; i++ {
		require.NoError(t, c.SetPrice("TCS", float64(i)))
	}
	for i := 1; i <= 10; i++ {
		assert.Equal(t, float64(i), next(t, s).Price)
	}
}

func TestHeartbeatOnCadence(t *testing.T) {
	c, clk := newTestCache(t)
	s := c.Subscribe(nil)
	defer s.Close()
	next(t, s)

	clk.Add(10 * time.Second)
	ev := next(t, s)
	assert.Equal(t, EventHeartbeat, ev.Type)
	assert.Equal(t, clk.Now(), ev.TS)
}

func TestCloseReleasesResources(t *testing.T) {
	c, clk := newTestCache(t)
	hub := c.Hub()

	for i := 0; i < 50; i++ {
		s := c.Subscribe([]string{"TCS"})
		s.Close()
		s.Close() // idempotent
	}
	assert.Equal(t, 0, hub.Subscribers())

	keep := c.Subscribe(nil)
	defer keep.Close()
	assert.Equal(t, 1, hub.Subscribers())

	gone := c.Subscribe(nil)
	gone.Close()
	// Drain: the snapshot is still readable, then the channel is closed.
	_, ok := <-gone.Events()
	assert.True(t, ok)
	_, ok = <-gone.Events()
	assert.False(t, ok)

	// Heartbeats and updates after Close go nowhere and do not panic.
	clk.Add(30 * time.Second)
	require.NoError(t, c.SetPrice("TCS", 1))
	assert.Equal(t, EventSnapshot, next(t, keep).Type)
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	c, _ := newTestCache(t) // buffer 16, snapshot occupies one slot
	slow := c.Subscribe(nil)
	defer slow.Close()
	fast := c.Subscribe(nil)
	defer fast.Close()
	next(t, fast)

	for i := 1; i <= 40; i++ {
		require.NoError(t, c.SetPrice("TCS", float64(i)))
		assert.Equal(t, float64(i), next(t, fast).Price)
	}
	assert.Equal(t, int64(40-15), slow.Dropped())
	assert.Zero(t, fast.Dropped())
}
