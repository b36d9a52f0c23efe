package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.CycleCompleted(time.Millisecond)
	c.CycleSkipped()
	c.Snapshot(1, 2)
	c.Event("enter_los")
}

func TestHandlerExposesCounters(t *testing.T) {
	c := New()
	c.CycleCompleted(2 * time.Millisecond)
	c.CycleSkipped()
	c.Snapshot(3, 4)
	c.Event("enter_radar")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"vimy_threat_cycles_completed_total 1",
		"vimy_threat_cycles_skipped_total 1",
		"vimy_enemy_hostile 3",
		"vimy_enemy_peaceful 4",
		`vimy_enemy_events_total{kind="enter_radar"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
