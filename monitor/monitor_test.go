package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wfunc/sololeveling/models"
)

func newTestMonitor(t *testing.T) (*Monitor, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMonitor("test", reg, reg), reg
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestObserver(t *testing.T) {
	m, reg := newTestMonitor(t)

	m.QuestSettled(models.QuestTypeDaily, "completed")
	m.QuestSettled(models.QuestTypeDaily, "completed")
	m.QuestSettled(models.QuestTypePenalty, "failed")
	m.LevelUp(2)
	m.Purchase("shadow-armor")

	if v := gatherValue(t, reg, "test_quests_settled_total", map[string]string{"type": "DAILY", "outcome": "completed"}); v != 2 {
		t.Errorf("Expected 2 completed dailies, got %v", v)
	}
	if v := gatherValue(t, reg, "test_quests_settled_total", map[string]string{"type": "PENALTY", "outcome": "failed"}); v != 1 {
		t.Errorf("Expected 1 failed penalty quest, got %v", v)
	}
	if v := gatherValue(t, reg, "test_level_ups_total", nil); v != 2 {
		t.Errorf("Expected 2 level ups, got %v", v)
	}
	if v := gatherValue(t, reg, "test_purchases_total", map[string]string{"item": "shadow-armor"}); v != 1 {
		t.Errorf("Expected 1 purchase, got %v", v)
	}
}

func TestSessionsAndRequests(t *testing.T) {
	m, reg := newTestMonitor(t)

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveRequest("GET /quests", 200, 15*time.Millisecond)

	if v := gatherValue(t, reg, "test_online_sessions", nil); v != 1 {
		t.Errorf("Expected 1 online session, got %v", v)
	}
	if v := gatherValue(t, reg, "test_http_request_duration_seconds", map[string]string{"route": "GET /quests", "status": "200"}); v != 1 {
		t.Errorf("Expected 1 observed request, got %v", v)
	}
	if m.requestCount.Load() != 1 {
		t.Errorf("Expected request count 1, got %d", m.requestCount.Load())
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.LevelUp(1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test_level_ups_total 1") {
		t.Fatalf("Expected level ups in exposition, got:\n%s", body)
	}
}
