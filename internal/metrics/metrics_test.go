package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}

func TestRecordGitLabRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGitLabRequest("list_repositories", 200, 30*time.Millisecond)
	c.RecordGitLabRequest("list_repositories", 200, 10*time.Millisecond)
	c.RecordGitLabRequest("create_repository", 0, time.Second)

	requests := findMetric(t, reg, "perfguide_gitlab_requests_total")
	counts := map[string]float64{}
	for _, m := range requests.GetMetric() {
		counts[labelValue(m, "operation")+"/"+labelValue(m, "status_code")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), counts["list_repositories/200"])
	assert.Equal(t, float64(1), counts["create_repository/network_error"])

	latency := findMetric(t, reg, "perfguide_gitlab_request_duration_seconds")
	assert.Len(t, latency.GetMetric(), 2)
}

func TestRecordAuthEventsAndPurges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthEvent("SIGNED_IN")
	c.RecordAuthEvent("SIGNED_OUT")
	c.RecordAuthEvent("SIGNED_IN")
	c.RecordSessionsPurged(3)
	c.RecordSessionsPurged(0)

	events := findMetric(t, reg, "perfguide_auth_events_total")
	for _, m := range events.GetMetric() {
		switch labelValue(m, "event") {
		case "SIGNED_IN":
			assert.Equal(t, float64(2), m.GetCounter().GetValue())
		case "SIGNED_OUT":
			assert.Equal(t, float64(1), m.GetCounter().GetValue())
		}
	}

	purged := findMetric(t, reg, "perfguide_sessions_purged_total")
	assert.Equal(t, float64(3), purged.GetMetric()[0].GetCounter().GetValue())
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAuthEvent("SIGNED_IN")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "perfguide_auth_events_total")
}
