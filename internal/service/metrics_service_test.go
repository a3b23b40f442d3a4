package service

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metricValue returns the counter value, or histogram sample count, of the
// series matching name and labels.
func metricValue(t *testing.T, m *MetricsService, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue series
				}
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			if metric.GetHistogram() != nil {
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestMetricsServiceRecords(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest("GET", "/api/v1/student/courses", 200, 15*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/student/courses", 200, 5*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordEnrollment()
	m.RecordLessonCompletion(true)
	m.ObserveProgress(25)

	assert.Equal(t, float64(2), metricValue(t, m, "tailms_http_requests_total", map[string]string{"status": "200"}))
	assert.Equal(t, float64(1), metricValue(t, m, "tailms_cache_lookups_total", map[string]string{"result": "hit"}))
	assert.Equal(t, float64(2), metricValue(t, m, "tailms_cache_lookups_total", map[string]string{"result": "miss"}))
	assert.Equal(t, float64(1), metricValue(t, m, "tailms_enrollments_total", nil))
	assert.Equal(t, float64(1), metricValue(t, m, "tailms_enrollment_progress_percent", nil))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.RecordEnrollment()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "tailms_enrollments_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.RecordEnrollment()
		m.RecordLessonCompletion(false)
		m.ObserveProgress(10)
	})
}
