package promexport

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorExposesMetricsOverHTTP(t *testing.T) {
	c := NewCollector()
	c.ObserveDispatch(1_500_000, true)
	c.ObserveExport(1024, 500_000, true)
	c.ObserveQueueDepth(5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "beamformer_dispatch_total 1")
	assert.Contains(t, body, "beamformer_queue_depth 5")
}
