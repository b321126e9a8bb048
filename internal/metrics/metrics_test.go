package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ToastsAdded.WithLabelValues("success"))
	ToastsAdded.WithLabelValues("success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ToastsAdded.WithLabelValues("success")))
}

func TestHandlerExposesToastMetrics(t *testing.T) {
	ToastsRemoved.WithLabelValues("expired").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "toastbox_toasts_removed_total")
}
