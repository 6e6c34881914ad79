package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveRequest("GET", 200)
	r.ObserveRequest("GET", 200)
	r.ObserveRequest("POST", 422)
	r.ObserveChange("mapping", "create")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("POST", "422")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.changes.WithLabelValues("mapping", "create")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRequest("GET", 500)
		r.ObserveChange("product", "update")
		r.ObserveProduct(time.Second, true)
	})
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveProduct(2*time.Second, false)

	path := filepath.Join(t.TempDir(), "sync.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "threescale_sync_product_sync_duration_seconds_count{result=\"success\"} 1")
}
