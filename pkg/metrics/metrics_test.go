package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRequest("/orders", 201, 12*time.Millisecond)
	m.ObserveRequest("/orders", 201, 3*time.Millisecond)
	m.RecordMutation("add_item", "ok")
	m.EventFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/orders", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("add_item", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsFailed))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.RecordMutation("create_order", "ok")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `orderflow_order_mutations_total{op="create_order",result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
