package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObserver_CountsTraffic(t *testing.T) {
	host := hostapi.NewFakeHost()
	// Distinct label values keep this test independent of the shared
	// default registry.
	host.SetClientRequest(1, hostapi.RawMessage{Method: "PURGE", URI: "/cache/1", Major: 1, Minor: 1})
	host.SetClientResponse(1, hostapi.RawMessage{Status: 599})
	txn := plugin.NewTransaction(host, 1, zap.NewNop())
	txn.InitClientResponse()

	obs := NewObserver()
	require.Nil(t, obs.Mutex())
	require.Len(t, obs.Hooks(), 4)

	methodBefore := testutil.ToFloat64(totalRequestsByMethod.WithLabelValues("PURGE"))
	codeBefore := testutil.ToFloat64(totalResponses.WithLabelValues("599"))

	obs.HandleReadRequestHeadersPostRemap(txn)
	obs.HandleSendRequestHeaders(txn)
	obs.HandleReadResponseHeaders(txn)
	obs.HandleSendResponseHeaders(txn)

	assert.Equal(t, methodBefore+1, testutil.ToFloat64(totalRequestsByMethod.WithLabelValues("PURGE")))
	assert.Equal(t, codeBefore+1, testutil.ToFloat64(totalResponses.WithLabelValues("599")))
}

func TestObserver_NoResponseViewNoCodeCount(t *testing.T) {
	host := hostapi.NewFakeHost()
	host.SetClientRequest(2, hostapi.RawMessage{Method: "GET", URI: "/", Major: 1, Minor: 1})
	txn := plugin.NewTransaction(host, 2, zap.NewNop())

	obs := NewObserver()
	stageBefore := testutil.ToFloat64(totalLifecycleEvents.WithLabelValues("send-response-headers"))
	obs.HandleSendResponseHeaders(txn)
	assert.Equal(t, stageBefore+1,
		testutil.ToFloat64(totalLifecycleEvents.WithLabelValues("send-response-headers")))
}

func TestProvideMetrics_ServesExposition(t *testing.T) {
	totalLifecycleEvents.WithLabelValues("send-request-headers").Inc()

	h := ProvideMetrics()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "edge_lifecycle_events_total")
}
