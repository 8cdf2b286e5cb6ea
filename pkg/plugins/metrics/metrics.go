// Package metrics bundles a global plugin that counts lifecycle traffic
// and a promhttp handler the admin endpoint serves.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var (
	totalLifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "edge_lifecycle_events_total", Help: "lifecycle events by stage"},
		[]string{"stage"},
	)

	totalRequestsByMethod = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "edge_requests_total", Help: "requests by method"},
		[]string{"method"},
	)

	totalResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "edge_responses_total", Help: "responses by code"},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(
		totalLifecycleEvents,
		totalRequestsByMethod,
		totalResponses,
	)
}

// Observer is a lock-free global plugin; the prometheus vectors do their
// own synchronization, so no plugin mutex is needed.
type Observer struct {
	plugin.GlobalBase
}

func NewObserver() *Observer { return &Observer{} }

func (o *Observer) HandleReadRequestHeadersPostRemap(t *plugin.Transaction) {
	totalLifecycleEvents.WithLabelValues("post-remap").Inc()
	totalRequestsByMethod.WithLabelValues(t.ClientRequest().Method()).Inc()
}

func (o *Observer) HandleSendRequestHeaders(t *plugin.Transaction) {
	totalLifecycleEvents.WithLabelValues("send-request-headers").Inc()
}

func (o *Observer) HandleReadResponseHeaders(t *plugin.Transaction) {
	totalLifecycleEvents.WithLabelValues("read-response-headers").Inc()
}

func (o *Observer) HandleSendResponseHeaders(t *plugin.Transaction) {
	totalLifecycleEvents.WithLabelValues("send-response-headers").Inc()
	if resp := t.ClientResponse(); resp != nil {
		totalResponses.WithLabelValues(strconv.Itoa(resp.Status())).Inc()
	}
}

// Hooks is the stage set the observer declares at registration.
func (o *Observer) Hooks() []plugin.HookType {
	return []plugin.HookType{
		plugin.HookReadRequestHeadersPostRemap,
		plugin.HookSendRequestHeaders,
		plugin.HookReadResponseHeaders,
		plugin.HookSendResponseHeaders,
	}
}

func NewPromHttpHandler() http.Handler { return promhttp.Handler() }
func ProvideMetrics() http.Handler     { return NewPromHttpHandler() }

var Module = fx.Options(
	fx.Provide(ProvideMetrics),
)
