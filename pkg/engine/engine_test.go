package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/joeydtaylor/steeze-edge/pkg/codec"
	"github.com/joeydtaylor/steeze-edge/pkg/config"
	"github.com/joeydtaylor/steeze-edge/pkg/eventrelay"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"github.com/joeydtaylor/steeze-edge/pkg/plugins/txnrelay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stampPlugin marks the request toward the origin and the response toward
// the client, proving header mutations flow through the shared maps.
type stampPlugin struct {
	plugin.TransactionBase
	tornDown *atomic.Int64
}

func (p *stampPlugin) HandleSendRequestHeaders(t *plugin.Transaction) {
	t.ClientRequest().Header().Set("X-Edge-Stamp", "outbound")
}

func (p *stampPlugin) HandleSendResponseHeaders(t *plugin.Transaction) {
	if resp := t.ClientResponse(); resp != nil {
		resp.Header().Set("X-Edge-Stamp", "inbound")
	}
}

func (p *stampPlugin) Teardown() {
	if p.tornDown != nil {
		p.tornDown.Add(1)
	}
}

var registerStampOnce sync.Once

func registerStampFactory(torn *atomic.Int64) {
	registerStampOnce.Do(func() {
		plugin.MustRegisterFactory("stamp", func(map[string]any) (plugin.Plugin, error) {
			return &stampPlugin{tornDown: torn}, nil
		})
	})
}

var stampTeardowns atomic.Int64

func newTestEngine(t *testing.T, upstream string) *Engine {
	t.Helper()
	registerStampFactory(&stampTeardowns)
	cfg := config.Config{
		Proxy: config.Proxy{Listen: ":0", Upstream: upstream},
		Plugins: []config.PluginConfig{{
			Factory: "stamp",
			Scope:   config.ScopeTransaction,
			Hooks:   []string{"send-request-headers", "send-response-headers"},
		}},
	}
	require.NoError(t, cfg.Validate())
	e, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestEngine_ProxiesAndRunsLifecycle(t *testing.T) {
	var gotStamp string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStamp = r.Header.Get("X-Edge-Stamp")
		w.Header().Set("X-Origin", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "brewed")
	}))
	defer origin.Close()

	e := newTestEngine(t, origin.URL)
	before := stampTeardowns.Load()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://edge.local/tea", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "brewed", rec.Body.String())
	assert.Equal(t, "yes", rec.Header().Get("X-Origin"))
	// Scoped plugin mutations on both directions.
	assert.Equal(t, "outbound", gotStamp)
	assert.Equal(t, "inbound", rec.Header().Get("X-Edge-Stamp"))
	// The cleaner tore the scoped plugin down at txn-close.
	assert.Equal(t, before+1, stampTeardowns.Load())
}

func TestEngine_EachRequestGetsFreshScopedPlugins(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer origin.Close()

	e := newTestEngine(t, origin.URL)
	before := stampTeardowns.Load()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://edge.local/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, before+3, stampTeardowns.Load())
}

func TestEngine_UpstreamFailureIs502(t *testing.T) {
	// Unroutable upstream: the proxy error handler answers 502 and the
	// transaction still closes cleanly.
	e := newTestEngine(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://edge.local/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

type recordingPublisher struct {
	bodies [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, body []byte) error {
	p.bodies = append(p.bodies, body)
	return nil
}

// responseStageCounter observes the response stages across transactions.
type responseStageCounter struct {
	plugin.LockedGlobalBase
	readSeen int
	sendSeen int
	statuses []int
}

func (c *responseStageCounter) HandleReadResponseHeaders(t *plugin.Transaction) { c.readSeen++ }

func (c *responseStageCounter) HandleSendResponseHeaders(t *plugin.Transaction) {
	c.sendSeen++
	if resp := t.ClientResponse(); resp != nil {
		c.statuses = append(c.statuses, resp.Status())
	}
}

func TestEngine_UpstreamFailureStillRunsResponseStages(t *testing.T) {
	e := newTestEngine(t, "http://127.0.0.1:1")

	counter := &responseStageCounter{}
	e.RegisterGlobal(counter, []plugin.HookType{
		plugin.HookReadResponseHeaders,
		plugin.HookSendResponseHeaders,
	})

	pub := &recordingPublisher{}
	rep := txnrelay.NewReporter(pub, zap.NewNop())
	e.RegisterGlobal(rep, rep.Hooks())

	const n = 3
	for i := 0; i < n; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://edge.local/out", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	}

	// Every failed transaction walks both response stages with the
	// synthesized 502 visible.
	assert.Equal(t, n, counter.readSeen)
	assert.Equal(t, n, counter.sendSeen)
	assert.Equal(t, []int{502, 502, 502}, counter.statuses)

	// The reporter published one record per failed request, so its
	// per-handle bookkeeping drained instead of growing per outage.
	require.Len(t, pub.bodies, n)
	for _, body := range pub.bodies {
		var r eventrelay.Record
		require.NoError(t, codec.JSONStrict.Unmarshal(body, &r))
		assert.Equal(t, http.StatusBadGateway, r.Status)
		assert.Equal(t, "/out", r.Path)
	}
}

func TestNew_UnknownFactoryFailsStartup(t *testing.T) {
	cfg := config.Config{
		Proxy: config.Proxy{Listen: ":0", Upstream: "http://origin:1"},
		Plugins: []config.PluginConfig{{
			Factory: "never-registered",
			Scope:   config.ScopeTransaction,
			Hooks:   []string{"os-dns"},
		}},
	}
	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never-registered")
}

func TestAdminRouter(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	admin := NewAdminRouter(metrics, zap.NewNop())

	rec := httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}
