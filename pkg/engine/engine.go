// Package engine is the embedded proxy host: an httputil.ReverseProxy that
// drives the full lifecycle event sequence through the framework core for
// every request it forwards. It exists so steeze-edge runs standalone; the
// same core binds unchanged to any runtime implementing hostapi.Host.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-edge/pkg/config"
	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/lifecycle"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"go.uber.org/zap"
)

type handleKey struct{}

// Engine forwards requests to one upstream and emits lifecycle events as
// each request moves through the pipeline.
type Engine struct {
	cfg      config.Config
	log      *zap.Logger
	host     *procHost
	core     *lifecycle.Core
	proxy    *httputil.ReverseProxy
	upstream *url.URL
	handles  atomic.Uint64
}

func New(cfg config.Config, log *zap.Logger) (*Engine, error) {
	up, err := url.Parse(cfg.Proxy.Upstream)
	if err != nil {
		return nil, fmt.Errorf("upstream %q: %w", cfg.Proxy.Upstream, err)
	}

	host := newProcHost()
	core := lifecycle.New(host, log)
	core.Init()

	e := &Engine{cfg: cfg, log: log, host: host, core: core, upstream: up}
	e.proxy = &httputil.ReverseProxy{
		Director:       func(*http.Request) {}, // remap already ran
		ModifyResponse: e.onOriginResponse,
		ErrorHandler:   e.onProxyError,
	}

	// Manifest plugins must resolve before any traffic: a missing factory
	// is a deployment bug, caught at startup.
	for _, pc := range cfg.Plugins {
		if _, ok := plugin.LookupFactory(pc.Factory); !ok {
			return nil, fmt.Errorf("plugin factory %q not registered", pc.Factory)
		}
	}
	for _, pc := range cfg.Plugins {
		if pc.Scope != config.ScopeGlobal {
			continue
		}
		f, _ := plugin.LookupFactory(pc.Factory)
		p, err := f(pc.Options)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", pc.Factory, err)
		}
		gp := plugin.AsGlobal(p)
		for _, ht := range pc.HookTypes() {
			core.AddGlobalHook(gp, ht)
		}
	}
	return e, nil
}

// Core exposes the lifecycle core for built-in plugin registration.
func (e *Engine) Core() *lifecycle.Core { return e.core }

// RegisterGlobal attaches a built-in global plugin to its declared hooks.
func (e *Engine) RegisterGlobal(p plugin.GlobalPlugin, hooks []plugin.HookType) {
	for _, ht := range hooks {
		e.core.AddGlobalHook(p, ht)
	}
}

func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := hostapi.TxnHandle(e.handles.Add(1))
	e.host.beginTxn(h, r)

	e.attachScopedPlugins(h)

	e.host.emit(hostapi.HookReadRequestHeaders, hostapi.EventReadRequestHeaders, h)
	e.host.emit(hostapi.HookPreRemap, hostapi.EventPreRemap, h)

	// Remap: point the request at the upstream. Post-remap reads observe
	// this via the core's client request refresh.
	r.URL.Scheme = e.upstream.Scheme
	r.URL.Host = e.upstream.Host
	r.Host = e.upstream.Host

	e.host.emit(hostapi.HookPostRemap, hostapi.EventPostRemap, h)
	e.host.emit(hostapi.HookSendRequestHeaders, hostapi.EventSendRequestHeaders, h)

	e.proxy.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), handleKey{}, h)))

	e.host.emit(hostapi.HookTxnClose, hostapi.EventTxnClose, h)

	delivered, reenabled := e.host.endTxn(h)
	if delivered != reenabled {
		e.log.Error("continue contract violated",
			zap.Uint64("handle", uint64(h)),
			zap.Int("delivered", delivered),
			zap.Int("reenabled", reenabled))
	}
}

// attachScopedPlugins builds one instance of every transaction-scope
// manifest plugin and hands ownership to the transaction, so the cleaner
// tears them down at txn-close.
func (e *Engine) attachScopedPlugins(h hostapi.TxnHandle) {
	t := e.core.Resolve(h)
	for _, pc := range e.cfg.Plugins {
		if pc.Scope != config.ScopeTransaction {
			continue
		}
		f, _ := plugin.LookupFactory(pc.Factory)
		p, err := f(pc.Options)
		if err != nil {
			e.log.Error("scoped plugin build failed",
				zap.String("factory", pc.Factory),
				zap.Uint64("handle", uint64(h)),
				zap.Error(err))
			continue
		}
		tp := plugin.AsTransaction(p)
		for _, ht := range pc.HookTypes() {
			e.core.AddTransactionHook(t, tp, ht)
		}
	}
}

func (e *Engine) onOriginResponse(resp *http.Response) error {
	h, ok := resp.Request.Context().Value(handleKey{}).(hostapi.TxnHandle)
	if !ok {
		e.log.Error("origin response without transaction handle")
		return nil
	}
	e.host.setOrigin(h, resp)
	e.host.emit(hostapi.HookReadResponseHeaders, hostapi.EventReadResponseHeaders, h)
	e.host.emit(hostapi.HookSendResponseHeaders, hostapi.EventSendResponseHeaders, h)
	return nil
}

func (e *Engine) onProxyError(w http.ResponseWriter, r *http.Request, err error) {
	h, _ := r.Context().Value(handleKey{}).(hostapi.TxnHandle)
	e.log.Error("upstream request failed",
		zap.Uint64("handle", uint64(h)),
		zap.String("upstream", e.upstream.Host),
		zap.Error(err))

	// A host-generated error response still walks the response stages, so
	// plugins observing send-response-headers see every transaction. The
	// header map is shared with the writer; mutations land before the 502
	// goes out.
	e.host.setOrigin(h, &http.Response{
		StatusCode: http.StatusBadGateway,
		ProtoMajor: r.ProtoMajor,
		ProtoMinor: r.ProtoMinor,
		Header:     w.Header(),
	})
	e.host.emit(hostapi.HookReadResponseHeaders, hostapi.EventReadResponseHeaders, h)
	e.host.emit(hostapi.HookSendResponseHeaders, hostapi.EventSendResponseHeaders, h)

	w.WriteHeader(http.StatusBadGateway)
}
