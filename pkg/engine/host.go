package engine

import (
	"net/http"
	"sync"

	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
)

// procHost is the in-process Host the embedded engine exposes to the
// lifecycle core. Per-handle state is touched only by the goroutine
// serving that request; the maps themselves are guarded because requests
// begin and end concurrently.
type procHost struct {
	mu       sync.RWMutex
	hooks    map[hostapi.HookID][]hostapi.EventFunc
	txnHooks map[hostapi.TxnHandle]map[hostapi.HookID][]hostapi.EventFunc
	txns     map[hostapi.TxnHandle]*txnState
}

type txnState struct {
	slots     [hostapi.MaxTxnArg + 1]any
	client    *http.Request
	origin    *http.Response
	delivered int
	reenabled int
}

func newProcHost() *procHost {
	return &procHost{
		hooks:    map[hostapi.HookID][]hostapi.EventFunc{},
		txnHooks: map[hostapi.TxnHandle]map[hostapi.HookID][]hostapi.EventFunc{},
		txns:     map[hostapi.TxnHandle]*txnState{},
	}
}

func (p *procHost) beginTxn(h hostapi.TxnHandle, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txns[h] = &txnState{client: r}
}

// endTxn drops all host-side state for the handle and reports the
// delivered/reenabled balance so the engine can verify the continue
// contract held.
func (p *procHost) endTxn(h hostapi.TxnHandle) (delivered, reenabled int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.txns[h]
	if st != nil {
		delivered, reenabled = st.delivered, st.reenabled
	}
	delete(p.txns, h)
	delete(p.txnHooks, h)
	return delivered, reenabled
}

func (p *procHost) setOrigin(h hostapi.TxnHandle, resp *http.Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.txns[h]; ok {
		st.origin = resp
	}
}

// emit delivers one event to every callback attached to the hook, global
// first then per-transaction.
func (p *procHost) emit(id hostapi.HookID, ev hostapi.Event, h hostapi.TxnHandle) {
	p.mu.RLock()
	fns := append([]hostapi.EventFunc(nil), p.hooks[id]...)
	if m, ok := p.txnHooks[h]; ok {
		fns = append(fns, m[id]...)
	}
	p.mu.RUnlock()

	p.mu.Lock()
	if st, ok := p.txns[h]; ok {
		st.delivered += len(fns)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev, h)
	}
}

// ---- hostapi.Host ----

func (p *procHost) TxnArgGet(h hostapi.TxnHandle, slot int) any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.txns[h]
	if !ok {
		return nil
	}
	return st.slots[slot]
}

func (p *procHost) TxnArgSet(h hostapi.TxnHandle, slot int, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.txns[h]; ok {
		st.slots[slot] = v
	}
}

func (p *procHost) HookAdd(id hostapi.HookID, fn hostapi.EventFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks[id] = append(p.hooks[id], fn)
}

func (p *procHost) TxnHookAdd(h hostapi.TxnHandle, id hostapi.HookID, fn hostapi.EventFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.txnHooks[h]
	if !ok {
		m = map[hostapi.HookID][]hostapi.EventFunc{}
		p.txnHooks[h] = m
	}
	m[id] = append(m[id], fn)
}

func (p *procHost) Reenable(h hostapi.TxnHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.txns[h]; ok {
		st.reenabled++
	}
}

// ClientRequestGet exposes the inbound request. The header map is shared
// with the live *http.Request, so plugin mutations flow into the request
// the proxy forwards.
func (p *procHost) ClientRequestGet(h hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.txns[h]
	if !ok || st.client == nil {
		return hostapi.RawMessage{}, false
	}
	r := st.client
	return hostapi.RawMessage{
		Method: r.Method,
		URI:    r.URL.RequestURI(),
		Major:  r.ProtoMajor,
		Minor:  r.ProtoMinor,
		Header: r.Header,
	}, true
}

// ServerRequestGet is the request toward the origin. The engine forwards
// the (possibly plugin-mutated) client request, so the views coincide.
func (p *procHost) ServerRequestGet(h hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	return p.ClientRequestGet(h)
}

func (p *procHost) originMessage(h hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.txns[h]
	if !ok || st.origin == nil {
		return hostapi.RawMessage{}, false
	}
	resp := st.origin
	return hostapi.RawMessage{
		Major:  resp.ProtoMajor,
		Minor:  resp.ProtoMinor,
		Header: resp.Header,
		Status: resp.StatusCode,
		Reason: http.StatusText(resp.StatusCode),
	}, true
}

func (p *procHost) ServerResponseGet(h hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	return p.originMessage(h)
}

// ClientResponseGet shares the origin response header map, so mutations at
// send-response-headers reach the client.
func (p *procHost) ClientResponseGet(h hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	return p.originMessage(h)
}

// The embedded engine runs cache-less; the cache views never materialize.
func (p *procHost) CachedRequestGet(hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	return hostapi.RawMessage{}, false
}

func (p *procHost) CachedResponseGet(hostapi.TxnHandle) (hostapi.RawMessage, bool) {
	return hostapi.RawMessage{}, false
}
