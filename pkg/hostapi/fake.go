package hostapi

import "sync"

// FakeHost is an in-memory Host for tests and for driving the framework
// with synthetic event sequences. The embedded engine implements Host
// itself; FakeHost exists so the lifecycle core can be exercised without
// any proxying at all.
type FakeHost struct {
	mu        sync.Mutex
	slots     map[TxnHandle]*[MaxTxnArg + 1]any
	hooks     map[HookID][]EventFunc
	txnHooks  map[TxnHandle]map[HookID][]EventFunc
	messages  map[TxnHandle]map[messageKind]RawMessage
	reenables map[TxnHandle]int
	fetches   map[TxnHandle]int
}

type messageKind int

const (
	msgClientRequest messageKind = iota
	msgServerRequest
	msgServerResponse
	msgClientResponse
	msgCachedRequest
	msgCachedResponse
)

func NewFakeHost() *FakeHost {
	return &FakeHost{
		slots:     map[TxnHandle]*[MaxTxnArg + 1]any{},
		hooks:     map[HookID][]EventFunc{},
		txnHooks:  map[TxnHandle]map[HookID][]EventFunc{},
		messages:  map[TxnHandle]map[messageKind]RawMessage{},
		reenables: map[TxnHandle]int{},
		fetches:   map[TxnHandle]int{},
	}
}

func (f *FakeHost) TxnArgGet(h TxnHandle, slot int) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[h]
	if !ok {
		return nil
	}
	return s[slot]
}

func (f *FakeHost) TxnArgSet(h TxnHandle, slot int, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[h]
	if !ok {
		s = &[MaxTxnArg + 1]any{}
		f.slots[h] = s
	}
	s[slot] = v
}

func (f *FakeHost) HookAdd(id HookID, fn EventFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[id] = append(f.hooks[id], fn)
}

func (f *FakeHost) TxnHookAdd(h TxnHandle, id HookID, fn EventFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.txnHooks[h]
	if !ok {
		m = map[HookID][]EventFunc{}
		f.txnHooks[h] = m
	}
	m[id] = append(m[id], fn)
}

func (f *FakeHost) Reenable(h TxnHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reenables[h]++
}

// Reenables reports how many continue acks the host has received for h.
func (f *FakeHost) Reenables(h TxnHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reenables[h]
}

// HookCount reports how many callbacks are attached to a process-wide hook.
func (f *FakeHost) HookCount(id HookID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hooks[id])
}

// Emit delivers an event to every callback attached to the hook, global
// first then per-transaction, mirroring host delivery order.
func (f *FakeHost) Emit(id HookID, ev Event, h TxnHandle) {
	f.mu.Lock()
	fns := append([]EventFunc(nil), f.hooks[id]...)
	if m, ok := f.txnHooks[h]; ok {
		fns = append(fns, m[id]...)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev, h)
	}
}

// SetClientRequest seeds the raw client request returned for h.
func (f *FakeHost) SetClientRequest(h TxnHandle, m RawMessage) { f.setMessage(h, msgClientRequest, m) }
func (f *FakeHost) SetServerRequest(h TxnHandle, m RawMessage) { f.setMessage(h, msgServerRequest, m) }
func (f *FakeHost) SetServerResponse(h TxnHandle, m RawMessage) {
	f.setMessage(h, msgServerResponse, m)
}
func (f *FakeHost) SetClientResponse(h TxnHandle, m RawMessage) {
	f.setMessage(h, msgClientResponse, m)
}
func (f *FakeHost) SetCachedRequest(h TxnHandle, m RawMessage) { f.setMessage(h, msgCachedRequest, m) }
func (f *FakeHost) SetCachedResponse(h TxnHandle, m RawMessage) {
	f.setMessage(h, msgCachedResponse, m)
}

func (f *FakeHost) setMessage(h TxnHandle, k messageKind, m RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mm, ok := f.messages[h]
	if !ok {
		mm = map[messageKind]RawMessage{}
		f.messages[h] = mm
	}
	mm[k] = m
}

func (f *FakeHost) getMessage(h TxnHandle, k messageKind) (RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k == msgClientRequest {
		f.fetches[h]++
	}
	m, ok := f.messages[h][k]
	return m, ok
}

// ClientRequestFetches reports how often the canonical client request was
// re-fetched, which the post-remap refresh test relies on.
func (f *FakeHost) ClientRequestFetches(h TxnHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[h]
}

func (f *FakeHost) ClientRequestGet(h TxnHandle) (RawMessage, bool) {
	return f.getMessage(h, msgClientRequest)
}
func (f *FakeHost) ServerRequestGet(h TxnHandle) (RawMessage, bool) {
	return f.getMessage(h, msgServerRequest)
}
func (f *FakeHost) ServerResponseGet(h TxnHandle) (RawMessage, bool) {
	return f.getMessage(h, msgServerResponse)
}
func (f *FakeHost) ClientResponseGet(h TxnHandle) (RawMessage, bool) {
	return f.getMessage(h, msgClientResponse)
}
func (f *FakeHost) CachedRequestGet(h TxnHandle) (RawMessage, bool) {
	return f.getMessage(h, msgCachedRequest)
}
func (f *FakeHost) CachedResponseGet(h TxnHandle) (RawMessage, bool) {
	return f.getMessage(h, msgCachedResponse)
}
