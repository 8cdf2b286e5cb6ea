package plugin

import (
	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"go.uber.org/zap"
)

// State tracks a transaction through teardown.
type State int

const (
	// Active from creation until the terminal event is observed.
	Active State = iota
	// Closing while the lifecycle cleaner tears down scoped plugins.
	Closing
	// Closed once the transaction's slot must no longer be touched.
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown-state"
}

// Transaction is the framework-owned object for one in-flight request.
// Exactly one instance exists per live handle; the lifecycle core creates
// it on first reference and destroys it at txn-close. The host serializes
// events per handle, so a Transaction is only ever touched by the thread
// currently processing its event.
type Transaction struct {
	handle hostapi.TxnHandle
	host   hostapi.Host
	log    *zap.Logger
	state  State
	scoped []TransactionPlugin

	clientRequest  *Request
	serverRequest  *Request
	cachedRequest  *Request
	serverResponse *Response
	clientResponse *Response
	cachedResponse *Response
}

// NewTransaction builds the request object for a handle and materializes
// the client request view.
func NewTransaction(host hostapi.Host, h hostapi.TxnHandle, log *zap.Logger) *Transaction {
	t := &Transaction{handle: h, host: host, log: log, state: Active}
	if raw, ok := host.ClientRequestGet(h); ok {
		t.clientRequest = newRequest(raw, log)
	} else {
		log.Error("host has no client request for handle", zap.Uint64("handle", uint64(h)))
		t.clientRequest = newRequest(hostapi.RawMessage{}, log)
	}
	return t
}

func (t *Transaction) Handle() hostapi.TxnHandle { return t.handle }
func (t *Transaction) State() State              { return t.state }

// SetState is for the lifecycle core only.
func (t *Transaction) SetState(s State) { t.state = s }

// AddPlugin transfers ownership of a scoped plugin to this transaction.
// The cleaner tears plugins down in the order they were added.
func (t *Transaction) AddPlugin(p TransactionPlugin) {
	t.scoped = append(t.scoped, p)
}

// ScopedPlugins returns the transaction's scoped plugin list in
// registration order.
func (t *Transaction) ScopedPlugins() []TransactionPlugin { return t.scoped }

// TakeScopedPlugins transfers the scoped plugin list out of the
// transaction. Ownership moves to the caller, which must tear each one
// down; the transaction no longer references them.
func (t *Transaction) TakeScopedPlugins() []TransactionPlugin {
	ps := t.scoped
	t.scoped = nil
	return ps
}

// ClientRequest is the request as received from the client. Always
// present once the transaction exists.
func (t *Transaction) ClientRequest() *Request { return t.clientRequest }

// RefreshClientRequest drops the cached parsed URL and re-fetches the
// canonical raw client request from the host, so reads after the remap
// stage observe remap changes.
func (t *Transaction) RefreshClientRequest() {
	t.clientRequest.Reset()
	raw, ok := t.host.ClientRequestGet(t.handle)
	if !ok {
		t.log.Error("client request refresh failed", zap.Uint64("handle", uint64(t.handle)))
		return
	}
	t.clientRequest.setRaw(raw)
}

// InitServerRequest materializes the request headed toward the origin.
func (t *Transaction) InitServerRequest() {
	if raw, ok := t.host.ServerRequestGet(t.handle); ok {
		t.serverRequest = newRequest(raw, t.log)
	}
}

// InitServerResponse materializes the response read from the origin.
func (t *Transaction) InitServerResponse() {
	if raw, ok := t.host.ServerResponseGet(t.handle); ok {
		t.serverResponse = newResponse(raw, t.log)
	}
}

// InitClientResponse materializes the response headed toward the client.
func (t *Transaction) InitClientResponse() {
	if raw, ok := t.host.ClientResponseGet(t.handle); ok {
		t.clientResponse = newResponse(raw, t.log)
	}
}

// InitCachedRequest and InitCachedResponse materialize the cache views at
// read-cache-headers.
func (t *Transaction) InitCachedRequest() {
	if raw, ok := t.host.CachedRequestGet(t.handle); ok {
		t.cachedRequest = newRequest(raw, t.log)
	}
}

func (t *Transaction) InitCachedResponse() {
	if raw, ok := t.host.CachedResponseGet(t.handle); ok {
		t.cachedResponse = newResponse(raw, t.log)
	}
}

// View accessors; nil until the corresponding lifecycle stage has run.
func (t *Transaction) ServerRequest() *Request   { return t.serverRequest }
func (t *Transaction) ServerResponse() *Response { return t.serverResponse }
func (t *Transaction) ClientResponse() *Response { return t.clientResponse }
func (t *Transaction) CachedRequest() *Request   { return t.cachedRequest }
func (t *Transaction) CachedResponse() *Response { return t.cachedResponse }
