// Package hostapi abstracts the proxy host runtime that drives the plugin
// framework: opaque per-transaction handles, lifecycle events, hook
// registration, and the per-transaction argument slots the framework uses
// for its own bookkeeping. Production embeds a real engine behind Host;
// tests drive the framework with FakeHost.
package hostapi

import "net/http"

// TxnHandle is the host's opaque per-request identifier. It is unique per
// in-flight request and may be reused by the host only after the prior
// request fully closes.
type TxnHandle uint64

// MaxTxnArg is the highest per-transaction arg slot the host guarantees.
const MaxTxnArg = 15

// Event is a lifecycle notification the host delivers as a request moves
// through the proxy pipeline.
type Event int

const (
	EventNone Event = iota
	EventReadRequestHeaders
	EventPreRemap
	EventPostRemap
	EventOSDNS
	EventSelectAlt
	EventReadCacheHeaders
	EventCacheLookupComplete
	EventSendRequestHeaders
	EventReadResponseHeaders
	EventSendResponseHeaders
	EventTxnClose
)

var eventNames = map[Event]string{
	EventNone:                "none",
	EventReadRequestHeaders:  "read-request-headers",
	EventPreRemap:            "pre-remap",
	EventPostRemap:           "post-remap",
	EventOSDNS:               "os-dns",
	EventSelectAlt:           "select-alt",
	EventReadCacheHeaders:    "read-cache-headers",
	EventCacheLookupComplete: "cache-lookup-complete",
	EventSendRequestHeaders:  "send-request-headers",
	EventReadResponseHeaders: "read-response-headers",
	EventSendResponseHeaders: "send-response-headers",
	EventTxnClose:            "txn-close",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown-event"
}

// HookID identifies a host hook point a callback can be attached to.
type HookID int

const (
	HookReadRequestHeaders HookID = iota
	HookPreRemap
	HookPostRemap
	HookOSDNS
	HookSelectAlt
	HookReadCacheHeaders
	HookCacheLookupComplete
	HookSendRequestHeaders
	HookReadResponseHeaders
	HookSendResponseHeaders
	HookTxnClose
	HookRequestTransform
	HookResponseTransform
)

var hookNames = map[HookID]string{
	HookReadRequestHeaders:  "read-request-headers",
	HookPreRemap:            "pre-remap",
	HookPostRemap:           "post-remap",
	HookOSDNS:               "os-dns",
	HookSelectAlt:           "select-alt",
	HookReadCacheHeaders:    "read-cache-headers",
	HookCacheLookupComplete: "cache-lookup-complete",
	HookSendRequestHeaders:  "send-request-headers",
	HookReadResponseHeaders: "read-response-headers",
	HookSendResponseHeaders: "send-response-headers",
	HookTxnClose:            "txn-close",
	HookRequestTransform:    "request-transform",
	HookResponseTransform:   "response-transform",
}

func (h HookID) String() string {
	if n, ok := hookNames[h]; ok {
		return n
	}
	return "unknown-hook"
}

// EventFunc is a hook callback. The host invokes it with the event kind and
// the handle of the transaction the event belongs to.
type EventFunc func(ev Event, h TxnHandle)

// RawMessage is the host's wire-level view of one HTTP message. Request
// fields and response fields share the struct; unused fields are zero.
type RawMessage struct {
	Method string
	URI    string
	Major  int
	Minor  int
	Header http.Header
	Status int
	Reason string
}

// Host is the surface the framework needs from the proxy runtime. All
// methods are synchronous and safe for the host's own threading model:
// events for distinct handles may arrive concurrently, events for one
// handle arrive serialized.
type Host interface {
	// TxnArgGet returns the value stored in one of the transaction's
	// general-purpose slots, or nil when the slot is empty.
	TxnArgGet(h TxnHandle, slot int) any
	// TxnArgSet stores a value in one of the transaction's slots.
	TxnArgSet(h TxnHandle, slot int, v any)

	// HookAdd attaches a process-wide hook callback.
	HookAdd(id HookID, fn EventFunc)
	// TxnHookAdd attaches a callback that fires only for one transaction.
	TxnHookAdd(h TxnHandle, id HookID, fn EventFunc)

	// Reenable signals the host to resume processing the transaction.
	// Every delivered event must be answered by exactly one Reenable.
	Reenable(h TxnHandle)

	// ClientRequestGet re-fetches the canonical raw client request from the
	// host. The second return is false when the handle has no request
	// message (host anomaly).
	ClientRequestGet(h TxnHandle) (RawMessage, bool)
	ServerRequestGet(h TxnHandle) (RawMessage, bool)
	ServerResponseGet(h TxnHandle) (RawMessage, bool)
	ClientResponseGet(h TxnHandle) (RawMessage, bool)
	CachedRequestGet(h TxnHandle) (RawMessage, bool)
	CachedResponseGet(h TxnHandle) (RawMessage, bool)
}
