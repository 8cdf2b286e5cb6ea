// Package lifecycle is the transaction-lifecycle and event-dispatch core:
// it binds host handles to transaction objects, routes lifecycle events to
// plugin capability methods under the plugin's mutex, and tears everything
// down exactly once at txn-close.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"go.uber.org/zap"
)

// txnStorageSlot is the reserved per-transaction arg slot holding the
// framework's transaction object. The highest slot is used to minimize the
// likelihood of colliding with anything else.
const txnStorageSlot = hostapi.MaxTxnArg

// closedMarker occupies the slot after teardown so that a host bug that
// re-delivers an event for a closed handle is caught loudly instead of
// silently creating a second transaction.
type closedMarker struct{}

// Core wires one host runtime to the plugin framework. Production runs a
// single Core for the process; tests build one per synthetic host.
type Core struct {
	host     hostapi.Host
	log      *zap.Logger
	initOnce sync.Once
}

func New(host hostapi.Host, log *zap.Logger) *Core {
	return &Core{host: host, log: log}
}

// Resolve returns the transaction object for a handle, creating and
// storing it on first reference. Idempotent per handle; safe from the
// event path for every event kind including the first one observed.
func (c *Core) Resolve(h hostapi.TxnHandle) *plugin.Transaction {
	switch v := c.host.TxnArgGet(h, txnStorageSlot).(type) {
	case *plugin.Transaction:
		return v
	case closedMarker:
		panic(fmt.Sprintf("lifecycle: event for closed transaction handle %d", h))
	case nil:
		t := plugin.NewTransaction(c.host, h, c.log)
		c.log.Debug("created transaction object",
			zap.Uint64("handle", uint64(h)))
		c.host.TxnArgSet(h, txnStorageSlot, t)
		return t
	default:
		panic(fmt.Sprintf("lifecycle: foreign value in transaction slot for handle %d", h))
	}
}

// Init registers the lifecycle-management hooks with the host exactly
// once, no matter how many call sites invoke it. Plugin registration paths
// call it defensively so a cleanup handler is always in place.
func (c *Core) Init() {
	c.initOnce.Do(func() {
		for _, id := range lifecycleHooks {
			c.host.HookAdd(id, c.HandleEvent)
		}
	})
}

// lifecycleHooks are the fixed hook points the cleaner and the view
// refresh logic need. Dispatch-only hooks are registered on demand by
// plugin registration.
var lifecycleHooks = []hostapi.HookID{
	hostapi.HookPostRemap,
	hostapi.HookSendRequestHeaders,
	hostapi.HookReadResponseHeaders,
	hostapi.HookSendResponseHeaders,
	hostapi.HookReadCacheHeaders,
	hostapi.HookTxnClose,
}

// HandleEvent is the inbound entry for lifecycle-management events. It
// refreshes or materializes transaction views for mid-lifecycle events,
// runs full teardown on txn-close, and always concludes by reenabling the
// transaction toward the host, on fault paths included.
func (c *Core) HandleEvent(ev hostapi.Event, h hostapi.TxnHandle) {
	defer c.host.Reenable(h)

	t := c.Resolve(h)
	c.log.Debug("lifecycle event",
		zap.Stringer("event", ev),
		zap.Uint64("handle", uint64(h)))

	switch ev {
	case hostapi.EventPostRemap:
		// Re-fetch the canonical client request so post-remap reads see
		// any remap-stage changes.
		t.RefreshClientRequest()
	case hostapi.EventSendRequestHeaders:
		t.InitServerRequest()
	case hostapi.EventReadResponseHeaders:
		t.InitServerResponse()
	case hostapi.EventSendResponseHeaders:
		t.InitClientResponse()
	case hostapi.EventReadCacheHeaders:
		t.InitCachedRequest()
		t.InitCachedResponse()
	case hostapi.EventTxnClose:
		c.close(t)
	default:
		panic(fmt.Sprintf("lifecycle: unexpected lifecycle-management event %v", ev))
	}
}

// close tears down a transaction: scoped plugins first, in registration
// order, each deleted under its own mutex, then the transaction itself.
// A teardown fault is not caught; the request's state is corrupt and
// crashing with diagnostics beats continuing.
func (c *Core) close(t *plugin.Transaction) {
	h := t.Handle()
	t.SetState(plugin.Closing)
	for i, p := range t.TakeScopedPlugins() {
		mu := p.Mutex()
		c.log.Debug("locking scoped plugin for teardown",
			zap.Int("index", i), zap.Uint64("handle", uint64(h)))
		mu.Lock()
		p.Teardown()
		mu.Unlock()
	}
	t.SetState(plugin.Closed)
	c.host.TxnArgSet(h, txnStorageSlot, closedMarker{})
	c.log.Debug("closed transaction", zap.Uint64("handle", uint64(h)))
}
