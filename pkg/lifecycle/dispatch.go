package lifecycle

import (
	"fmt"

	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
)

// invokeForEvent maps each dispatch-eligible event kind to its capability
// method, one-to-one. Anything else reaching here means the hook and event
// tables have drifted, which must surface as a crash, not as a silently
// missed callback.
func invokeForEvent(p plugin.Plugin, t *plugin.Transaction, ev hostapi.Event) {
	switch ev {
	case hostapi.EventPreRemap:
		p.HandleReadRequestHeadersPreRemap(t)
	case hostapi.EventPostRemap:
		p.HandleReadRequestHeadersPostRemap(t)
	case hostapi.EventSendRequestHeaders:
		p.HandleSendRequestHeaders(t)
	case hostapi.EventReadResponseHeaders:
		p.HandleReadResponseHeaders(t)
	case hostapi.EventSendResponseHeaders:
		p.HandleSendResponseHeaders(t)
	case hostapi.EventOSDNS:
		p.HandleOSDNS(t)
	case hostapi.EventReadRequestHeaders:
		p.HandleReadRequestHeaders(t)
	case hostapi.EventReadCacheHeaders:
		p.HandleReadCacheHeaders(t)
	case hostapi.EventCacheLookupComplete:
		p.HandleCacheLookupComplete(t)
	case hostapi.EventSelectAlt:
		p.HandleSelectAlt(t)
	default:
		panic(fmt.Sprintf("lifecycle: no capability method for event %v", ev))
	}
}

// InvokeTransactionPlugin dispatches one event to a scoped plugin with the
// plugin's mutex held for exactly the duration of the call. The deferred
// unlock runs on every exit path, a panicking handler included.
func (c *Core) InvokeTransactionPlugin(p plugin.TransactionPlugin, ev hostapi.Event, h hostapi.TxnHandle) {
	t := c.Resolve(h)
	mu := p.Mutex()
	mu.Lock()
	defer mu.Unlock()
	invokeForEvent(p, t, ev)
}

// InvokeGlobalPlugin dispatches one event to a global plugin, locking only
// when the plugin declares a mutex.
func (c *Core) InvokeGlobalPlugin(p plugin.GlobalPlugin, ev hostapi.Event, h hostapi.TxnHandle) {
	t := c.Resolve(h)
	if mu := p.Mutex(); mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	invokeForEvent(p, t, ev)
}

// AddGlobalHook wires a global plugin's interest in one hook point. Safe
// to call from any startup path; the lifecycle hooks are initialized
// defensively first.
func (c *Core) AddGlobalHook(p plugin.GlobalPlugin, ht plugin.HookType) {
	c.Init()
	c.host.HookAdd(HostHookFor(ht), func(ev hostapi.Event, h hostapi.TxnHandle) {
		defer c.host.Reenable(h)
		c.InvokeGlobalPlugin(p, ev, h)
	})
}

// AddTransactionHook attaches a scoped plugin to one hook point of one
// transaction. The first hook for a plugin also transfers its ownership to
// the transaction so the cleaner tears it down at txn-close.
func (c *Core) AddTransactionHook(t *plugin.Transaction, p plugin.TransactionPlugin, ht plugin.HookType) {
	c.Init()
	owned := false
	for _, sp := range t.ScopedPlugins() {
		if sp == p {
			owned = true
			break
		}
	}
	if !owned {
		t.AddPlugin(p)
	}
	c.host.TxnHookAdd(t.Handle(), HostHookFor(ht), func(ev hostapi.Event, h hostapi.TxnHandle) {
		defer c.host.Reenable(h)
		c.InvokeTransactionPlugin(p, ev, h)
	})
}
