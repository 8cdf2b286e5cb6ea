package lifecycle

import (
	"fmt"

	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
)

// HostHookFor translates an abstract plugin hook declaration into the
// concrete host hook identifier. Total over plugin.HookType; an unmapped
// value means the enumerations have drifted and must crash, there is no
// recoverable default.
func HostHookFor(ht plugin.HookType) hostapi.HookID {
	switch ht {
	case plugin.HookReadRequestHeadersPreRemap:
		return hostapi.HookPreRemap
	case plugin.HookReadRequestHeadersPostRemap:
		return hostapi.HookPostRemap
	case plugin.HookSendRequestHeaders:
		return hostapi.HookSendRequestHeaders
	case plugin.HookReadResponseHeaders:
		return hostapi.HookReadResponseHeaders
	case plugin.HookSendResponseHeaders:
		return hostapi.HookSendResponseHeaders
	case plugin.HookOSDNS:
		return hostapi.HookOSDNS
	case plugin.HookReadRequestHeaders:
		return hostapi.HookReadRequestHeaders
	case plugin.HookReadCacheHeaders:
		return hostapi.HookReadCacheHeaders
	case plugin.HookCacheLookupComplete:
		return hostapi.HookCacheLookupComplete
	case plugin.HookSelectAlt:
		return hostapi.HookSelectAlt
	default:
		panic(fmt.Sprintf("lifecycle: no host hook for hook type %d", int(ht)))
	}
}

// HostHookForTransform translates a transform direction into the host's
// transform hook identifier. Same drift-is-fatal contract as HostHookFor.
func HostHookForTransform(tt plugin.TransformType) hostapi.HookID {
	switch tt {
	case plugin.RequestTransform:
		return hostapi.HookRequestTransform
	case plugin.ResponseTransform:
		return hostapi.HookResponseTransform
	default:
		panic(fmt.Sprintf("lifecycle: no host hook for transform type %d", int(tt)))
	}
}

// EventForHook is the event kind the host delivers for a dispatch-eligible
// hook. The fake host and the embedded engine both use it when emitting.
func EventForHook(ht plugin.HookType) hostapi.Event {
	switch ht {
	case plugin.HookReadRequestHeadersPreRemap:
		return hostapi.EventPreRemap
	case plugin.HookReadRequestHeadersPostRemap:
		return hostapi.EventPostRemap
	case plugin.HookSendRequestHeaders:
		return hostapi.EventSendRequestHeaders
	case plugin.HookReadResponseHeaders:
		return hostapi.EventReadResponseHeaders
	case plugin.HookSendResponseHeaders:
		return hostapi.EventSendResponseHeaders
	case plugin.HookOSDNS:
		return hostapi.EventOSDNS
	case plugin.HookReadRequestHeaders:
		return hostapi.EventReadRequestHeaders
	case plugin.HookReadCacheHeaders:
		return hostapi.EventReadCacheHeaders
	case plugin.HookCacheLookupComplete:
		return hostapi.EventCacheLookupComplete
	case plugin.HookSelectAlt:
		return hostapi.EventSelectAlt
	default:
		panic(fmt.Sprintf("lifecycle: no event for hook type %d", int(ht)))
	}
}
