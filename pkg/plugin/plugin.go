// Package plugin defines the capability surface of steeze-edge plugins:
// the fixed set of lifecycle handler methods, the hook enumerations
// plugins declare interest with, and the transaction object handlers
// receive. Scoped plugins live and die with one transaction; global
// plugins live for the process.
package plugin

// Plugin is the full capability set. Each method corresponds to one
// lifecycle event kind; embed Base to pick up no-op defaults and override
// only the stages a plugin cares about.
type Plugin interface {
	HandleReadRequestHeadersPreRemap(t *Transaction)
	HandleReadRequestHeadersPostRemap(t *Transaction)
	HandleSendRequestHeaders(t *Transaction)
	HandleReadResponseHeaders(t *Transaction)
	HandleSendResponseHeaders(t *Transaction)
	HandleOSDNS(t *Transaction)
	HandleReadRequestHeaders(t *Transaction)
	HandleReadCacheHeaders(t *Transaction)
	HandleCacheLookupComplete(t *Transaction)
	HandleSelectAlt(t *Transaction)
}

// Base implements every capability method as a no-op.
type Base struct{}

func (Base) HandleReadRequestHeadersPreRemap(*Transaction)  {}
func (Base) HandleReadRequestHeadersPostRemap(*Transaction) {}
func (Base) HandleSendRequestHeaders(*Transaction)          {}
func (Base) HandleReadResponseHeaders(*Transaction)         {}
func (Base) HandleSendResponseHeaders(*Transaction)         {}
func (Base) HandleOSDNS(*Transaction)                       {}
func (Base) HandleReadRequestHeaders(*Transaction)          {}
func (Base) HandleReadCacheHeaders(*Transaction)            {}
func (Base) HandleCacheLookupComplete(*Transaction)         {}
func (Base) HandleSelectAlt(*Transaction)                   {}

// HookType is the abstract hook a plugin declares interest in. The
// lifecycle core translates it to the concrete host hook identifier.
type HookType int

const (
	HookReadRequestHeadersPreRemap HookType = iota
	HookReadRequestHeadersPostRemap
	HookSendRequestHeaders
	HookReadResponseHeaders
	HookSendResponseHeaders
	HookOSDNS
	HookReadRequestHeaders
	HookReadCacheHeaders
	HookCacheLookupComplete
	HookSelectAlt
)

var hookTypeNames = map[HookType]string{
	HookReadRequestHeadersPreRemap:  "read-request-headers-pre-remap",
	HookReadRequestHeadersPostRemap: "read-request-headers-post-remap",
	HookSendRequestHeaders:          "send-request-headers",
	HookReadResponseHeaders:         "read-response-headers",
	HookSendResponseHeaders:         "send-response-headers",
	HookOSDNS:                       "os-dns",
	HookReadRequestHeaders:          "read-request-headers",
	HookReadCacheHeaders:            "read-cache-headers",
	HookCacheLookupComplete:         "cache-lookup-complete",
	HookSelectAlt:                   "select-alt",
}

func (h HookType) String() string {
	if n, ok := hookTypeNames[h]; ok {
		return n
	}
	return "unknown-hook-type"
}

// ParseHookType resolves a manifest hook name to its HookType.
func ParseHookType(s string) (HookType, bool) {
	for ht, n := range hookTypeNames {
		if n == s {
			return ht, true
		}
	}
	return 0, false
}

// HookTypes returns every declarable hook, for table-completeness checks
// and manifest validation errors.
func HookTypes() []HookType {
	out := make([]HookType, 0, len(hookTypeNames))
	for ht := range hookTypeNames {
		out = append(out, ht)
	}
	return out
}

// TransformType selects which direction a transform plugin rewrites.
type TransformType int

const (
	RequestTransform TransformType = iota
	ResponseTransform
)

func (t TransformType) String() string {
	switch t {
	case RequestTransform:
		return "request-transform"
	case ResponseTransform:
		return "response-transform"
	}
	return "unknown-transform-type"
}
