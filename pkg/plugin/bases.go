package plugin

import "sync"

// TransactionPlugin is a scoped plugin: owned by exactly one transaction,
// torn down by the lifecycle cleaner at txn-close. Its mutex is held for
// every capability invocation and for its teardown, so an invocation can
// never race its own deletion.
type TransactionPlugin interface {
	Plugin
	// Mutex is never nil for a transaction plugin.
	Mutex() *sync.Mutex
	// Teardown releases plugin resources. Called exactly once, under the
	// plugin's mutex, when the owning transaction closes.
	Teardown()
}

// TransactionBase supplies the mutex and a no-op Teardown; embed it and
// override the capability methods the plugin handles.
type TransactionBase struct {
	Base
	mu sync.Mutex
}

func (b *TransactionBase) Mutex() *sync.Mutex { return &b.mu }
func (b *TransactionBase) Teardown()          {}

// GlobalPlugin is a process-wide plugin: registered once, shared across
// every transaction, never torn down by per-transaction cleanup. Mutex may
// return nil to opt out of per-invocation locking; globals that mutate
// internal state across requests should return one.
type GlobalPlugin interface {
	Plugin
	Mutex() *sync.Mutex
}

// GlobalBase embeds to a lock-free global plugin.
type GlobalBase struct{ Base }

func (GlobalBase) Mutex() *sync.Mutex { return nil }

// LockedGlobalBase embeds to a global plugin serialized by its own mutex.
type LockedGlobalBase struct {
	Base
	mu sync.Mutex
}

func (b *LockedGlobalBase) Mutex() *sync.Mutex { return &b.mu }
