package plugin

import "sync"

// teardowner is what a factory-built plugin implements when it holds
// resources that must be released at txn-close.
type teardowner interface {
	Teardown()
}

type txnAdapter struct {
	Plugin
	mu sync.Mutex
}

func (a *txnAdapter) Mutex() *sync.Mutex { return &a.mu }
func (a *txnAdapter) Teardown() {
	if td, ok := a.Plugin.(teardowner); ok {
		td.Teardown()
	}
}

// AsTransaction adapts a factory-built plugin to the scoped contract. A
// plugin that already satisfies TransactionPlugin is returned as-is;
// anything else is wrapped with its own mutex and a Teardown that
// delegates when the plugin has one.
func AsTransaction(p Plugin) TransactionPlugin {
	if tp, ok := p.(TransactionPlugin); ok {
		return tp
	}
	return &txnAdapter{Plugin: p}
}

type globalAdapter struct {
	Plugin
}

func (globalAdapter) Mutex() *sync.Mutex { return nil }

// AsGlobal adapts a factory-built plugin to the global contract. Plugins
// that manage cross-request state should implement GlobalPlugin directly
// and return a real mutex; the adapter opts out of locking.
func AsGlobal(p Plugin) GlobalPlugin {
	if gp, ok := p.(GlobalPlugin); ok {
		return gp
	}
	return globalAdapter{Plugin: p}
}
