package plugin

import "fmt"

// Factory builds a plugin instance from its manifest options. Scoped
// factories are invoked once per transaction; global factories once at
// startup.
type Factory func(opts map[string]any) (Plugin, error)

var registry = map[string]Factory{}

// RegisterFactory makes a plugin buildable under a name referenced in the
// manifest.
func RegisterFactory(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("plugin factory name and constructor required")
	}
	if _, ok := registry[name]; ok {
		return fmt.Errorf("plugin factory %q already registered", name)
	}
	registry[name] = f
	return nil
}

func MustRegisterFactory(name string, f Factory) {
	if err := RegisterFactory(name, f); err != nil {
		panic(err)
	}
}

// LookupFactory retrieves a registered plugin factory by name.
func LookupFactory(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}
