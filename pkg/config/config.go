// Package config loads and validates the steeze-edge manifest: where the
// embedded engine listens, where it forwards, and which plugins run in
// which scope on which hooks.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
)

// Config is the top-level manifest.
type Config struct {
	Proxy   Proxy          `toml:"proxy"`
	Admin   Admin          `toml:"admin"`
	Plugins []PluginConfig `toml:"plugin"`
}

// Proxy configures the embedded engine.
type Proxy struct {
	Listen   string `toml:"listen"`
	Upstream string `toml:"upstream"`
}

// Admin configures the admin/metrics endpoint. Empty listen disables it.
type Admin struct {
	Listen string `toml:"listen"`
}

// PluginConfig names a registered plugin factory, the scope it runs in,
// and the hooks it attaches to.
type PluginConfig struct {
	Factory string         `toml:"factory"`
	Scope   string         `toml:"scope"` // "transaction" | "global"
	Hooks   []string       `toml:"hooks"`
	Options map[string]any `toml:"options"`
}

const (
	ScopeTransaction = "transaction"
	ScopeGlobal      = "global"
)

// Validate checks the manifest before anything is wired. A manifest error
// is a startup failure, never a per-request condition.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Proxy.Listen) == "" {
		return errors.New("proxy.listen required")
	}
	up := strings.TrimSpace(c.Proxy.Upstream)
	if up == "" {
		return errors.New("proxy.upstream required")
	}
	u, err := url.Parse(up)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy.upstream %q: absolute URL required", up)
	}

	for i := range c.Plugins {
		pc := &c.Plugins[i]
		if strings.TrimSpace(pc.Factory) == "" {
			return fmt.Errorf("plugin %d: factory required", i)
		}
		switch pc.Scope {
		case ScopeTransaction, ScopeGlobal:
		case "":
			pc.Scope = ScopeTransaction
		default:
			return fmt.Errorf("plugin %d (%s): scope %q must be %q or %q",
				i, pc.Factory, pc.Scope, ScopeTransaction, ScopeGlobal)
		}
		if len(pc.Hooks) == 0 {
			return fmt.Errorf("plugin %d (%s): at least one hook required", i, pc.Factory)
		}
		for _, hn := range pc.Hooks {
			if _, ok := plugin.ParseHookType(hn); !ok {
				return fmt.Errorf("plugin %d (%s): unknown hook %q", i, pc.Factory, hn)
			}
		}
	}
	return nil
}

// HookTypes resolves a plugin entry's hook names. Call after Validate.
func (pc *PluginConfig) HookTypes() []plugin.HookType {
	out := make([]plugin.HookType, 0, len(pc.Hooks))
	for _, hn := range pc.Hooks {
		ht, ok := plugin.ParseHookType(hn)
		if !ok {
			panic(fmt.Sprintf("config: unvalidated hook name %q", hn))
		}
		out = append(out, ht)
	}
	return out
}
