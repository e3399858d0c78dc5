package main

import (
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/visitors"
)

// pluginEntry is an enabled plugin.
type pluginEntry struct {
	name    string                     // "softdelete"
	factory func() plugins.Transformer // fresh instance per compiler
	status  func() string              // human-readable status for display
	color   string                     // DOT provenance color
}

// pluginRegistry holds the enabled plugins in the order they apply.
type pluginRegistry struct {
	entries []pluginEntry
}

// register adds or replaces a plugin by name.
func (r *pluginRegistry) register(entry pluginEntry) {
	for i, e := range r.entries {
		if e.name == entry.name {
			r.entries[i] = entry
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// deregister removes a plugin by name. Returns false if not found.
func (r *pluginRegistry) deregister(name string) bool {
	for i, e := range r.entries {
		if e.name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *pluginRegistry) deregisterAll() {
	r.entries = nil
}

func (r *pluginRegistry) get(name string) (pluginEntry, bool) {
	for _, e := range r.entries {
		if e.name == name {
			return e, true
		}
	}
	return pluginEntry{}, false
}

func (r *pluginRegistry) names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// transformers instantiates every enabled plugin. When prov is non-nil the
// predicates each plugin adds are recorded in it for DOT clustering.
func (r *pluginRegistry) transformers(prov *visitors.PluginProvenance) []plugins.Transformer {
	out := make([]plugins.Transformer, 0, len(r.entries))
	for _, entry := range r.entries {
		t := entry.factory()
		if prov != nil {
			t = recordingTransformer{inner: t, prov: prov, name: entry.name, color: entry.color}
		}
		out = append(out, t)
	}
	return out
}

// recordingTransformer notes the predicates its inner transformer applies.
type recordingTransformer struct {
	inner       plugins.Transformer
	prov        *visitors.PluginProvenance
	name, color string
}

func (t recordingTransformer) TransformRoot(root plugins.RootSelect) error {
	return t.inner.TransformRoot(recordingRoot{RootSelect: root, t: t})
}

type recordingRoot struct {
	plugins.RootSelect
	t recordingTransformer
}

func (r recordingRoot) ApplyPredicate(pred nodes.Node) {
	r.t.prov.AddPredicate(r.t.name, r.t.color, pred)
	r.RootSelect.ApplyPredicate(pred)
}

// pluginConfigurer is a known plugin that the plugin command can enable.
type pluginConfigurer struct {
	name      string
	configure func(s *Session, args string) error
}
