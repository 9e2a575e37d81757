// Package symtab provides a registry for self-registering symbol
// implementations. Each implementing package uses init() to register the C
// symbol names it covers, so a loader can resolve a name to its Go entry
// point without knowing which package provides it.
package symtab

import (
	"sort"
	"strings"
	"sync"

	glog "github.com/phoenixrt/phostdio/internal/log"
	"go.uber.org/zap"
)

// Debug enables registration logging.
var Debug bool

// Def defines one exported symbol: its canonical C name, alternative names,
// and the Go function that implements it. Fn is typed by the registering
// package; callers assert it to the signature they expect.
type Def struct {
	Name     string
	Aliases  []string
	Category string // for logging: "stdio", "unistd", ...
	Fn       any
}

// Registry holds registered symbol definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Def

	// OnCall, when set, is invoked by implementations that report their
	// calls through the registry.
	OnCall func(category, name, detail string)
}

// DefaultRegistry is the global registry used by init() functions.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty symbol registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds a symbol definition. Aliases resolve to the same definition.
func (r *Registry) Register(def Def) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs[def.Name] = &def
	for _, alias := range def.Aliases {
		r.defs[alias] = &def
	}

	if Debug && glog.L != nil {
		glog.L.WithCategory(def.Category).Debug("registered",
			zap.String("sym", def.Name),
			zap.Strings("aliases", def.Aliases),
		)
	}
}

// RegisterFunc is a convenience wrapper for Register.
func (r *Registry) RegisterFunc(category, name string, fn any, aliases ...string) {
	r.Register(Def{
		Name:     name,
		Aliases:  aliases,
		Category: category,
		Fn:       fn,
	})
}

// Lookup resolves a symbol name or alias.
func (r *Registry) Lookup(name string) (*Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// Names returns every registered name and alias, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns the registered names matching a pattern. Patterns may use a
// leading or trailing * for suffix and prefix matches; anything else is a
// substring match.
func (r *Registry) Match(pattern string) []string {
	var out []string
	for _, name := range r.Names() {
		if matchPattern(name, pattern) {
			out = append(out, name)
		}
	}
	return out
}

// Count returns the number of distinct definitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Def]bool)
	for _, d := range r.defs {
		seen[d] = true
	}
	return len(seen)
}

// Call reports a symbol invocation to the OnCall callback, if any.
func (r *Registry) Call(category, name, detail string) {
	r.mu.RLock()
	cb := r.OnCall
	r.mu.RUnlock()
	if cb != nil {
		cb(category, name, detail)
	}
}

func matchPattern(name, pattern string) bool {
	if strings.Contains(pattern, "*") {
		switch {
		case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
			return strings.Contains(name, pattern[1:len(pattern)-1])
		case strings.HasPrefix(pattern, "*"):
			return strings.HasSuffix(name, pattern[1:])
		case strings.HasSuffix(pattern, "*"):
			return strings.HasPrefix(name, pattern[:len(pattern)-1])
		}
	}
	return name == pattern || strings.Contains(name, pattern)
}

// Register adds a definition to the default registry.
func Register(def Def) { DefaultRegistry.Register(def) }

// RegisterFunc registers with the default registry.
func RegisterFunc(category, name string, fn any, aliases ...string) {
	DefaultRegistry.RegisterFunc(category, name, fn, aliases...)
}

// Lookup resolves against the default registry.
func Lookup(name string) (*Def, bool) { return DefaultRegistry.Lookup(name) }
