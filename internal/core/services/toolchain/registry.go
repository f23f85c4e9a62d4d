package toolchain

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps a language tag to its Spec
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// DefaultRegistry holds every built-in language
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range builtinSpecs() {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces a language
func (r *Registry) Register(spec Spec) error {
	if spec.Language == "" {
		return fmt.Errorf("language tag is required")
	}
	if spec.SourceFile == "" {
		return fmt.Errorf("language %s: source file is required", spec.Language)
	}
	if len(spec.Run) == 0 {
		return fmt.Errorf("language %s: run command is required", spec.Language)
	}
	if spec.Kind == NameDerived && spec.Identifier == nil {
		return fmt.Errorf("language %s: name-derived languages need an identifier scanner", spec.Language)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Language] = spec
	return nil
}

func (r *Registry) Lookup(language string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[language]
	return spec, ok
}

// Languages returns the registered tags in sorted order
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.specs))
	for lang := range r.specs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Specs returns a copy of every registered spec in language order
func (r *Registry) Specs() []Spec {
	langs := r.Languages()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(langs))
	for _, lang := range langs {
		out = append(out, r.specs[lang])
	}
	return out
}
