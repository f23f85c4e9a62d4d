package execution

import (
	"fmt"
	"sync"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

const mb = 1 << 20

// LimitTable resolves the bounds each language runs under
type LimitTable struct {
	mu        sync.RWMutex
	registry  *toolchain.Registry
	base      domain.Limits
	overrides map[string]*domain.LanguageConfig
}

func NewLimitTable(registry *toolchain.Registry, base domain.Limits) *LimitTable {
	return &LimitTable{
		registry:  registry,
		base:      base,
		overrides: make(map[string]*domain.LanguageConfig),
	}
}

// Apply replaces the override set; unknown languages are ignored
func (t *LimitTable) Apply(configs []*domain.LanguageConfig) {
	overrides := make(map[string]*domain.LanguageConfig, len(configs))
	for _, cfg := range configs {
		if _, ok := t.registry.Lookup(cfg.Language); ok {
			overrides[cfg.Language] = cfg
		}
	}
	t.mu.Lock()
	t.overrides = overrides
	t.mu.Unlock()
}

// For returns the limits for one run of the language
func (t *LimitTable) For(language string) (domain.Limits, error) {
	spec, ok := t.registry.Lookup(language)
	if !ok {
		return domain.Limits{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedLanguage, language)
	}

	limits := t.base
	limits.AddressSpaceUnbounded = spec.AddressSpaceUnbounded

	t.mu.RLock()
	cfg, ok := t.overrides[language]
	t.mu.RUnlock()
	if !ok {
		return limits, nil
	}
	if !cfg.Active {
		return domain.Limits{}, fmt.Errorf("%w: %s is disabled", errs.ErrUnsupportedLanguage, language)
	}
	if cfg.TimeoutMs > 0 {
		limits.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	if cfg.MemoryLimitMB > 0 {
		limits.MemoryBytes = uint64(cfg.MemoryLimitMB) * mb
	}
	if cfg.StackLimitMB > 0 {
		limits.StackBytes = uint64(cfg.StackLimitMB) * mb
	}
	return limits, nil
}

// Describe lists the effective configuration of every registered language
func (t *LimitTable) Describe() []*domain.LanguageConfig {
	specs := t.registry.Specs()
	out := make([]*domain.LanguageConfig, 0, len(specs))
	for _, spec := range specs {
		limits, err := t.For(spec.Language)
		cfg := &domain.LanguageConfig{
			Language:      spec.Language,
			Description:   spec.Description,
			TimeoutMs:     int(limits.Timeout.Milliseconds()),
			MemoryLimitMB: int(limits.MemoryBytes / mb),
			StackLimitMB:  int(limits.StackBytes / mb),
			Active:        err == nil,
		}
		t.mu.RLock()
		if o, ok := t.overrides[spec.Language]; ok {
			cfg.UpdatedAt = o.UpdatedAt
			if !o.Active {
				cfg.TimeoutMs, cfg.MemoryLimitMB, cfg.StackLimitMB = o.TimeoutMs, o.MemoryLimitMB, o.StackLimitMB
			}
		}
		t.mu.RUnlock()
		out = append(out, cfg)
	}
	return out
}
