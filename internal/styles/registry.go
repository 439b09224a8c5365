// Package styles holds the static catalog of generation presets. The
// registry is read-only after construction and safe for concurrent use.
package styles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"promovid/internal/domain"
)

// Registry maps style keys and provider model IDs to their configuration.
type Registry struct {
	byKey   map[string]domain.StyleConfig
	byModel map[string]domain.StyleConfig
	order   []string
}

// Options configures registry construction.
type Options struct {
	// CatalogPath optionally points at a YAML file whose entries are merged
	// over the built-in catalog. Entries with a known key replace the
	// built-in style; new keys are appended.
	CatalogPath string
}

type catalogFile struct {
	Styles []catalogEntry `yaml:"styles"`
}

type catalogEntry struct {
	Key        string         `yaml:"key"`
	Name       string         `yaml:"name"`
	Model      string         `yaml:"model"`
	BasePrompt string         `yaml:"base_prompt"`
	Price      float64        `yaml:"price"`
	Reveal     bool           `yaml:"reveal"`
	Overrides  map[string]any `yaml:"overrides"`
}

// NewRegistry builds a registry from the built-in catalog plus the optional
// overlay file.
func NewRegistry(opts Options) (*Registry, error) {
	r := &Registry{
		byKey:   make(map[string]domain.StyleConfig),
		byModel: make(map[string]domain.StyleConfig),
	}
	for _, s := range builtinStyles {
		r.add(s)
	}
	if opts.CatalogPath != "" {
		overlay, err := loadCatalog(opts.CatalogPath)
		if err != nil {
			return nil, err
		}
		for _, s := range overlay {
			r.add(s)
		}
	}
	if _, ok := r.byKey[defaultStyleKey]; !ok {
		return nil, fmt.Errorf("styles: default style %q missing from catalog", defaultStyleKey)
	}
	return r, nil
}

func (r *Registry) add(s domain.StyleConfig) {
	if _, exists := r.byKey[s.Key]; !exists {
		r.order = append(r.order, s.Key)
	}
	r.byKey[s.Key] = s
	// First style wins for a shared model ID so lookups stay deterministic.
	if _, exists := r.byModel[s.ModelID]; !exists {
		r.byModel[s.ModelID] = s
	}
}

// Resolve looks up a style by key or by provider model ID. Unknown
// identifiers return ErrUnknownStyle; callers decide whether to fall back.
func (r *Registry) Resolve(styleOrModelID string) (domain.StyleConfig, error) {
	if s, ok := r.byKey[styleOrModelID]; ok {
		return s, nil
	}
	if s, ok := r.byModel[styleOrModelID]; ok {
		return s, nil
	}
	return domain.StyleConfig{}, fmt.Errorf("%w: %s", domain.ErrUnknownStyle, styleOrModelID)
}

// Default returns the designated fallback style.
func (r *Registry) Default() domain.StyleConfig {
	return r.byKey[defaultStyleKey]
}

// List returns all styles in catalog order.
func (r *Registry) List() []domain.StyleConfig {
	out := make([]domain.StyleConfig, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

func loadCatalog(path string) ([]domain.StyleConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("styles: read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("styles: parse catalog: %w", err)
	}
	out := make([]domain.StyleConfig, 0, len(file.Styles))
	for _, e := range file.Styles {
		if e.Key == "" || e.Model == "" {
			return nil, fmt.Errorf("styles: catalog entry needs key and model (key=%q)", e.Key)
		}
		name := e.Name
		if name == "" {
			name = e.Key
		}
		out = append(out, domain.StyleConfig{
			Key:        e.Key,
			Name:       name,
			ModelID:    e.Model,
			BasePrompt: e.BasePrompt,
			Price:      e.Price,
			Reveal:     e.Reveal,
			Overrides:  e.Overrides,
		})
	}
	return out, nil
}
