package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"gopkg.in/yaml.v3"
)

// TemplatesFile is the on-disk shape of the catalog.
type TemplatesFile struct {
	Templates []models.Template `yaml:"templates"`
}

// Registry is the read-only restriction template catalog.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]models.Template
}

func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]models.Template),
	}
}

// LoadFromFile reads a YAML catalog. A missing file yields the built-in defaults.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML bytes, rejecting invalid templates.
func Parse(data []byte) (*Registry, error) {
	var file TemplatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, errors.New("templates file defines no templates")
	}

	registry := NewRegistry()
	for _, tpl := range file.Templates {
		if err := registry.Register(tpl); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds tpl after validating it.
func (r *Registry) Register(tpl models.Template) error {
	if tpl.ID == "" {
		return errors.New("template id is required")
	}
	if tpl.DefaultDurationHours != models.DurationPermanent && tpl.DefaultDurationHours <= 0 {
		return fmt.Errorf("template %q: default_duration_hours must be positive or %d", tpl.ID, models.DurationPermanent)
	}
	if tpl.DefaultScope == "" {
		tpl.DefaultScope = models.ScopeFull
	}
	if !tpl.DefaultScope.Valid() {
		return fmt.Errorf("template %q: invalid default_scope %q", tpl.ID, tpl.DefaultScope)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.templates[tpl.ID]; dup {
		return fmt.Errorf("template %q defined twice", tpl.ID)
	}
	r.templates[tpl.ID] = tpl
	return nil
}

func (r *Registry) Get(id string) (models.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[id]
	return tpl, ok
}

// All returns the templates sorted by id.
func (r *Registry) All() []models.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]models.Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		result = append(result, tpl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
