package prompt

import (
	"fmt"
	"slices"
	"sync"
)

type registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates an empty template registry
func NewRegistry() Registry {
	return &registry{
		templates: make(map[string]Template),
	}
}

func (r *registry) Register(name string, template Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[name]; exists {
		return fmt.Errorf("template %s already registered", name)
	}
	r.templates[name] = template
	return nil
}

func (r *registry) Set(name string, template Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = template
}

func (r *registry) Get(name string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	template, exists := r.templates[name]
	if !exists {
		return nil, fmt.Errorf("template %s not found", name)
	}
	return template, nil
}

func (r *registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
