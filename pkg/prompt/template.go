package prompt

import (
	"fmt"
	"maps"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// PromptTemplate wraps a langchaingo go-template prompt with partial values,
// defaults and per-variable validation.
type PromptTemplate struct {
	template         prompts.PromptTemplate
	partialVariables map[string]any
	metadata         map[string]*Variable
}

// NewPromptTemplate creates a new prompt template
func NewPromptTemplate(template string, inputVars []string) *PromptTemplate {
	return &PromptTemplate{
		template:         prompts.NewPromptTemplate(template, inputVars),
		partialVariables: make(map[string]any),
		metadata:         make(map[string]*Variable),
	}
}

// NewPromptTemplateWithOptions creates a new prompt template with options
func NewPromptTemplateWithOptions(template string, inputVars []string, options ...PromptOption) (*PromptTemplate, error) {
	pt := NewPromptTemplate(template, inputVars)
	for _, opt := range options {
		if err := opt(pt); err != nil {
			return nil, err
		}
	}
	return pt, nil
}

// Format formats the template with the given values
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	merged := p.mergeValues(values)
	if err := p.validateVariables(merged); err != nil {
		return "", err
	}
	return p.template.Format(merged)
}

// GetInputVariables returns the list of input variable names
func (p *PromptTemplate) GetInputVariables() []string {
	return p.template.InputVariables
}

// WithPartialVariables creates a new template with partial variables set
func (p *PromptTemplate) WithPartialVariables(partials map[string]any) Template {
	next := &PromptTemplate{
		template:         p.template,
		partialVariables: maps.Clone(p.partialVariables),
		metadata:         p.metadata,
	}
	maps.Copy(next.partialVariables, partials)
	return next
}

// mergeValues layers partials, then values, then declared defaults
func (p *PromptTemplate) mergeValues(values map[string]any) map[string]any {
	merged := maps.Clone(p.partialVariables)
	maps.Copy(merged, values)

	for _, name := range p.template.InputVariables {
		if _, exists := merged[name]; exists {
			continue
		}
		if meta, ok := p.metadata[name]; ok && meta.Default != nil {
			merged[name] = meta.Default
		}
	}
	return merged
}

func (p *PromptTemplate) validateVariables(values map[string]any) error {
	var missing []string

	for _, name := range p.template.InputVariables {
		meta, hasMeta := p.metadata[name]
		value, exists := values[name]

		if !exists && hasMeta && meta.Required {
			missing = append(missing, name)
			continue
		}
		if exists && hasMeta && meta.Validator != nil {
			if err := meta.Validator(value); err != nil {
				return fmt.Errorf("validation failed for variable %s: %w", name, err)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// PromptOption is a functional option for configuring a PromptTemplate
type PromptOption func(*PromptTemplate) error

// WithPartials sets partial variables
func WithPartials(partials map[string]any) PromptOption {
	return func(pt *PromptTemplate) error {
		maps.Copy(pt.partialVariables, partials)
		return nil
	}
}

// WithVariableMetadata sets metadata for variables
func WithVariableMetadata(variables ...*Variable) PromptOption {
	return func(pt *PromptTemplate) error {
		for _, v := range variables {
			if v == nil || v.Name == "" {
				return fmt.Errorf("variable metadata needs a name")
			}
			pt.metadata[v.Name] = v
		}
		return nil
	}
}

var _ Template = (*PromptTemplate)(nil)
