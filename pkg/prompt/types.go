package prompt

// Template renders a prompt from named values
type Template interface {
	// Format formats the template with the given variables
	Format(values map[string]any) (string, error)

	// GetInputVariables returns the list of input variable names
	GetInputVariables() []string

	// WithPartialVariables creates a new template with partial variables set
	WithPartialVariables(partials map[string]any) Template
}

// Registry manages named prompt templates
type Registry interface {
	// Register adds a template and fails if the name is taken
	Register(name string, template Template) error

	// Set adds or replaces a template
	Set(name string, template Template)

	// Get retrieves a template by name
	Get(name string) (Template, error)

	// List returns all registered template names in order
	List() []string
}

// Variable represents a template variable with metadata
type Variable struct {
	Name      string
	Required  bool
	Default   any
	Validator func(value any) error
}
