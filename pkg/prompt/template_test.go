package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate(t *testing.T) {
	t.Run("basic template formatting", func(t *testing.T) {
		template := NewPromptTemplate(
			"Build a {{.kind}} page in {{.style}}.",
			[]string{"kind", "style"},
		)

		result, err := template.Format(map[string]any{
			"kind":  "pricing",
			"style": "dark mode",
		})

		require.NoError(t, err)
		assert.Equal(t, "Build a pricing page in dark mode.", result)
	})

	t.Run("template with partial variables", func(t *testing.T) {
		template := NewPromptTemplate("{{.verb}} the {{.tag}}", []string{"verb", "tag"})

		partial := template.WithPartialVariables(map[string]any{"verb": "Modify"})
		result, err := partial.Format(map[string]any{"tag": "nav"})

		require.NoError(t, err)
		assert.Equal(t, "Modify the nav", result)

		original := template.WithPartialVariables(nil)
		result, err = original.Format(map[string]any{"verb": "Delete", "tag": "nav"})
		require.NoError(t, err)
		assert.Equal(t, "Delete the nav", result)
	})

	t.Run("values override partials", func(t *testing.T) {
		template := NewPromptTemplate("{{.a}}", []string{"a"}).WithPartialVariables(map[string]any{"a": "partial"})

		result, err := template.Format(map[string]any{"a": "value"})
		require.NoError(t, err)
		assert.Equal(t, "value", result)
	})

	t.Run("template with variable metadata", func(t *testing.T) {
		template, err := NewPromptTemplateWithOptions(
			"Width: {{.width}}, Columns: {{.columns}}",
			[]string{"width", "columns"},
			WithVariableMetadata(
				&Variable{
					Name:     "width",
					Required: true,
					Validator: func(v any) error {
						w, ok := v.(int)
						if !ok || w <= 0 {
							return assert.AnError
						}
						return nil
					},
				},
				&Variable{Name: "columns", Default: 12},
			),
		)
		require.NoError(t, err)

		result, err := template.Format(map[string]any{"width": 1280})
		require.NoError(t, err)
		assert.Equal(t, "Width: 1280, Columns: 12", result)

		_, err = template.Format(map[string]any{"width": -5})
		assert.ErrorIs(t, err, assert.AnError)

		_, err = template.Format(map[string]any{})
		assert.ErrorContains(t, err, "missing required variables: width")
	})

	t.Run("metadata without a name is rejected", func(t *testing.T) {
		_, err := NewPromptTemplateWithOptions("x", nil, WithVariableMetadata(&Variable{}))
		assert.Error(t, err)
	})

	t.Run("partials option", func(t *testing.T) {
		template, err := NewPromptTemplateWithOptions("{{.x}}", []string{"x"}, WithPartials(map[string]any{"x": "set"}))
		require.NoError(t, err)

		result, err := template.Format(nil)
		require.NoError(t, err)
		assert.Equal(t, "set", result)
	})

	t.Run("get input variables", func(t *testing.T) {
		template := NewPromptTemplate("{{.a}} {{.b}}", []string{"a", "b"})
		assert.ElementsMatch(t, []string{"a", "b"}, template.GetInputVariables())
	})
}
