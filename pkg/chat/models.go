package chat

import (
	"errors"
	"fmt"
)

// ErrUnknownModel is returned when a model id is not in the catalogue.
var ErrUnknownModel = errors.New("unknown model")

// Model is an entry of the model dropdown.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalogue is the ordered list of selectable models. The first entry is the
// default selection.
type Catalogue []Model

// Default returns the first model.
func (c Catalogue) Default() (Model, bool) {
	if len(c) == 0 {
		return Model{}, false
	}
	return c[0], true
}

// Find looks a model up by id.
func (c Catalogue) Find(id string) (Model, error) {
	for _, m := range c {
		if m.ID == id {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
}
