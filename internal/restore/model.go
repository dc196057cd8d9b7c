package restore

import "storefront/internal/domain"

// Model is an inference model together with the input it expects.
type Model struct {
	Name       string
	Identifier string
	kind       modelKind
}

type modelKind int

const (
	kindRestore modelKind = iota
	kindColorize
)

// ModelSet holds the two configured models.
type ModelSet struct {
	Colorize Model
	Restore  Model
}

// NewModelSet builds the set from replicate identifiers.
func NewModelSet(colorizeID, restoreID string) ModelSet {
	return ModelSet{
		Colorize: Model{Name: "bigcolor", Identifier: colorizeID, kind: kindColorize},
		Restore:  Model{Name: "gfpgan", Identifier: restoreID, kind: kindRestore},
	}
}

// Select applies the priority rule: colorize wins, everything else
// (repair, enhance, damage, unknown tags or nothing) goes to the restore model.
func (m ModelSet) Select(services domain.Services) Model {
	if services.Has(domain.ServiceColorize) {
		return m.Colorize
	}
	return m.Restore
}

// Input builds the prediction input for an encoded image.
func (m Model) Input(dataURL string) map[string]any {
	if m.kind == kindColorize {
		return map[string]any{
			"image":         dataURL,
			"render_factor": 35,
		}
	}
	return map[string]any{
		"img":     dataURL,
		"version": "v1.4",
		"scale":   2,
	}
}
