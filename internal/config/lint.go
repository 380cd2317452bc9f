package config

import (
	"fmt"

	"github.com/matthewbaird/parentref/internal/constraint"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/parentpath"
)

// Lint reports definitions that load but will not behave as intended: parent
// fields with no element to carry the refresh trigger, path rules for fields
// that are not parents, and autocreate bundles the field may not create.
func (c *Config) Lint() []string {
	var problems []string
	for _, id := range c.FormIDs() {
		f := c.Forms[id]
		for _, field := range f.Fields {
			where := fmt.Sprintf("form %s field %s", id, field.Name)
			parents := parentpath.FieldNames(field.Selection.ParentFieldNames)

			if field.Type == constraint.FieldTypeParentEntityReference && len(parents) == 0 {
				problems = append(problems, where+": parent_entity_reference without parent_field_names")
			}
			for _, p := range parents {
				if !hasElement(f.Elements, p) {
					problems = append(problems, fmt.Sprintf("%s: parent field %q has no element, so changes to it will not refresh the widget", where, p))
				}
			}
			for _, r := range field.PathRules {
				if !contains(parents, r.Field) {
					problems = append(problems, fmt.Sprintf("%s: path rule for %q, which is not a parent field", where, r.Field))
				}
			}
			if b := field.AutocreateBundle; b != "" && !field.Selection.BundleAllowed(b) {
				problems = append(problems, fmt.Sprintf("%s: autocreate_bundle %q is not among target_bundles", where, b))
			}
		}
	}
	return problems
}

func hasElement(elements []*form.Element, key string) bool {
	for _, e := range elements {
		if form.Find(e, key) != nil {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
