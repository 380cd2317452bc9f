package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Record holds a referenceable row. Every record sits under at most one
// parent value, which is what autocomplete scopes on.
type Record struct {
	ent.Schema
}

// Mixin of the Record.
func (Record) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the Record.
func (Record) Fields() []ent.Field {
	return []ent.Field{
		field.String("target_type").
			NotEmpty().
			Comment("Entity type the record is referenced as, e.g. 'term'"),
		field.String("bundle").
			NotEmpty().
			Comment("Sub-type the record was filed under"),
		field.String("label").
			NotEmpty().
			Comment("Display label matched by autocomplete"),
		field.String("parent").
			Default("").
			Comment("Parent value scoping the record; empty when unscoped"),
	}
}

// Indexes of the Record.
func (Record) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("target_type", "parent"),
		index.Fields("target_type", "label"),
	}
}
