package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// SelectionSetting holds one issued settings blob keyed by its token.
type SelectionSetting struct {
	ent.Schema
}

// Mixin of the SelectionSetting.
func (SelectionSetting) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the SelectionSetting.
func (SelectionSetting) Fields() []ent.Field {
	return []ent.Field{
		field.String("token").
			Unique().
			NotEmpty().
			Comment("HMAC token the settings were issued under"),
		field.String("target_type").
			NotEmpty(),
		field.String("handler_id").
			NotEmpty(),
		field.Text("settings").
			Comment("Canonical JSON of the selection settings"),
	}
}
