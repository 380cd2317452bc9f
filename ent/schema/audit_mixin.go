package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/mixin"
)

// AuditMixin records who created a row and through which path.
type AuditMixin struct {
	mixin.Schema
}

// Fields of the AuditMixin.
func (AuditMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").
			Default(time.Now).
			Immutable().
			Comment("When the row was created"),
		field.String("created_by").
			Default("system").
			Comment("User ID, agent ID, or 'system' who created this row"),
		field.Enum("source").
			Values("user", "agent", "import", "system").
			Default("system").
			Comment("Origin of the change"),
		field.String("correlation_id").
			Optional().
			Nillable().
			Comment("Form build that produced the row, if any"),
	}
}
