package store

import (
	"fmt"

	"entgo.io/ent"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/matthewbaird/parentref/ent/schema"
)

// Table names.
const (
	recordsTable  = "records"
	settingsTable = "selection_settings"
)

// entity is the part of an ent schema the migration reads.
type entity interface {
	Mixin() []ent.Mixin
	Fields() []ent.Field
	Indexes() []ent.Index
}

// tables builds the migration tables from the ent schema definitions, so the
// field declarations in ent/schema stay the single source of the layout.
func tables() ([]*schema.Table, error) {
	records, err := tableFor(recordsTable, entschema.Record{})
	if err != nil {
		return nil, err
	}
	settings, err := tableFor(settingsTable, entschema.SelectionSetting{})
	if err != nil {
		return nil, err
	}
	return []*schema.Table{records, settings}, nil
}

func tableFor(name string, e entity) (*schema.Table, error) {
	t := schema.NewTable(name).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})

	var fields []ent.Field
	for _, m := range e.Mixin() {
		fields = append(fields, m.Fields()...)
	}
	fields = append(fields, e.Fields()...)

	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		col := &schema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Unique:   d.Unique,
			Nullable: d.Optional,
			Size:     int64(d.Size),
			Comment:  d.Comment,
		}
		if d.StorageKey != "" {
			col.Name = d.StorageKey
		}
		for _, en := range d.Enums {
			col.Enums = append(col.Enums, en.V)
		}
		// Only literal defaults reach the DDL; generated ones such as
		// time.Now are filled in on insert.
		switch v := d.Default.(type) {
		case string, bool, int, int64, float64:
			col.Default = v
		}
		t.AddColumn(col)
	}

	for i, idx := range e.Indexes() {
		d := idx.Descriptor()
		idxName := d.StorageKey
		if idxName == "" {
			idxName = fmt.Sprintf("%s_idx_%d", name, i)
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t, nil
}
