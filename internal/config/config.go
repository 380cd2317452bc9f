// Package config loads form and reference field definitions from CUE.
//
// A definitions file declares forms, each with the element tree of its parent
// inputs and the parent-scoped reference fields it carries, plus optional
// seed records. The file is unified with the #Config schema below, so
// defaults are applied and type errors are reported with CUE positions.
package config

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/matthewbaird/parentref/internal/constraint"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/types"
)

const schemaSource = `
#Selection: {
	target_type:             string & !=""
	handler_id:              string | *"parent_field_reference"
	view_name:               string | *""
	display_name:            string | *""
	parent_field_names:      [...string] | *[]
	auto_create:             bool | *false
	auto_create_max:         *0 | (int & >=0)
	auto_create_ignore_case: bool | *false
	target_bundles:          [...string] | *[]
}

#Element: {
	key:       string
	classes?:  [...string]
	trigger?:  string
	children?: [...#Element]
}

#PathRule: {
	field:      string
	expression: string
}

#Field: {
	name:               string & !=""
	type:               *"parent_entity_reference" | "entity_reference"
	tags:               bool | *false
	validate_reference: bool | *true
	autocreate_bundle:  string | *""
	constraints:        [...string] | *["ValidReference", "ValidParentReference"]
	selection:          #Selection
	path_rules:         [...#PathRule] | *[]
}

#Form: {
	id:       string
	elements: [...#Element] | *[]
	fields:   [...#Field] | *[]
}

#Record: {
	target_type: string & !=""
	bundle:      string | *""
	label:       string & !=""
	parent:      string | *""
}

#Config: {
	forms: [ID=string]: #Form & {id: ID}
	records: [...#Record] | *[]
}
`

// Config is a decoded definitions file.
type Config struct {
	Forms   map[string]FormDef `json:"forms"`
	Records []types.Record     `json:"records"`
}

// FormDef declares one form.
type FormDef struct {
	ID       string          `json:"id"`
	Elements []*form.Element `json:"elements"`
	Fields   []FieldDef      `json:"fields"`
}

// FieldDef declares one reference field.
type FieldDef struct {
	Name              string                  `json:"name"`
	Type              string                  `json:"type"`
	Tags              bool                    `json:"tags"`
	ValidateReference bool                    `json:"validate_reference"`
	AutocreateBundle  string                  `json:"autocreate_bundle"`
	Constraints       []string                `json:"constraints"`
	Selection         types.SelectionSettings `json:"selection"`
	PathRules         []PathRule              `json:"path_rules"`
}

// PathRule rewrites one parent position with an expression.
type PathRule struct {
	Field      string `json:"field"`
	Expression string `json:"expression"`
}

// ConstraintIDs returns the constraints that apply to the field once its
// type has been taken into account.
func (f FieldDef) ConstraintIDs() []string {
	return constraint.FieldConstraints(f.Type, f.Constraints)
}

// Load parses and validates a definitions document.
func Load(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, configError(filename, err)
	}
	return decode(ctx, doc, filename)
}

// LoadDir loads the CUE package in dir, so definitions may be split across
// files (one per form, say).
func LoadDir(dir string) (*Config, error) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, &types.ConfigError{Component: dir, Message: "no CUE package found"}
	}
	if err := insts[0].Err; err != nil {
		return nil, configError(dir, err)
	}
	ctx := cuecontext.New()
	doc := ctx.BuildInstance(insts[0])
	if err := doc.Err(); err != nil {
		return nil, configError(dir, err)
	}
	return decode(ctx, doc, dir)
}

// LoadFile loads path, which may be a single .cue file or a package
// directory.
func LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Load(data, path)
}

// decode unifies doc with #Config, applying defaults, and decodes the result.
func decode(ctx *cue.Context, doc cue.Value, name string) (*Config, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, configError(name, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, configError(name, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configError(filename string, err error) error {
	return &types.ConfigError{Component: filename, Message: cueerrors.Details(err, nil)}
}

func (c *Config) validate() error {
	for _, id := range c.FormIDs() {
		f := c.Forms[id]
		seen := make(map[string]bool, len(f.Fields))
		for _, field := range f.Fields {
			if seen[field.Name] {
				return &types.ConfigError{Component: "form " + id, Message: fmt.Sprintf("field %q declared twice", field.Name)}
			}
			seen[field.Name] = true
			if err := field.Selection.Validate(); err != nil {
				return fmt.Errorf("form %s field %s: %w", id, field.Name, err)
			}
		}
	}
	return nil
}

// FormIDs returns the declared form ids, sorted.
func (c *Config) FormIDs() []string {
	ids := make([]string, 0, len(c.Forms))
	for id := range c.Forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Field returns the definition of field name on form formID.
func (c *Config) Field(formID, name string) (FieldDef, bool) {
	f, ok := c.Forms[formID]
	if !ok {
		return FieldDef{}, false
	}
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDef{}, false
}

// PathRules collects the expression rules of every field, keyed by the
// field's target type.
func (c *Config) PathRules() []parentpath.ExprRule {
	var rules []parentpath.ExprRule
	for _, id := range c.FormIDs() {
		for _, field := range c.Forms[id].Fields {
			for _, r := range field.PathRules {
				rules = append(rules, parentpath.ExprRule{
					TargetType: field.Selection.TargetType,
					Field:      r.Field,
					Expression: r.Expression,
				})
			}
		}
	}
	return rules
}

// Handlers returns the selection handler ids the definitions rely on.
func (c *Config) Handlers() []string {
	set := make(map[string]bool)
	for _, f := range c.Forms {
		for _, field := range f.Fields {
			set[field.Selection.HandlerID] = true
		}
	}
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// CheckHandlers reports a ConfigError when a field uses a handler the
// registry does not know.
func (c *Config) CheckHandlers(reg *lookup.Registry) error {
	known := make(map[string]bool)
	for _, h := range reg.Handlers() {
		known[h] = true
	}
	for _, h := range c.Handlers() {
		if !known[h] {
			return &types.ConfigError{Component: "selection handler", Message: fmt.Sprintf("unknown selection handler %q", h)}
		}
	}
	return nil
}
