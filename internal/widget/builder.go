// Package widget ties the autocomplete core to a form: it builds the
// parent-scoped reference widgets of a form, re-renders them when a parent
// input changes, and runs the submit pipeline.
package widget

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/settings"
)

// ElementType is the element type of a parent-scoped reference widget.
const ElementType = "entity_autocomplete_by_parent"

// RoutePrefix is the path the lookup endpoint is mounted under.
const RoutePrefix = "/entity_autocomplete_by_parent"

// Widget is one rendered reference field.
type Widget struct {
	Field           string   `json:"field"`
	Type            string   `json:"type"`
	TargetType      string   `json:"target_type"`
	Handler         string   `json:"selection_handler"`
	Token           string   `json:"settings_token"`
	ParentPath      []string `json:"parent_path"`
	AutocompleteURL string   `json:"autocomplete_url"`
	Class           string   `json:"class,omitempty"`
	Tags            bool     `json:"tags"`
	DefaultValue    string   `json:"default_value,omitempty"`
}

// Build is a rendered form.
type Build struct {
	BuildID  string          `json:"build_id"`
	FormID   string          `json:"form_id"`
	Widgets  []Widget        `json:"widgets"`
	Elements []*form.Element `json:"elements"`
}

// Builder renders the reference widgets of configured forms.
type Builder struct {
	defs     *config.Config
	forms    *form.Manager
	verifier *settings.Verifier
	resolver *parentpath.Resolver
	matcher  *matcher.Matcher
}

// NewBuilder creates a builder.
func NewBuilder(defs *config.Config, forms *form.Manager, verifier *settings.Verifier, resolver *parentpath.Resolver, m *matcher.Matcher) *Builder {
	return &Builder{defs: defs, forms: forms, verifier: verifier, resolver: resolver, matcher: m}
}

// Build renders formID for the given input. defaults maps a field to the ids
// it currently references; they are rendered as "label (id)" tokens.
func (b *Builder) Build(ctx context.Context, formID string, in form.Input, defaults map[string][]string) (*Build, error) {
	def, ok := b.defs.Forms[formID]
	if !ok {
		return nil, fmt.Errorf("form %q: %w", formID, ErrUnknownForm)
	}
	fctx := b.forms.Create(formID)

	out := &Build{BuildID: fctx.BuildID, FormID: formID}
	for _, e := range def.Elements {
		out.Elements = append(out.Elements, e.Clone())
	}

	for _, field := range def.Fields {
		w, err := b.widget(ctx, field, in, fctx)
		if err != nil {
			b.forms.Remove(fctx.BuildID)
			return nil, fmt.Errorf("building %s: %w", field.Name, err)
		}
		if ids := defaults[field.Name]; len(ids) > 0 {
			labels, err := b.matcher.LabelsFor(ctx, field.Selection, ids)
			if err != nil {
				b.forms.Remove(fctx.BuildID)
				return nil, fmt.Errorf("rendering default of %s: %w", field.Name, err)
			}
			w.DefaultValue = matcher.ImplodeTags(labels)
		}
		if isParentScoped(field) {
			attachTriggers(out.Elements, field.Selection.ParentFieldNames)
		}
		out.Widgets = append(out.Widgets, w)
	}
	return out, nil
}

// widget issues the field's token, resolves its parent path and records the
// field on the form context.
func (b *Builder) widget(ctx context.Context, field config.FieldDef, in form.Input, fctx *form.Context) (Widget, error) {
	s := field.Selection
	token, err := b.verifier.Issue(ctx, s)
	if err != nil {
		return Widget{}, err
	}
	parents, err := b.resolver.Resolve(s, in, fctx)
	if err != nil {
		return Widget{}, err
	}

	w := Widget{
		Field:           field.Name,
		Type:            ElementType,
		TargetType:      s.TargetType,
		Handler:         s.HandlerID,
		Token:           token,
		ParentPath:      parents,
		AutocompleteURL: AutocompleteURL(s.TargetType, s.HandlerID, token, parents),
		Tags:            field.Tags,
	}
	fctx.CaptureParents(field.Name, parents)
	if isParentScoped(field) {
		w.Class = fctx.RegisterReferenceField(field.Name, nil)
	}
	return w, nil
}

// AutocompleteURL is the lookup endpoint for one widget. The parent segment
// is omitted when the field declares no parent fields.
func AutocompleteURL(targetType, handlerID, token string, parents []string) string {
	segments := []string{RoutePrefix, url.PathEscape(targetType), url.PathEscape(handlerID), url.PathEscape(token)}
	if len(parents) > 0 {
		segments = append(segments, url.PathEscape(parentpath.Join(parents)))
	}
	return path.Join(segments...)
}

func isParentScoped(field config.FieldDef) bool {
	return field.Selection.HandlerID == lookup.HandlerParentFieldReference &&
		len(parentpath.FieldNames(field.Selection.ParentFieldNames)) > 0
}

// attachTriggers puts a change trigger on the attachable leaf of every parent
// field element found in the form.
func attachTriggers(elements []*form.Element, parentFields []string) {
	for _, name := range parentpath.FieldNames(parentFields) {
		for _, root := range elements {
			if n, ok := form.Find(root, name).(*form.Element); ok && n != nil {
				form.AttachChangeTrigger(n)
				break
			}
		}
	}
}

// RefreshedField is one widget to replace after a parent change.
type RefreshedField struct {
	Selector string `json:"selector"`
	Widget   Widget `json:"widget"`
}

// Refresh re-renders every parent-scoped reference field of a build against
// the current input. The returned selectors are the css classes the fields
// were registered with.
func (b *Builder) Refresh(ctx context.Context, buildID string, in form.Input) ([]RefreshedField, error) {
	fctx, err := b.forms.Get(buildID)
	if err != nil {
		return nil, err
	}
	def, ok := b.defs.Forms[fctx.FormID]
	if !ok {
		return nil, fmt.Errorf("form %q: %w", fctx.FormID, ErrUnknownForm)
	}

	classes := fctx.ReferenceFields()
	var out []RefreshedField
	for _, field := range def.Fields {
		class, ok := classes[field.Name]
		if !ok || class == "" {
			continue
		}
		w, err := b.widget(ctx, field, in, fctx)
		if err != nil {
			return nil, fmt.Errorf("refreshing %s: %w", field.Name, err)
		}
		out = append(out, RefreshedField{Selector: "." + class, Widget: w})
	}
	return out, nil
}

var _ parentpath.FieldValueSource = form.Input{}
