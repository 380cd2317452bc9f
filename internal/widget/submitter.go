package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/constraint"
	"github.com/matthewbaird/parentref/internal/event"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/reference"
	"github.com/matthewbaird/parentref/internal/types"
)

// ErrUnknownForm is returned for form or field names missing from the
// definitions.
var ErrUnknownForm = errors.New("unknown form")

// RecordStore creates autocreated records and reads back their parents.
type RecordStore interface {
	constraint.ParentReader
	CreateRecords(ctx context.Context, targetType string, drafts []types.Draft, audit types.Audit) ([]string, error)
}

// Submission is a posted form.
type Submission struct {
	BuildID   string              `json:"build_id"`
	Values    url.Values          `json:"values"`
	Submitted map[string][]string `json:"submitted,omitempty"`
	Creator   string              `json:"creator,omitempty"`
	Source    string              `json:"source,omitempty"`
}

// Result is the outcome of a submission. When Errors is non-empty nothing
// was written.
type Result struct {
	BuildID string                            `json:"build_id"`
	FormID  string                            `json:"form_id"`
	Values  map[string][]types.ReferenceValue `json:"values"`
	Created map[string][]string               `json:"created,omitempty"`
	Errors  types.ValidationErrors            `json:"errors,omitempty"`
}

// Accepted reports whether the submission validated.
func (r *Result) Accepted() bool {
	return len(r.Errors) == 0
}

// Submitter runs the submit pipeline: per field it re-resolves the parent
// path, validates the raw text and applies the field's constraints. Only when
// every field is clean are drafts written.
type Submitter struct {
	defs        *config.Config
	forms       *form.Manager
	resolver    *parentpath.Resolver
	validator   *reference.Validator
	constraints *constraint.Registry
	records     RecordStore
	bus         event.Publisher
}

// NewSubmitter creates a submitter.
func NewSubmitter(defs *config.Config, forms *form.Manager, resolver *parentpath.Resolver, validator *reference.Validator, constraints *constraint.Registry, records RecordStore) *Submitter {
	return &Submitter{
		defs:        defs,
		forms:       forms,
		resolver:    resolver,
		validator:   validator,
		constraints: constraints,
		records:     records,
	}
}

// SetPublisher attaches an event bus. Events are published after writes.
func (s *Submitter) SetPublisher(p event.Publisher) {
	s.bus = p
}

func (s *Submitter) publish(ctx context.Context, evt event.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(ctx, evt)
	}
}

// Submit validates sub against the build it belongs to and persists the
// drafts of an accepted submission.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Result, error) {
	fctx, err := s.forms.Get(sub.BuildID)
	if err != nil {
		return nil, err
	}
	def, ok := s.defs.Forms[fctx.FormID]
	if !ok {
		return nil, fmt.Errorf("form %q: %w", fctx.FormID, ErrUnknownForm)
	}

	in := form.NewInput(sub.Values, sub.Submitted)
	res := &Result{
		BuildID: fctx.BuildID,
		FormID:  fctx.FormID,
		Values:  make(map[string][]types.ReferenceValue),
	}

	for _, field := range def.Fields {
		path, err := s.resolver.Resolve(field.Selection, in, fctx)
		if err != nil {
			return nil, fmt.Errorf("resolving parents of %s: %w", field.Name, err)
		}
		outcome, err := s.validator.Validate(ctx, field.Selection, in.Live.Get(field.Name), path, reference.Options{
			Field:             field.Name,
			Tags:              field.Tags,
			ValidateReference: field.ValidateReference,
			AutocreateBundle:  field.AutocreateBundle,
			Creator:           sub.Creator,
		})
		if err != nil {
			return nil, fmt.Errorf("validating %s: %w", field.Name, err)
		}
		if len(outcome.Values) == 0 {
			res.Errors = append(res.Errors, outcome.Errors...)
			continue
		}
		res.Values[field.Name] = outcome.Values

		set, err := s.fieldConstraints(field, fctx, path)
		if err != nil {
			return nil, err
		}
		errs, err := set.Validate(ctx, field.Name, outcome.Values)
		if err != nil {
			return nil, err
		}
		res.Errors = append(res.Errors, mergeErrors(outcome.Errors, errs)...)
	}

	if !res.Accepted() {
		log.Printf("widget: build %s rejected with %d errors", fctx.BuildID, len(res.Errors))
		s.publish(ctx, event.NewSubmissionRejected(event.SubmissionPayload{
			BuildID:  res.BuildID,
			FormID:   res.FormID,
			Source:   sub.Source,
			Errors:   len(res.Errors),
			Messages: res.Errors.Messages(),
		}))
		return res, nil
	}
	if err := s.persist(ctx, def, sub, res); err != nil {
		return nil, err
	}
	s.forms.Remove(fctx.BuildID)
	s.publish(ctx, event.NewSubmissionAccepted(event.SubmissionPayload{BuildID: res.BuildID, FormID: res.FormID, Source: sub.Source}))
	return res, nil
}

// mergeErrors reports each token once. A reference outside the scope fails
// both the scoped existence check and the parent constraint; the constraint
// says why, so its error replaces the validator's.
func mergeErrors(validation, constraints types.ValidationErrors) types.ValidationErrors {
	flagged := make(map[string]bool, len(constraints))
	for _, e := range constraints {
		if e.Token != "" {
			flagged[e.Field+"\x00"+e.Token] = true
		}
	}
	out := make(types.ValidationErrors, 0, len(validation)+len(constraints))
	for _, e := range validation {
		if e.Token == "" || !flagged[e.Field+"\x00"+e.Token] {
			out = append(out, e)
		}
	}
	return append(out, constraints...)
}

// fieldConstraints builds the field's constraint list. ValidParentReference
// checks against the parents captured when the widget was built, falling
// back to the path resolved now.
func (s *Submitter) fieldConstraints(field config.FieldDef, fctx *form.Context, path []string) (constraint.Set, error) {
	parents, ok := fctx.Parents(field.Name)
	if !ok {
		parents = path
	}
	def, err := json.Marshal(constraint.ParentReferenceDef{Parents: parents})
	if err != nil {
		return nil, err
	}

	var set constraint.Set
	for _, id := range field.ConstraintIDs() {
		c, err := s.constraints.Build(id, constraint.Options{
			TargetType: field.Selection.TargetType,
			Reader:     s.records,
			Definition: def,
		})
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		set = append(set, c)
	}
	return set, nil
}

// persist creates the drafts of every field and swaps them for the new ids.
func (s *Submitter) persist(ctx context.Context, def config.FormDef, sub Submission, res *Result) error {
	audit := types.Audit{Source: sub.Source, CorrelationID: res.BuildID}
	for _, field := range def.Fields {
		values := res.Values[field.Name]
		var drafts []types.Draft
		for _, v := range values {
			if v.IsNew() {
				drafts = append(drafts, *v.NewRecord)
			}
		}
		if len(drafts) == 0 {
			continue
		}
		ids, err := s.records.CreateRecords(ctx, field.Selection.TargetType, drafts, audit)
		if err != nil {
			return fmt.Errorf("creating records for %s: %w", field.Name, err)
		}
		if len(ids) != len(drafts) {
			return fmt.Errorf("creating records for %s: got %d ids for %d drafts", field.Name, len(ids), len(drafts))
		}
		next := 0
		for i, v := range values {
			if v.IsNew() {
				values[i] = types.ReferenceValue{TargetID: ids[next]}
				next++
			}
		}
		if res.Created == nil {
			res.Created = make(map[string][]string)
		}
		res.Created[field.Name] = ids
		log.Printf("widget: created %d %s records for %s", len(ids), field.Selection.TargetType, field.Name)
		s.publish(ctx, event.NewRecordsCreated(event.RecordsCreatedPayload{
			BuildID:    res.BuildID,
			FormID:     res.FormID,
			Field:      field.Name,
			TargetType: field.Selection.TargetType,
			IDs:        ids,
			Parents:    drafts[0].ParentPath,
		}))
	}
	return nil
}
