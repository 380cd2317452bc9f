// Package reference validates the raw text submitted to a parent-scoped
// reference field and turns it into reference values, autocreating drafts for
// unmatched text when the field allows it.
//
// Autocreate overflow is a silent truncation: once auto_create_max drafts
// have been produced for a field, the remaining tokens are dropped without an
// error. Single-value fields likewise keep only the last resolved value.
// Nothing is written here; drafts become records in the submit pipeline.
package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/types"
)

// Options mirrors the properties of the widget being validated.
type Options struct {
	Field             string
	Tags              bool   // multiple comma separated values
	ValidateReference bool   // check existence and bundles after parsing
	AutocreateBundle  string // bundle for drafts; settings default when empty
	Creator           string // user id recorded on drafts
}

// Outcome is the terminal state of one field.
type Outcome struct {
	Values []types.ReferenceValue `json:"values"`
	Errors types.ValidationErrors `json:"errors,omitempty"`
}

// Accepted reports whether the field validated without errors.
func (o Outcome) Accepted() bool {
	return len(o.Errors) == 0
}

// TargetIDs returns the ids of existing records referenced by the outcome.
func (o Outcome) TargetIDs() []string {
	var ids []string
	for _, v := range o.Values {
		if !v.IsNew() {
			ids = append(ids, v.TargetID)
		}
	}
	return ids
}

// Validator resolves submitted text against the provider for each field.
type Validator struct {
	registry *lookup.Registry
}

// NewValidator creates a validator over registry.
func NewValidator(registry *lookup.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate parses raw for a field configured with s, scoped to path.
// Per-token problems are returned in the Outcome; the error return is for
// configuration and provider failures only.
func (v *Validator) Validate(ctx context.Context, s types.SelectionSettings, raw string, path []string, opts Options) (Outcome, error) {
	var out Outcome

	tokens := tokenize(raw, opts.Tags)
	if len(tokens) == 0 {
		return out, nil
	}

	p, err := v.registry.Provider(s)
	if err != nil {
		return out, err
	}

	autocreate := s.AutoCreate
	bundle := opts.AutocreateBundle
	if bundle == "" {
		bundle = s.DefaultBundle()
	}

	var invalid types.ValidationErrors
	created := 0
	for _, token := range tokens {
		id, ok := matcher.ExtractID(token)
		if !ok {
			id, err = matcher.MatchByLabel(ctx, p, s, token, path, !autocreate)
			var verr types.ValidationError
			if errors.As(err, &verr) {
				invalid = append(invalid, verr)
				continue
			}
			if err != nil {
				return out, err
			}
		}

		if id != "" {
			out.Values = append(out.Values, types.ReferenceValue{TargetID: id})
			continue
		}
		if autocreate {
			out.Values = append(out.Values, types.ReferenceValue{NewRecord: &types.Draft{
				Bundle:     bundle,
				Label:      token,
				Creator:    opts.Creator,
				ParentPath: append([]string(nil), path...),
			}})
			created++
			if s.AutoCreateMax > 0 && created >= s.AutoCreateMax {
				break
			}
			continue
		}
		invalid = append(invalid, types.ValidationError{
			Token:   token,
			Message: fmt.Sprintf("There are no entities matching \"%s\".", token),
		})
	}

	if opts.ValidateReference && len(out.Values) > 0 {
		errs, err := v.checkExisting(ctx, p, s, out.Values, path)
		if err != nil {
			return out, err
		}
		out.Errors = append(out.Errors, errs...)

		errs, err = v.checkNew(ctx, p, s, out.Values, autocreate)
		if err != nil {
			return out, err
		}
		out.Errors = append(out.Errors, errs...)
	}
	out.Errors = append(out.Errors, invalid...)

	if !opts.Tags && len(out.Values) > 1 {
		out.Values = out.Values[len(out.Values)-1:]
	}
	if opts.Field != "" {
		out.Errors = out.Errors.WithField(opts.Field)
	}
	return out, nil
}

func (v *Validator) checkExisting(ctx context.Context, p lookup.Provider, s types.SelectionSettings, values []types.ReferenceValue, path []string) (types.ValidationErrors, error) {
	var ids []string
	for _, val := range values {
		if !val.IsNew() {
			ids = append(ids, val.TargetID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	valid, err := p.ValidateIDs(ctx, ids, path)
	if err != nil {
		return nil, fmt.Errorf("validating referenced ids: %w", err)
	}
	ok := make(map[string]bool, len(valid))
	for _, id := range valid {
		ok[id] = true
	}

	var errs types.ValidationErrors
	for _, id := range ids {
		if !ok[id] {
			errs = append(errs, types.ValidationError{
				Token:   id,
				Message: fmt.Sprintf("The referenced entity (%s: %s) does not exist.", s.TargetType, id),
			})
		}
	}
	return errs, nil
}

func (v *Validator) checkNew(ctx context.Context, p lookup.Provider, s types.SelectionSettings, values []types.ReferenceValue, autocreate bool) (types.ValidationErrors, error) {
	var drafts []types.Draft
	for _, val := range values {
		if val.IsNew() {
			drafts = append(drafts, *val.NewRecord)
		}
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	accepted := make(map[int]bool, len(drafts))
	if autocreate {
		positions, err := p.ValidateNewBatches(ctx, Batches(drafts, s.AutoCreateMax))
		if err != nil {
			return nil, fmt.Errorf("validating new records: %w", err)
		}
		for _, pos := range positions {
			accepted[pos] = true
		}
	}

	var errs types.ValidationErrors
	for i, d := range drafts {
		if !accepted[i] {
			errs = append(errs, types.ValidationError{
				Token:   d.Label,
				Message: fmt.Sprintf("This entity (%s: %s) cannot be referenced.", s.TargetType, d.Label),
			})
		}
	}
	return errs, nil
}

// Batches splits drafts into chunks of size max, or one chunk when max is 0.
func Batches(drafts []types.Draft, max int) [][]types.Draft {
	if len(drafts) == 0 {
		return nil
	}
	if max <= 0 {
		return [][]types.Draft{drafts}
	}
	var out [][]types.Draft
	for i := 0; i < len(drafts); i += max {
		end := i + max
		if end > len(drafts) {
			end = len(drafts)
		}
		out = append(out, drafts[i:end])
	}
	return out
}

func tokenize(raw string, tags bool) []string {
	if tags {
		return matcher.ExplodeTags(raw)
	}
	if t := strings.TrimSpace(raw); t != "" {
		return []string{t}
	}
	return nil
}
