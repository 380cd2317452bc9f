package constraint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/parentref/internal/types"
)

// ParentReferenceDef is the JSON shape of a ValidParentReference definition.
type ParentReferenceDef struct {
	Parents []string `json:"parents"` // "all" matches any parent
}

// ValidReference checks that every referenced record exists.
type ValidReference struct {
	TargetType string
	reader     ParentReader
}

func newValidReference(opts Options) (Constraint, error) {
	return &ValidReference{TargetType: opts.TargetType, reader: opts.Reader}, nil
}

func (c *ValidReference) ID() string { return IDValidReference }

func (c *ValidReference) Validate(ctx context.Context, values []types.ReferenceValue) (types.ValidationErrors, error) {
	ids := existingIDs(values)
	if len(ids) == 0 {
		return nil, nil
	}
	parents, err := c.reader.Parents(ctx, c.TargetType, ids)
	if err != nil {
		return nil, fmt.Errorf("loading referenced records: %w", err)
	}
	var errs types.ValidationErrors
	for _, id := range ids {
		if _, ok := parents[id]; !ok {
			errs = append(errs, missing(c.TargetType, id))
		}
	}
	return errs, nil
}

// ValidParentReference checks that every referenced record, existing or about
// to be created, sits under one of Parents.
type ValidParentReference struct {
	TargetType string
	Parents    []string
	reader     ParentReader
}

// NewValidParentReference builds the constraint directly, outside a registry.
func NewValidParentReference(targetType string, parents []string, reader ParentReader) *ValidParentReference {
	return &ValidParentReference{TargetType: targetType, Parents: append([]string(nil), parents...), reader: reader}
}

func newValidParentReference(opts Options) (Constraint, error) {
	var def ParentReferenceDef
	if len(opts.Definition) > 0 {
		if err := json.Unmarshal(opts.Definition, &def); err != nil {
			return nil, &types.ConfigError{Component: "constraint " + IDValidParentReference, Message: fmt.Sprintf("invalid definition: %v", err)}
		}
	}
	return NewValidParentReference(opts.TargetType, def.Parents, opts.Reader), nil
}

func (c *ValidParentReference) ID() string { return IDValidParentReference }

func (c *ValidParentReference) Validate(ctx context.Context, values []types.ReferenceValue) (types.ValidationErrors, error) {
	var errs types.ValidationErrors

	ids := existingIDs(values)
	if len(ids) > 0 {
		parents, err := c.reader.Parents(ctx, c.TargetType, ids)
		if err != nil {
			return nil, fmt.Errorf("loading referenced parents: %w", err)
		}
		for _, id := range ids {
			parent, ok := parents[id]
			switch {
			case !ok:
				errs = append(errs, missing(c.TargetType, id))
			case !types.PathContains(c.Parents, parent):
				errs = append(errs, types.ValidationError{
					Token:   id,
					Message: fmt.Sprintf("The referenced entity (%s: %s) does not belong to %s.", c.TargetType, id, types.FormatPath(c.Parents)),
				})
			}
		}
	}

	for _, v := range values {
		if !v.IsNew() {
			continue
		}
		if !types.PathContains(c.Parents, v.NewRecord.Parent()) {
			errs = append(errs, types.ValidationError{
				Token:   v.NewRecord.Label,
				Message: fmt.Sprintf("This entity (%s: %s) cannot be created under %s.", c.TargetType, v.NewRecord.Label, types.FormatPath(c.Parents)),
			})
		}
	}
	return errs, nil
}

func existingIDs(values []types.ReferenceValue) []string {
	var ids []string
	for _, v := range values {
		if !v.IsNew() && v.TargetID != "" {
			ids = append(ids, v.TargetID)
		}
	}
	return ids
}

func missing(targetType, id string) types.ValidationError {
	return types.ValidationError{
		Token:   id,
		Message: fmt.Sprintf("The referenced entity (%s: %s) does not exist.", targetType, id),
	}
}
