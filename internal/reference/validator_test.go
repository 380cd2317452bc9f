package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func citySettings() types.SelectionSettings {
	return types.SelectionSettings{
		TargetType:       "term",
		HandlerID:        lookup.HandlerParentFieldReference,
		ParentFieldNames: []string{"country"},
		AutoCreate:       true,
		AutoCreateMax:    1,
		TargetBundles:    []string{"city"},
	}
}

func newTestValidator() *Validator {
	mem := lookup.NewMemoryRecords(
		types.Record{ID: "1", TargetType: "term", Bundle: "city", Label: "Springfield", Parent: "US"},
		types.Record{ID: "2", TargetType: "term", Bundle: "city", Label: "Springdale", Parent: "CA"},
		types.Record{ID: "3", TargetType: "term", Bundle: "city", Label: "Boston", Parent: "US"},
	)
	reg := lookup.NewRegistry()
	reg.Register(lookup.HandlerParentFieldReference, mem.Factory())
	return NewValidator(reg)
}

var us = []string{"US"}

func TestValidate_ExistingToken(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "Springfield (1)", us,
		Options{ValidateReference: true})
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, []types.ReferenceValue{{TargetID: "1"}}, out.Values)
}

func TestValidate_UnmatchedWithoutAutocreate(t *testing.T) {
	s := citySettings()
	s.AutoCreate = false

	out, err := newTestValidator().Validate(context.Background(), s, "Newtown", us,
		Options{Field: "city_ref", ValidateReference: true})
	require.NoError(t, err)
	assert.False(t, out.Accepted())
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "Newtown")
	assert.Equal(t, "city_ref", out.Errors[0].Field)
	assert.Empty(t, out.Values)
}

func TestValidate_MatchByLabelInScope(t *testing.T) {
	s := citySettings()
	s.AutoCreate = false

	out, err := newTestValidator().Validate(context.Background(), s, "Boston", us, Options{ValidateReference: true})
	require.NoError(t, err)
	assert.Equal(t, []types.ReferenceValue{{TargetID: "3"}}, out.Values)

	// Springdale exists, but under CA.
	out, err = newTestValidator().Validate(context.Background(), s, "Springdale", us, Options{ValidateReference: true})
	require.NoError(t, err)
	assert.False(t, out.Accepted())
}

func TestValidate_IgnoreCaseReusesExisting(t *testing.T) {
	s := citySettings()
	s.AutoCreateIgnoreCase = true

	out, err := newTestValidator().Validate(context.Background(), s, "BOSTON", us, Options{ValidateReference: true})
	require.NoError(t, err)
	assert.Equal(t, []types.ReferenceValue{{TargetID: "3"}}, out.Values)

	s.AutoCreateIgnoreCase = false
	out, err = newTestValidator().Validate(context.Background(), s, "BOSTON", us, Options{ValidateReference: true})
	require.NoError(t, err)
	require.Len(t, out.Values, 1)
	require.True(t, out.Values[0].IsNew())
	assert.Equal(t, "BOSTON", out.Values[0].NewRecord.Label)
}

func TestValidate_AutocreateDraft(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "Newtown", us,
		Options{ValidateReference: true, Creator: "42"})
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	require.Len(t, out.Values, 1)
	assert.Equal(t, &types.Draft{Bundle: "city", Label: "Newtown", Creator: "42", ParentPath: []string{"US"}}, out.Values[0].NewRecord)
}

func TestValidate_AutocreateBound(t *testing.T) {
	for _, tc := range []struct{ n, k int }{{5, 2}, {3, 1}, {4, 3}} {
		t.Run(fmt.Sprintf("N=%d,k=%d", tc.n, tc.k), func(t *testing.T) {
			s := citySettings()
			s.AutoCreateMax = tc.k

			var tokens []string
			for i := 0; i < tc.n; i++ {
				tokens = append(tokens, fmt.Sprintf("New %d", i))
			}

			out, err := newTestValidator().Validate(context.Background(), s, strings.Join(tokens, ", "), us,
				Options{Tags: true, ValidateReference: true})
			require.NoError(t, err)
			assert.True(t, out.Accepted(), "overflow must not be an error")
			require.Len(t, out.Values, tc.k)
			for i, v := range out.Values {
				require.True(t, v.IsNew())
				assert.Equal(t, tokens[i], v.NewRecord.Label)
			}
		})
	}
}

func TestValidate_AutocreateUnlimited(t *testing.T) {
	s := citySettings()
	s.AutoCreateMax = 0

	out, err := newTestValidator().Validate(context.Background(), s, "A, B, C, Springfield (1)", us,
		Options{Tags: true, ValidateReference: true})
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Len(t, out.Values, 4)
	assert.Equal(t, "1", out.Values[3].TargetID)
}

func TestValidate_CounterStopsBeforeLaterIDs(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "New, Springfield (1)", us,
		Options{Tags: true, ValidateReference: true})
	require.NoError(t, err)
	require.Len(t, out.Values, 1)
	assert.True(t, out.Values[0].IsNew())
}

func TestValidate_UnknownAndOutOfScopeIDs(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "Springfield (1), Springdale (2), Ghost (99)", us,
		Options{Tags: true, ValidateReference: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"The referenced entity (term: 2) does not exist.",
		"The referenced entity (term: 99) does not exist.",
	}, out.Errors.Messages())
	assert.Equal(t, []string{"1", "2", "99"}, out.TargetIDs())
}

func TestValidate_SkipsChecksWhenNotRequired(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "Ghost (99)", us, Options{})
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, []types.ReferenceValue{{TargetID: "99"}}, out.Values)
}

func TestValidate_BundleNotAllowed(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "Newtown", us,
		Options{ValidateReference: true, AutocreateBundle: "tag"})
	require.NoError(t, err)
	assert.Equal(t, []string{"This entity (term: Newtown) cannot be referenced."}, out.Errors.Messages())
}

func TestValidate_SingleValueWholeInput(t *testing.T) {
	// Without tags the whole input is one token, so the comma is part of the label.
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "Boston, Springfield (1)", us,
		Options{ValidateReference: true})
	require.NoError(t, err)
	assert.Equal(t, []types.ReferenceValue{{TargetID: "1"}}, out.Values)
}

func TestValidate_EmptyInput(t *testing.T) {
	out, err := newTestValidator().Validate(context.Background(), citySettings(), "   ", us, Options{ValidateReference: true})
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Empty(t, out.Values)
}

func TestValidate_UnknownHandler(t *testing.T) {
	s := citySettings()
	s.HandlerID = "nope"
	_, err := newTestValidator().Validate(context.Background(), s, "x", us, Options{})
	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestBatches(t *testing.T) {
	drafts := []types.Draft{{Label: "a"}, {Label: "b"}, {Label: "c"}}
	assert.Len(t, Batches(drafts, 0), 1)
	assert.Len(t, Batches(drafts, 2), 2)
	assert.Len(t, Batches(drafts, 5), 1)
	assert.Nil(t, Batches(nil, 2))
}

type rejectAll struct{ lookup.Provider }

func (rejectAll) ValidateNewBatches(context.Context, [][]types.Draft) ([]int, error) {
	return nil, nil
}

func TestValidate_ProviderRejectsDrafts(t *testing.T) {
	mem := lookup.NewMemoryRecords()
	reg := lookup.NewRegistry()
	reg.Register(lookup.HandlerParentFieldReference, func(s types.SelectionSettings) (lookup.Provider, error) {
		p, err := mem.Factory()(s)
		return rejectAll{p}, err
	})
	s := citySettings()
	s.AutoCreateMax = 0

	out, err := NewValidator(reg).Validate(context.Background(), s, "A, B", us, Options{Tags: true, ValidateReference: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"This entity (term: A) cannot be referenced.",
		"This entity (term: B) cannot be referenced.",
	}, out.Errors.Messages())
}
