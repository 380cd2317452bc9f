package parentpath

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsWith(fields ...string) types.SelectionSettings {
	return types.SelectionSettings{
		TargetType:       "term",
		HandlerID:        "parent_field_reference",
		ParentFieldNames: fields,
	}
}

func TestResolve_FallbackOrder(t *testing.T) {
	in := form.NewInput(
		url.Values{"country": {"US"}, "state": {""}},
		map[string][]string{"state": {"CA", "NV"}, "country": {"MX"}},
	)

	path, err := NewResolver(nil).Resolve(settingsWith("country", "state", "county"), in, nil)
	require.NoError(t, err)
	// Live input beats submitted, submitted sequences use the first element,
	// and a field with neither resolves to the sentinel.
	assert.Equal(t, []string{"US", "CA", "all"}, path)
}

func TestResolve_LengthAndSentinels(t *testing.T) {
	cases := []struct {
		name   string
		fields []string
		live   url.Values
		want   []string
	}{
		{"none declared", nil, nil, []string{}},
		{"no values", []string{"a", "b"}, nil, []string{"all", "all"}},
		{"dedup keeps first", []string{"a", "b", "a", " b "}, url.Values{"b": {"x"}}, []string{"all", "x"}},
		{"blank names dropped", []string{"", " ", "a"}, url.Values{"a": {"1"}}, []string{"1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path, err := NewResolver(nil).Resolve(settingsWith(tc.fields...), form.NewInput(tc.live, nil), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, path)
			assert.Len(t, path, len(FieldNames(tc.fields)))
		})
	}
}

func TestResolve_NilValues(t *testing.T) {
	path, err := NewResolver(nil).Resolve(settingsWith("a"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"all"}, path)
}

func TestResolve_AlterersRunInNameOrder(t *testing.T) {
	hooks := NewHooks()
	var seen []string
	require.NoError(t, hooks.Register("b_upper", AlterFunc(func(entries []Entry, ac AlterContext) error {
		seen = append(seen, "b_upper")
		for i := range entries {
			if entries[i].Value == "us" {
				entries[i].Value = "US"
			}
		}
		return nil
	})))
	require.NoError(t, hooks.Register("a_default", AlterFunc(func(entries []Entry, ac AlterContext) error {
		seen = append(seen, "a_default")
		assert.NotNil(t, ac.Submission)
		assert.Equal(t, "term", ac.Settings.TargetType)
		if entries[0].Value == types.AllParents {
			entries[0].Value = "us"
		}
		return nil
	})))

	path, err := NewResolver(hooks).Resolve(settingsWith("country"), form.NewInput(nil, nil), form.NewContext("place"))
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, path)
	assert.Equal(t, []string{"a_default", "b_upper"}, seen)
}

func TestResolve_AltererMayNotReorder(t *testing.T) {
	hooks := NewHooks()
	require.NoError(t, hooks.Register("swap", AlterFunc(func(entries []Entry, _ AlterContext) error {
		entries[0], entries[1] = entries[1], entries[0]
		return nil
	})))

	_, err := NewResolver(hooks).Resolve(settingsWith("a", "b"), nil, nil)
	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestResolve_AltererError(t *testing.T) {
	hooks := NewHooks()
	boom := errors.New("boom")
	require.NoError(t, hooks.Register("fail", AlterFunc(func([]Entry, AlterContext) error { return boom })))

	_, err := NewResolver(hooks).Resolve(settingsWith("a"), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestHooks_DuplicateRegistration(t *testing.T) {
	hooks := NewHooks()
	noop := AlterFunc(func([]Entry, AlterContext) error { return nil })
	require.NoError(t, hooks.Register("x", noop))
	assert.Error(t, hooks.Register("x", noop))
}

func TestExprAlterer(t *testing.T) {
	a, err := NewExprAlterer([]ExprRule{
		{TargetType: "term", Field: "country", Expression: `value == "all" ? "US" : upper(value)`},
		{TargetType: "term", Field: "state", Expression: `"country" in input ? value : ""`},
	})
	require.NoError(t, err)
	hooks := NewHooks()
	require.NoError(t, hooks.Register("expr", a))
	r := NewResolver(hooks)

	path, err := r.Resolve(settingsWith("country", "state"), form.NewInput(nil, map[string][]string{"state": {"CA"}}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "all"}, path)

	path, err = r.Resolve(settingsWith("country", "state"), form.NewInput(url.Values{"country": {"mx"}, "state": {"JAL"}}, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"MX", "JAL"}, path)

	other := settingsWith("country")
	other.TargetType = "node"
	path, err = r.Resolve(other, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"all"}, path)
}

func TestExprAlterer_CompileErrors(t *testing.T) {
	_, err := NewExprAlterer([]ExprRule{{TargetType: "term", Field: "a", Expression: ""}})
	assert.Error(t, err)

	_, err = NewExprAlterer([]ExprRule{{TargetType: "term", Field: "a", Expression: `1 + 1`}})
	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestJoinSplit(t *testing.T) {
	assert.Equal(t, "US-all", Join([]string{"US", "all"}))
	assert.Equal(t, []string{"US", "all"}, Split("US-all"))
	assert.Nil(t, Split(""))
}

func TestJoinSplit_EscapesSeparatorInValues(t *testing.T) {
	tests := [][]string{
		{"north-america"},
		{"north-america", "all"},
		{"a~1", "-", "~"},
		{"x--y", ""},
	}
	for _, path := range tests {
		joined := Join(path)
		assert.Len(t, strings.Split(joined, Separator), len(path), joined)
		assert.Equal(t, path, Split(joined))
	}
	assert.Equal(t, "north~1america-all", Join([]string{"north-america", "all"}))
}
