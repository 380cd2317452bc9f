package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/matthewbaird/parentref/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() types.SelectionSettings {
	return types.SelectionSettings{
		TargetType:           "term",
		HandlerID:            "parent_field_reference",
		ViewName:             "cities",
		DisplayName:          "by_country",
		ParentFieldNames:     []string{"country"},
		AutoCreate:           true,
		AutoCreateMax:        1,
		AutoCreateIgnoreCase: true,
		TargetBundles:        []string{"city"},
	}
}

func newTestVerifier(t *testing.T) (*Verifier, *MemoryStore) {
	t.Helper()
	signer, err := NewSigner([]byte("test-salt"))
	require.NoError(t, err)
	store := NewMemoryStore()
	return NewVerifier(signer, store), store
}

func TestVerify_IssuedTokenRoundTrips(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVerifier(t)

	token, err := v.Issue(ctx, testSettings())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := v.Verify(ctx, "term", "parent_field_reference", token)
	require.NoError(t, err)
	assert.Equal(t, testSettings(), got)
}

func TestVerify_IssueIsDeterministic(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVerifier(t)

	a, err := v.Issue(ctx, testSettings())
	require.NoError(t, err)
	b, err := v.Issue(ctx, testSettings())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVerify_BundleOrderDoesNotChangeToken(t *testing.T) {
	signer, err := NewSigner([]byte("test-salt"))
	require.NoError(t, err)

	s1 := testSettings()
	s1.TargetBundles = []string{"city", "town"}
	s2 := testSettings()
	s2.TargetBundles = []string{"town", "city", "town"}

	t1, err := signer.Token(s1, s1.TargetType, s1.HandlerID)
	require.NoError(t, err)
	t2, err := signer.Token(s2, s2.TargetType, s2.HandlerID)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func TestVerify_UnknownToken(t *testing.T) {
	v, _ := newTestVerifier(t)
	_, err := v.Verify(context.Background(), "term", "parent_field_reference", "nope")
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}

func TestVerify_EmptyToken(t *testing.T) {
	v, _ := newTestVerifier(t)
	_, err := v.Verify(context.Background(), "term", "parent_field_reference", "")
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}

func TestVerify_RemovedSettings(t *testing.T) {
	ctx := context.Background()
	v, store := newTestVerifier(t)
	token, err := v.Issue(ctx, testSettings())
	require.NoError(t, err)

	store.Delete(ctx, token)

	_, err = v.Verify(ctx, "term", "parent_field_reference", token)
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}

func TestVerify_MutatedSettingsAreRejected(t *testing.T) {
	mutations := map[string]func(*types.SelectionSettings){
		"target_type":      func(s *types.SelectionSettings) { s.TargetType = "node" },
		"handler_id":       func(s *types.SelectionSettings) { s.HandlerID = "default" },
		"view_name":        func(s *types.SelectionSettings) { s.ViewName = "all_cities" },
		"display_name":     func(s *types.SelectionSettings) { s.DisplayName = "page_1" },
		"parent_fields":    func(s *types.SelectionSettings) { s.ParentFieldNames = []string{"state"} },
		"auto_create":      func(s *types.SelectionSettings) { s.AutoCreate = false },
		"auto_create_max":  func(s *types.SelectionSettings) { s.AutoCreateMax = 50 },
		"ignore_case":      func(s *types.SelectionSettings) { s.AutoCreateIgnoreCase = false },
		"target_bundles":   func(s *types.SelectionSettings) { s.TargetBundles = []string{"city", "tag"} },
		"parent_field_add": func(s *types.SelectionSettings) { s.ParentFieldNames = append(s.ParentFieldNames, "state") },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v, store := newTestVerifier(t)
			token, err := v.Issue(ctx, testSettings())
			require.NoError(t, err)

			tampered := testSettings()
			mutate(&tampered)
			require.NoError(t, store.Put(ctx, token, tampered))

			_, err = v.Verify(ctx, "term", "parent_field_reference", token)
			assert.ErrorIs(t, err, types.ErrAccessDenied)
		})
	}
}

func TestVerify_WrongRouteArguments(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVerifier(t)
	token, err := v.Issue(ctx, testSettings())
	require.NoError(t, err)

	_, err = v.Verify(ctx, "node", "parent_field_reference", token)
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	_, err = v.Verify(ctx, "term", "views", token)
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}

func TestVerify_DifferentSecretRejects(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a, err := NewSigner([]byte("salt-a"))
	require.NoError(t, err)
	b, err := NewSigner([]byte("salt-b"))
	require.NoError(t, err)

	token, err := NewVerifier(a, store).Issue(ctx, testSettings())
	require.NoError(t, err)

	_, err = NewVerifier(b, store).Verify(ctx, "term", "parent_field_reference", token)
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}

func TestIssue_RejectsInvalidSettings(t *testing.T) {
	v, _ := newTestVerifier(t)
	s := testSettings()
	s.TargetType = ""

	_, err := v.Issue(context.Background(), s)
	var cfgErr *types.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "target_type")
}

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner(nil)
	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestVerify_RejectsOtherTargetOrHandler(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVerifier(t)
	token, err := v.Issue(ctx, testSettings())
	require.NoError(t, err)

	for _, req := range [][2]string{
		{"node", "parent_field_reference"},
		{"term", "default"},
		{"termparent_field_reference", ""},
		{"", "termparent_field_reference"},
	} {
		_, err := v.Verify(ctx, req[0], req[1], token)
		assert.ErrorIs(t, err, types.ErrAccessDenied, "%s/%s", req[0], req[1])
	}
}

func TestSigner_DelimitsTargetAndHandler(t *testing.T) {
	signer, err := NewSigner([]byte("test-salt"))
	require.NoError(t, err)
	s := testSettings()

	a, err := signer.Token(s, "term", "parent_field_reference")
	require.NoError(t, err)
	b, err := signer.Token(s, "termparent", "_field_reference")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
