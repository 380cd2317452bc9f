// Package types provides the shared value types that flow between the
// settings verifier, the parent path resolver, the lookup providers and the
// reference validator.
package types

import (
	"encoding/json"
	"sort"
	"strings"
)

// AllParents is the parent path sentinel meaning "no constraint for this
// position".
const AllParents = "all"

// SelectionSettings is the query configuration bound to a reference field.
// Once a token has been issued for it, it must not be mutated.
type SelectionSettings struct {
	TargetType           string   `json:"target_type"`
	HandlerID            string   `json:"handler_id"`
	ViewName             string   `json:"view_name"`
	DisplayName          string   `json:"display_name"`
	ParentFieldNames     []string `json:"parent_field_names"`
	AutoCreate           bool     `json:"auto_create"`
	AutoCreateMax        int      `json:"auto_create_max"` // 0 = unlimited
	AutoCreateIgnoreCase bool     `json:"auto_create_ignore_case"`
	TargetBundles        []string `json:"target_bundles"` // set semantics
}

// Validate reports a ConfigError for settings that cannot drive a query.
func (s SelectionSettings) Validate() error {
	switch {
	case s.TargetType == "":
		return &ConfigError{Component: "selection settings", Message: "target_type is required"}
	case s.HandlerID == "":
		return &ConfigError{Component: "selection settings", Message: "handler_id is required"}
	case s.AutoCreateMax < 0:
		return &ConfigError{Component: "selection settings", Message: "auto_create_max must be >= 0"}
	}
	return nil
}

// Canonical returns the serialization the settings token is computed over.
// Target bundles are a set, so they are sorted and de-duplicated; parent field
// order is significant and kept as declared.
func (s SelectionSettings) Canonical() ([]byte, error) {
	c := s
	c.ParentFieldNames = append([]string{}, s.ParentFieldNames...)
	c.TargetBundles = sortedSet(s.TargetBundles)
	return json.Marshal(c)
}

// BundleAllowed reports whether new records may be filed in bundle.
// An empty target bundle set allows every bundle.
func (s SelectionSettings) BundleAllowed(bundle string) bool {
	if len(s.TargetBundles) == 0 {
		return true
	}
	for _, b := range s.TargetBundles {
		if b == bundle {
			return true
		}
	}
	return false
}

// DefaultBundle is the bundle autocreated records use when the field does not
// name one: the first target bundle in sorted order, else the target type.
func (s SelectionSettings) DefaultBundle() string {
	if bundles := sortedSet(s.TargetBundles); len(bundles) > 0 {
		return bundles[0]
	}
	return s.TargetType
}

func sortedSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Candidate is a single lookup result. IDs are opaque storage identifiers.
type Candidate struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Draft is the minimal payload needed to create a record under a scope.
type Draft struct {
	Bundle     string   `json:"bundle"`
	Label      string   `json:"label"`
	Creator    string   `json:"creator"`
	ParentPath []string `json:"parent_path"`
}

// Parent is the parent value a record created from the draft is stored with:
// the first constrained position of its path, or "" when fully unconstrained.
func (d Draft) Parent() string {
	for _, p := range d.ParentPath {
		if p != AllParents && p != "" {
			return p
		}
	}
	return ""
}

// ReferenceValue points at an existing record or carries a draft to create.
// Exactly one of TargetID and NewRecord is set.
type ReferenceValue struct {
	TargetID  string `json:"target_id,omitempty"`
	NewRecord *Draft `json:"new_record,omitempty"`
}

// IsNew reports whether the value still has to be created.
func (v ReferenceValue) IsNew() bool {
	return v.NewRecord != nil
}

// Record is a stored, referenceable row.
type Record struct {
	ID         string `json:"id"`
	TargetType string `json:"target_type"`
	Bundle     string `json:"bundle"`
	Label      string `json:"label"`
	Parent     string `json:"parent"`
}

// PathContains reports whether parent is inside the scope described by path.
// An "all" position matches any parent, and an empty path constrains nothing.
func PathContains(path []string, parent string) bool {
	if len(path) == 0 {
		return true
	}
	for _, p := range path {
		if p == AllParents || p == parent {
			return true
		}
	}
	return false
}

// PathConstrained reports whether path restricts anything at all, returning
// the distinct constrained values when it does.
func PathConstrained(path []string) ([]string, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var values []string
	seen := make(map[string]bool, len(path))
	for _, p := range path {
		if p == AllParents {
			return nil, false
		}
		if !seen[p] {
			seen[p] = true
			values = append(values, p)
		}
	}
	return values, true
}

// FormatPath renders a path for log lines and error messages.
func FormatPath(path []string) string {
	return "[" + strings.Join(path, ", ") + "]"
}

// Sources recorded on created records.
const (
	SourceUser   = "user"
	SourceAgent  = "agent"
	SourceImport = "import"
	SourceSystem = "system"
)

// Audit describes where a write came from.
type Audit struct {
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
