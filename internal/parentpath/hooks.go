package parentpath

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/matthewbaird/parentref/internal/types"
)

// Alterer rewrites resolved path entries in place. It may change values only.
type Alterer interface {
	AlterParentPath(entries []Entry, ac AlterContext) error
}

// AlterFunc adapts a plain function to the Alterer interface.
type AlterFunc func(entries []Entry, ac AlterContext) error

func (f AlterFunc) AlterParentPath(entries []Entry, ac AlterContext) error {
	return f(entries, ac)
}

// Hooks is the set of named alterers subscribed to path resolution. It is
// built at startup; alterers run in name order.
type Hooks struct {
	mu       sync.RWMutex
	alterers map[string]Alterer
}

// NewHooks creates an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{alterers: make(map[string]Alterer)}
}

// Register subscribes a under name. Registering a name twice is a
// configuration error.
func (h *Hooks) Register(name string, a Alterer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.alterers[name]; exists {
		return &types.ConfigError{Component: "parent path hooks", Message: fmt.Sprintf("alterer %q registered twice", name)}
	}
	h.alterers[name] = a
	return nil
}

// Names returns the registered alterer names in run order.
func (h *Hooks) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.alterers))
	for n := range h.alterers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (h *Hooks) alterer(name string) Alterer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.alterers[name]
}

// ExprAlterer rewrites the value of selected parent fields with an
// expr-lang expression. The expression sees:
//
//	value        current value of the position
//	field        parent field name
//	target_type  settings target type
//	handler_id   settings handler id
//	input        map of live input (first value per field)
//
// and must evaluate to a string. Rules are keyed by target type so one
// alterer can serve every reference field of a form.
type ExprAlterer struct {
	rules map[string]map[string]*exprvm.Program // target_type -> field -> program
}

// ExprRule declares one rewrite.
type ExprRule struct {
	TargetType string
	Field      string
	Expression string
}

// NewExprAlterer compiles rules up front so a bad expression fails at startup.
func NewExprAlterer(rules []ExprRule) (*ExprAlterer, error) {
	a := &ExprAlterer{rules: make(map[string]map[string]*exprvm.Program)}
	for _, r := range rules {
		if r.Expression == "" {
			return nil, &types.ConfigError{Component: "parent path expression", Message: fmt.Sprintf("empty expression for %s.%s", r.TargetType, r.Field)}
		}
		program, err := exprlang.Compile(r.Expression, exprlang.Env(exprEnv("", Entry{}, nil)), exprlang.AsKind(reflect.String))
		if err != nil {
			return nil, &types.ConfigError{Component: "parent path expression", Message: fmt.Sprintf("%s.%s: %v", r.TargetType, r.Field, err)}
		}
		if a.rules[r.TargetType] == nil {
			a.rules[r.TargetType] = make(map[string]*exprvm.Program)
		}
		a.rules[r.TargetType][r.Field] = program
	}
	return a, nil
}

func (a *ExprAlterer) AlterParentPath(entries []Entry, ac AlterContext) error {
	rules := a.rules[ac.Settings.TargetType]
	if len(rules) == 0 {
		return nil
	}
	input := liveInput(entries, ac.Values)
	for i, e := range entries {
		program, ok := rules[e.Field]
		if !ok {
			continue
		}
		env := exprEnv(ac.Settings.TargetType, e, input)
		env["handler_id"] = ac.Settings.HandlerID
		out, err := exprlang.Run(program, env)
		if err != nil {
			return fmt.Errorf("evaluating rule for %q: %w", e.Field, err)
		}
		s, ok := out.(string)
		if !ok {
			return fmt.Errorf("rule for %q returned %T, want string", e.Field, out)
		}
		if s == "" {
			s = types.AllParents
		}
		entries[i].Value = s
	}
	return nil
}

func exprEnv(targetType string, e Entry, input map[string]string) map[string]any {
	if input == nil {
		input = map[string]string{}
	}
	return map[string]any{
		"value":       e.Value,
		"field":       e.Field,
		"target_type": targetType,
		"handler_id":  "",
		"input":       input,
	}
}

func liveInput(entries []Entry, values FieldValueSource) map[string]string {
	out := make(map[string]string, len(entries))
	if values == nil {
		return out
	}
	for _, e := range entries {
		if v, ok := values.LiveInput(e.Field); ok {
			out[e.Field] = v
		}
	}
	return out
}
