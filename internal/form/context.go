// Package form models the parts of a rendered form the autocomplete core
// needs: the per-submission context shared between build, refresh and submit,
// the submitted field values, and the element tree a change trigger is
// attached to.
package form

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrContextExpired is returned when a submission refers to a build that is
// unknown or has expired.
var ErrContextExpired = errors.New("form context expired")

// Context is the state carried across the requests of one form build.
//
// Schema:
//   - ParentFieldReferenceFields: reference field name -> css class (dot
//     joined when the field carries several) used to re-render the field
//     after one of its parent fields changes.
//   - CapturedParents: reference field name -> parent path in effect when
//     the widget was configured; the integrity constraint checks against it.
type Context struct {
	BuildID                    string              `json:"build_id"`
	FormID                     string              `json:"form_id"`
	ParentFieldReferenceFields map[string]string   `json:"parent_field_reference_fields"`
	CapturedParents            map[string][]string `json:"captured_parents"`
	CreatedAt                  time.Time           `json:"created_at"`
	LastActiveAt               time.Time           `json:"last_active_at"`

	mu sync.Mutex
}

// NewContext creates a context for a fresh build of formID.
func NewContext(formID string) *Context {
	now := time.Now()
	return &Context{
		BuildID:                    uuid.New().String(),
		FormID:                     formID,
		ParentFieldReferenceFields: make(map[string]string),
		CapturedParents:            make(map[string][]string),
		CreatedAt:                  now,
		LastActiveAt:               now,
	}
}

// ReferenceFieldClass returns the default css class of a parent-scoped
// reference field, e.g. "city_ref" -> "city-ref-parent-field-reference".
func ReferenceFieldClass(field string) string {
	return strings.ReplaceAll(field, "_", "-") + "-parent-field-reference"
}

// RegisterReferenceField records field as needing a refresh when a parent
// changes. When classes is empty the default class is used. The joined class
// selector is returned.
func (c *Context) RegisterReferenceField(field string, classes []string) string {
	if len(classes) == 0 {
		classes = []string{ReferenceFieldClass(field)}
	}
	joined := strings.Join(classes, ".")
	c.mu.Lock()
	c.ParentFieldReferenceFields[field] = joined
	c.mu.Unlock()
	return joined
}

// CaptureParents stores the parent path a field's widget was configured with.
func (c *Context) CaptureParents(field string, parents []string) {
	c.mu.Lock()
	c.CapturedParents[field] = append([]string(nil), parents...)
	c.mu.Unlock()
}

// Parents returns the captured parent path for field.
func (c *Context) Parents(field string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.CapturedParents[field]
	return append([]string(nil), p...), ok
}

// ReferenceFields returns a copy of the field -> class mapping.
func (c *Context) ReferenceFields() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.ParentFieldReferenceFields))
	for k, v := range c.ParentFieldReferenceFields {
		out[k] = v
	}
	return out
}

// Touch updates the last activity timestamp.
func (c *Context) Touch() {
	c.mu.Lock()
	c.LastActiveAt = time.Now()
	c.mu.Unlock()
}

func (c *Context) expired(maxAge, idle time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.CreatedAt) > maxAge || time.Since(c.LastActiveAt) > idle
}

// Manager handles context creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	contexts    map[string]*Context
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a context manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		contexts:    make(map[string]*Context),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create creates a new context for formID and returns it.
func (m *Manager) Create(formID string) *Context {
	c := NewContext(formID)
	m.mu.Lock()
	m.contexts[c.BuildID] = c
	m.mu.Unlock()
	return c
}

// Get retrieves a context by build ID, returning ErrContextExpired if it is
// unknown or past its timeouts.
func (m *Manager) Get(buildID string) (*Context, error) {
	m.mu.RLock()
	c, ok := m.contexts[buildID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrContextExpired
	}
	if c.expired(m.maxAge, m.idleTimeout) {
		m.Remove(buildID)
		return nil, ErrContextExpired
	}
	c.Touch()
	return c, nil
}

// Remove deletes a context.
func (m *Manager) Remove(buildID string) {
	m.mu.Lock()
	delete(m.contexts, buildID)
	m.mu.Unlock()
}

// Cleanup removes all expired and idle contexts. Called periodically.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.contexts {
		if c.expired(m.maxAge, m.idleTimeout) {
			delete(m.contexts, id)
		}
	}
}

// Len returns the number of live contexts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}
