package form

// Node is a named element in a form tree. Implementations decide how
// children are stored; the walk only needs ordered access.
type Node interface {
	Key() string
	Children() []Node
}

// Walk visits nodes depth-first in pre-order using an explicit stack.
// Returning false from visit stops the walk.
func Walk(root Node, visit func(n Node, depth int) bool) {
	if root == nil {
		return
	}
	type frame struct {
		node  Node
		depth int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(f.node, f.depth) {
			return
		}
		kids := f.node.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: kids[i], depth: f.depth + 1})
		}
	}
}

// FindAttachable returns the element a change trigger belongs on: the first
// leaf reached by always descending into the first child. Composite widgets
// (an address with a country sub-element) are handled this way.
func FindAttachable(root Node) Node {
	var leaf Node
	Walk(root, func(n Node, _ int) bool {
		if len(n.Children()) == 0 {
			leaf = n
			return false
		}
		return true
	})
	return leaf
}

// Element is the concrete tree used by form definitions.
type Element struct {
	Name    string     `json:"key"`
	Classes []string   `json:"classes,omitempty"`
	Trigger string     `json:"trigger,omitempty"` // client event that refreshes dependants
	Items   []*Element `json:"children,omitempty"`
}

func (e *Element) Key() string { return e.Name }

func (e *Element) Children() []Node {
	out := make([]Node, len(e.Items))
	for i, c := range e.Items {
		out[i] = c
	}
	return out
}

// Child returns the direct child named key, or nil.
func (e *Element) Child(key string) *Element {
	for _, c := range e.Items {
		if c.Name == key {
			return c
		}
	}
	return nil
}

// AttachChangeTrigger marks the attachable leaf of e with a "change" trigger
// unless it already has one, returning the leaf.
func AttachChangeTrigger(e *Element) *Element {
	leaf, ok := FindAttachable(e).(*Element)
	if !ok || leaf == nil {
		return nil
	}
	if leaf.Trigger == "" {
		leaf.Trigger = "change"
	}
	return leaf
}

// Find returns the first node under root, root included, whose key is key.
func Find(root Node, key string) Node {
	var found Node
	Walk(root, func(n Node, _ int) bool {
		if n.Key() == key {
			found = n
			return false
		}
		return true
	})
	return found
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := &Element{
		Name:    e.Name,
		Classes: append([]string(nil), e.Classes...),
		Trigger: e.Trigger,
	}
	for _, item := range e.Items {
		c.Items = append(c.Items, item.Clone())
	}
	return c
}
