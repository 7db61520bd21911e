// Package selection normalizes a GraphQL request's selection set into the
// tree of requested object fields the load planner consumes. Named and
// inline fragments are substituted in place during derivation, so the
// resulting tree has a single node kind.
package selection

import (
	"github.com/graphql-go/graphql/language/ast"

	"modelql/internal/qerr"
)

// Node is one requested object field. Children exist only for fields that
// carry a nested selection; plain scalar fields are dropped, they never
// influence eager loading.
type Node struct {
	Field    string
	children map[string]*Node
	order    []string
}

func newNode(field string) *Node {
	return &Node{Field: field, children: make(map[string]*Node)}
}

// Children returns child nodes in first-seen order.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.children[name])
	}
	return out
}

// Child looks up a child node by field name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

func (n *Node) ensureChild(name string) *Node {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := newNode(name)
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

// Deriver turns raw field ASTs into selection trees. The envelope field for
// page-shaped results is configurable per top-level field; for those fields
// the deriver descends into the named item list instead of treating the
// envelope type's fields as the entity's own.
type Deriver struct {
	itemsField map[string]string
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithListItemsField registers the envelope field (e.g. "items") that holds
// the entity list for the given top-level field.
func WithListItemsField(topField, itemsField string) Option {
	return func(d *Deriver) {
		d.itemsField[topField] = itemsField
	}
}

// NewDeriver creates a Deriver.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{itemsField: make(map[string]string)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive builds the selection tree for a request. Exactly one top-level
// field is supported; the field ASTs and fragment table come straight from
// the GraphQL resolve info. Top-level fragments are already dereferenced by
// the executor and need no handling here.
func (d *Deriver) Derive(fields []*ast.Field, fragments map[string]ast.Definition) (*Node, error) {
	if len(fields) != 1 {
		return nil, qerr.Schemaf("exactly one top-level field is supported, got %d", len(fields))
	}
	field := fields[0]
	selections := field.GetSelectionSet()

	if itemsName, ok := d.itemsField[field.Name.Value]; ok {
		inner, err := findItemsField(selections, itemsName, fragments, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		if inner != nil {
			selections = inner.GetSelectionSet()
		}
	}

	root := newNode(field.Name.Value)
	if selections == nil {
		return root, nil
	}
	if err := collect(root, selections, fragments, make(map[string]bool)); err != nil {
		return nil, err
	}
	return root, nil
}

// findItemsField scans a selection set for the envelope's item-list field,
// recursing through fragment references. Returns nil when the field is not
// selected at all (e.g. the request asked only for the total).
func findItemsField(selectionSet *ast.SelectionSet, name string, fragments map[string]ast.Definition, active map[string]bool) (*ast.Field, error) {
	if selectionSet == nil {
		return nil, nil
	}
	for _, sel := range selectionSet.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			if s.Name != nil && s.Name.Value == name {
				return s, nil
			}
		case *ast.InlineFragment:
			found, err := findItemsField(s.GetSelectionSet(), name, fragments, active)
			if err != nil || found != nil {
				return found, err
			}
		case *ast.FragmentSpread:
			body, err := fragmentBody(s, fragments, active)
			if err != nil {
				return nil, err
			}
			active[s.Name.Value] = true
			found, err := findItemsField(body, name, fragments, active)
			delete(active, s.Name.Value)
			if err != nil || found != nil {
				return found, err
			}
		}
	}
	return nil, nil
}

// collect walks a selection set depth-first, substituting fragment bodies in
// place. Only fields with nested selections become tree nodes.
func collect(node *Node, selectionSet *ast.SelectionSet, fragments map[string]ast.Definition, active map[string]bool) error {
	for _, sel := range selectionSet.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			if s.Name == nil || s.GetSelectionSet() == nil {
				continue
			}
			child := node.ensureChild(s.Name.Value)
			if err := collect(child, s.GetSelectionSet(), fragments, active); err != nil {
				return err
			}
		case *ast.InlineFragment:
			if s.GetSelectionSet() == nil {
				continue
			}
			if err := collect(node, s.GetSelectionSet(), fragments, active); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			body, err := fragmentBody(s, fragments, active)
			if err != nil {
				return err
			}
			active[s.Name.Value] = true
			err = collect(node, body, fragments, active)
			delete(active, s.Name.Value)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// fragmentBody resolves a fragment spread to its selection set. A reference
// back into an in-progress fragment is a cycle; the executor is expected to
// reject those before resolution, so hitting one here is a schema bug.
func fragmentBody(spread *ast.FragmentSpread, fragments map[string]ast.Definition, active map[string]bool) (*ast.SelectionSet, error) {
	name := spread.Name.Value
	if active[name] {
		return nil, qerr.Schemaf("cyclic fragment reference %q", name)
	}
	def, ok := fragments[name]
	if !ok {
		return nil, qerr.Schemaf("unknown fragment %q", name)
	}
	fragment, ok := def.(*ast.FragmentDefinition)
	if !ok || fragment.GetSelectionSet() == nil {
		return nil, qerr.Schemaf("fragment %q has no selection set", name)
	}
	return fragment.GetSelectionSet(), nil
}
