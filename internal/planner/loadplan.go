// Package planner turns schema metadata, selection trees, and query
// arguments into SQL statements with bound args. It never touches the
// database; execution belongs to the resolver layer.
package planner

import (
	"modelql/internal/entityschema"
	"modelql/internal/selection"
)

// LoadStep is one relationship fetch in a load plan.
type LoadStep struct {
	// Path is the dotted relationship path from the root entity, e.g.
	// "user.tasks".
	Path string
	// Parent is the path of the level that owns this relationship, empty
	// when the owner is the root entity.
	Parent string
	// Owner is the entity the relationship is declared on.
	Owner *entityschema.Entity
	Rel   entityschema.Relationship
}

// BuildLoadPlan walks a selection tree and returns the relationship fetches
// needed to answer it, in an order where every step's parent appears before
// the step itself, with at most one step per distinct path. Selected fields
// that do not name a relationship on the current entity are plain columns
// and need no fetch of their own.
func BuildLoadPlan(root *entityschema.Entity, tree *selection.Node) []LoadStep {
	steps := make([]LoadStep, 0)
	seen := make(map[string]struct{})

	var walk func(owner *entityschema.Entity, parent string, node *selection.Node)
	walk = func(owner *entityschema.Entity, parent string, node *selection.Node) {
		for _, child := range node.Children() {
			rel, ok := owner.Relationship(child.Field)
			if !ok {
				continue
			}
			path := child.Field
			if parent != "" {
				path = parent + "." + child.Field
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				steps = append(steps, LoadStep{Path: path, Parent: parent, Owner: owner, Rel: rel})
			}
			walk(rel.Target, path, child)
		}
	}
	walk(root, "", tree)
	return steps
}
