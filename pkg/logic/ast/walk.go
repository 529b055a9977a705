package ast

import "fmt"

// WalkFunc is called for every node visited by Walk. Path identifies the node
// relative to the root, e.g. "and[1].not". Returning an error stops the walk.
type WalkFunc func(n Node, path string) error

// Walk traverses the tree rooted at n depth-first, parents before children.
// It returns the first error returned by fn, or nil if traversal completes.
func Walk(n Node, fn WalkFunc) error {
	return walk(n, string(kindOf(n)), fn)
}

func walk(n Node, path string, fn WalkFunc) error {
	if err := fn(n, path); err != nil {
		return err
	}
	for i, child := range Children(n) {
		if err := walk(child, ChildPath(path, n, i, child), fn); err != nil {
			return err
		}
	}
	return nil
}

// ChildPath returns the path of the i-th child of parent.
func ChildPath(parentPath string, parent Node, i int, child Node) string {
	if _, ok := parent.(*Not); ok {
		return parentPath + "." + string(kindOf(child))
	}
	return fmt.Sprintf("%s[%d].%s", parentPath, i, kindOf(child))
}

func kindOf(n Node) Kind {
	if n == nil {
		return "nil"
	}
	return n.Kind()
}

// Depth returns the nesting depth of the tree; a single leaf has depth 1.
func Depth(n Node) int {
	if n == nil {
		return 0
	}
	max := 0
	for _, child := range Children(n) {
		if d := Depth(child); d > max {
			max = d
		}
	}
	return max + 1
}
