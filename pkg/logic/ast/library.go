package ast

import "sort"

// Library is a named collection of conditions loaded from one module
// description. Conditions are referenced by name from the simulator's
// state machine.
type Library struct {
	Name        string          // Library name
	Description string          // Human-readable description
	Conditions  map[string]Node // Conditions by name
	Order       []string        // Condition names in declaration order

	// Source tracking
	SourceFile string   // Path to the module file
	Location   Location // Source location
}

// Get returns the named condition.
func (l *Library) Get(name string) (Node, bool) {
	n, ok := l.Conditions[name]
	return n, ok
}

// Names returns condition names in declaration order. Conditions added
// without an Order entry follow in lexical order.
func (l *Library) Names() []string {
	seen := make(map[string]bool, len(l.Order))
	names := make([]string, 0, len(l.Conditions))
	for _, name := range l.Order {
		if _, ok := l.Conditions[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range l.Conditions {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Len returns the number of conditions in the library.
func (l *Library) Len() int {
	return len(l.Conditions)
}
