// Package dag provides cycle detection over task dependency graphs.
package dag

import "sort"

type color uint8

const (
	white color = iota // unvisited
	grey               // on stack
	black              // done
)

// HasCycle reports whether the adjacency list graph (node -> dependencies)
// contains a directed cycle. The walk is an iterative three-color DFS with an
// explicit stack, so pathological chains cannot blow the goroutine stack.
// Nodes are enumerated in sorted order; the verdict does not depend on it,
// but deterministic traversal keeps tests stable.
func HasCycle(graph map[string][]string) bool {
	colors := make(map[string]color, len(graph))

	roots := make([]string, 0, len(graph))
	for node := range graph {
		roots = append(roots, node)
	}
	sort.Strings(roots)

	type frame struct {
		node string
		next int // index of the next dependency to visit
	}

	for _, root := range roots {
		if colors[root] != white {
			continue
		}

		stack := []frame{{node: root}}
		colors[root] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := graph[top.node]

			if top.next >= len(deps) {
				colors[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			dep := deps[top.next]
			top.next++

			switch colors[dep] {
			case grey:
				return true
			case white:
				colors[dep] = grey
				stack = append(stack, frame{node: dep})
			}
		}
	}

	return false
}
