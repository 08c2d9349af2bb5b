// Package tree turns a flat list of knowledge notes into a folder hierarchy
// keyed by their slash-delimited category paths.
package tree

import (
	"sort"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// Separator splits category paths into segments
const Separator = "/"

// Node is one folder in the category tree
type Node struct {
	Name     string                 `json:"name"`
	Path     string                 `json:"path"`
	Children map[string]*Node       `json:"children"`
	Notes    []domain.KnowledgeNote `json:"notes"`
}

func newNode(name, path string) *Node {
	return &Node{Name: name, Path: path, Children: map[string]*Node{}}
}

// Build groups notes by exact category path and materializes every prefix
// of every path as a folder. Empty segments ("a//b", "", "/a") are kept as
// folders with an empty name.
func Build(notes []domain.KnowledgeNote) []*Node {
	// Group by exact path, remembering first-seen order of paths
	groups := make(map[string][]domain.KnowledgeNote)
	var paths []string
	for _, n := range notes {
		if _, ok := groups[n.CategoryPath]; !ok {
			paths = append(paths, n.CategoryPath)
		}
		groups[n.CategoryPath] = append(groups[n.CategoryPath], n)
	}

	roots := make(map[string]*Node)
	for _, path := range paths {
		parts := strings.Split(path, Separator)

		level := roots
		for i, part := range parts {
			node, ok := level[part]
			if !ok {
				node = newNode(part, strings.Join(parts[:i+1], Separator))
				level[part] = node
			}
			if i == len(parts)-1 {
				node.Notes = groups[path]
			}
			level = node.Children
		}
	}

	out := make([]*Node, 0, len(roots))
	for _, n := range roots {
		out = append(out, n)
	}
	return out
}

// Sorted returns nodes ordered by name, for stable display
func Sorted(nodes map[string]*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SortRoots orders a Build result by name in place and returns it
func SortRoots(roots []*Node) []*Node {
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots
}

// Walk visits every node depth-first, parents before children, in name order.
// Returning false from fn skips that node's subtree.
func Walk(roots []*Node, fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range Sorted(n.Children) {
			visit(c, depth+1)
		}
	}
	sorted := append([]*Node(nil), roots...)
	for _, r := range SortRoots(sorted) {
		visit(r, 0)
	}
}

// Find returns the node whose Path equals path, or nil
func Find(roots []*Node, path string) *Node {
	parts := strings.Split(path, Separator)
	level := make(map[string]*Node, len(roots))
	for _, r := range roots {
		level[r.Name] = r
	}
	var node *Node
	for _, part := range parts {
		next, ok := level[part]
		if !ok {
			return nil
		}
		node = next
		level = next.Children
	}
	return node
}

// Count returns the number of notes held in n and all of its descendants
func Count(n *Node) int {
	total := len(n.Notes)
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}
