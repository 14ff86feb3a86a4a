// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tree turns flat parent-pointer category rows into nested forests
// and answers ancestry questions over them. Every function is pure: it
// works on the slice it is given and never touches storage.
package tree

import "bookswap/internal/models"

// Build converts a flat list of categories into a forest.
//
// Roots are categories with a nil parent. A category whose parent is not in
// the list is promoted to a root and flagged as an orphan. Sibling order
// follows the input order. If the input contains a parent cycle, the first
// unreachable category (in input order) is detached from its parent and
// promoted as an orphan, so every input record appears exactly once.
func Build(flat []models.Category) []*models.TreeNode {
	nodes := make([]*models.TreeNode, len(flat))
	index := make(map[int64]*models.TreeNode, len(flat))
	for i := range flat {
		n := &models.TreeNode{Category: flat[i], Children: []*models.TreeNode{}}
		nodes[i] = n
		index[n.ID] = n
	}

	var roots []*models.TreeNode
	parentOf := make(map[*models.TreeNode]*models.TreeNode, len(flat))
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := index[*n.ParentID]
		if !ok || parent == n {
			n.Orphan = true
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
		parentOf[n] = parent
	}

	visited := make(map[*models.TreeNode]bool, len(flat))
	for _, r := range roots {
		assignLevels(r, visited)
	}

	// Anything still unvisited sits on a cycle or hangs below one.
	for _, n := range nodes {
		if visited[n] {
			continue
		}
		detach(parentOf[n], n)
		n.Orphan = true
		roots = append(roots, n)
		assignLevels(n, visited)
	}

	if roots == nil {
		roots = []*models.TreeNode{}
	}
	return roots
}

// assignLevels walks the subtree under root iteratively, setting Level on
// every node it has not seen before.
func assignLevels(root *models.TreeNode, visited map[*models.TreeNode]bool) {
	root.Level = 0
	visited[root] = true
	stack := []*models.TreeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.Children {
			if visited[c] {
				continue
			}
			visited[c] = true
			c.Level = n.Level + 1
			stack = append(stack, c)
		}
	}
}

// detach removes child from parent's children, keeping the order of the rest.
func detach(parent, child *models.TreeNode) {
	if parent == nil {
		return
	}
	kept := parent.Children[:0]
	for _, c := range parent.Children {
		if c != child {
			kept = append(kept, c)
		}
	}
	parent.Children = kept
}

// Flatten walks a forest depth-first and returns the categories in
// pre-order, the order used for indented <select> lists.
func Flatten(forest []*models.TreeNode) []models.Category {
	var result []models.Category
	flattenInto(forest, &result)
	return result
}

func flattenInto(nodes []*models.TreeNode, result *[]models.Category) {
	for _, n := range nodes {
		*result = append(*result, n.Category)
		if len(n.Children) > 0 {
			flattenInto(n.Children, result)
		}
	}
}
