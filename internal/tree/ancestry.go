// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"errors"
	"fmt"

	"bookswap/internal/models"
)

var (
	// ErrInternalConsistency means a parent walk took more hops than there
	// are categories, so the stored graph already contains a cycle.
	ErrInternalConsistency = errors.New("category graph is inconsistent")

	// ErrUnknownNode is returned when the starting category is not in the set.
	ErrUnknownNode = errors.New("category not in set")
)

// parentIndex maps every category id to its parent id (nil for roots).
func parentIndex(categories []models.Category) map[int64]*int64 {
	idx := make(map[int64]*int64, len(categories))
	for i := range categories {
		idx[categories[i].ID] = categories[i].ParentID
	}
	return idx
}

// WouldCycle reports whether making candidateParentID the parent of nodeID
// would close a loop, i.e. whether the candidate is the node itself or one
// of its descendants.
//
// The walk follows parent links upward from the candidate and stops at a
// root or at an id missing from the set. It is bounded by the number of
// categories; running past the bound returns ErrInternalConsistency.
func WouldCycle(categories []models.Category, nodeID, candidateParentID int64) (bool, error) {
	if candidateParentID == nodeID {
		return true, nil
	}

	parents := parentIndex(categories)
	limit := len(parents)
	cur := candidateParentID
	for hops := 0; ; hops++ {
		if cur == nodeID {
			return true, nil
		}
		if hops > limit {
			return false, fmt.Errorf("%w: parent walk from %d exceeded %d hops",
				ErrInternalConsistency, candidateParentID, limit)
		}
		parent, ok := parents[cur]
		if !ok || parent == nil {
			return false, nil
		}
		cur = *parent
	}
}

// PathToRoot returns the chain from nodeID up to its root, node first.
// A root yields a single entry. A parent id missing from the set ends the
// walk as if it were a root.
func PathToRoot(categories []models.Category, nodeID int64) ([]models.PathEntry, error) {
	byID := make(map[int64]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	cur, ok := byID[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, nodeID)
	}

	limit := len(byID)
	var path []models.PathEntry
	for {
		path = append(path, models.PathEntry{ID: cur.ID, Name: cur.Name})
		if len(path) > limit {
			return nil, fmt.Errorf("%w: path from %d exceeded %d entries",
				ErrInternalConsistency, nodeID, limit)
		}
		if cur.ParentID == nil {
			return path, nil
		}
		next, ok := byID[*cur.ParentID]
		if !ok {
			return path, nil
		}
		cur = next
	}
}

// Descendants returns the ids of every strict descendant of nodeID in
// breadth-first order. Each id is reported once even if the stored graph
// is corrupted.
func Descendants(categories []models.Category, nodeID int64) []int64 {
	children := make(map[int64][]int64, len(categories))
	for i := range categories {
		if p := categories[i].ParentID; p != nil {
			children[*p] = append(children[*p], categories[i].ID)
		}
	}

	seen := map[int64]bool{nodeID: true}
	result := []int64{}
	queue := []int64{nodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range children[id] {
			if seen[c] {
				continue
			}
			seen[c] = true
			result = append(result, c)
			queue = append(queue, c)
		}
	}
	return result
}
