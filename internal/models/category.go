// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the shapes returned by the category service.
package models

import "time"

// Category is a node in the category forest. ParentID is nil for roots.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *int64    `json:"parent_id"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// TreeNode is a Category with its nested children and depth.
type TreeNode struct {
	Category
	Level    int         `json:"level"`
	Orphan   bool        `json:"orphan,omitempty"`
	Children []*TreeNode `json:"children"`
}

// CategoryDetail is a single category together with its direct children.
type CategoryDetail struct {
	Category
	Children []Category `json:"children"`
}

// PathEntry is one step of a breadcrumb.
type PathEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryOrder selects the ordering of listed categories.
type CategoryOrder string

const (
	// OrderDefault lists root categories first, then by name.
	OrderDefault CategoryOrder = ""
	OrderName    CategoryOrder = "name"
	OrderNewest  CategoryOrder = "newest"
	OrderOldest  CategoryOrder = "oldest"
	OrderUpdated CategoryOrder = "updated"
)

// ParseCategoryOrder maps a query value to a known ordering. Unknown values
// fall back to OrderDefault.
func ParseCategoryOrder(s string) CategoryOrder {
	switch o := CategoryOrder(s); o {
	case OrderName, OrderNewest, OrderOldest, OrderUpdated:
		return o
	default:
		return OrderDefault
	}
}

// CategoryQuery filters and pages a category listing. A Limit of zero
// means no limit.
type CategoryQuery struct {
	Search string
	Order  CategoryOrder
	Limit  int
	Offset int
}

// Pagination describes a page of results.
type Pagination struct {
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// NewPagination computes page counts for total items split into pages of size.
func NewPagination(total, page, size int) Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Pagination{
		TotalItems:   total,
		TotalPages:   pages,
		CurrentPage:  page,
		ItemsPerPage: size,
	}
}
