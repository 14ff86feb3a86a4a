// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides the persistence layer for categories. The
// CategoryRepository interface is implemented by CategoryStore (PostgreSQL)
// and MemoryCategoryStore (in-process).
package store

import (
	"context"

	"bookswap/internal/models"
)

// CategoryRepository is the persistence contract the category service
// depends on.
//
// Lookups that miss return a nil category and a nil error. Constraint
// violations are reported as ErrUniqueViolation, ErrForeignKeyViolation or
// ErrCheckViolation so callers can map them without knowing the backend.
type CategoryRepository interface {
	// FindByID returns one category.
	FindByID(ctx context.Context, id int64) (*models.Category, error)

	// List returns the categories matching q together with the number of
	// matches before Limit/Offset are applied.
	List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int, error)

	// All returns every category ordered by id.
	All(ctx context.Context) ([]models.Category, error)

	// Children returns the direct children of parentID ordered by name.
	Children(ctx context.Context, parentID int64) ([]models.Category, error)

	CountChildren(ctx context.Context, id int64) (int, error)

	// CountReferences returns how many books are tagged with the category.
	CountReferences(ctx context.Context, id int64) (int, error)

	// SiblingExists reports whether another category (other than excludeID)
	// under parentID already uses name, compared case-insensitively.
	SiblingExists(ctx context.Context, parentID *int64, name string, excludeID int64) (bool, error)

	Create(ctx context.Context, c *models.Category) (*models.Category, error)

	// Update writes name, slug, parent and published for c.ID and refreshes
	// updated_at. Returns nil when the row does not exist.
	Update(ctx context.Context, c *models.Category) (*models.Category, error)

	// SetPublished flips only the published flag. Returns nil when the row
	// does not exist.
	SetPublished(ctx context.Context, id int64, published bool) (*models.Category, error)

	// Delete removes a category and reports whether a row was deleted.
	Delete(ctx context.Context, id int64) (bool, error)

	// WithinTx runs fn against a repository whose writes commit atomically
	// when fn returns nil. Writers to the category graph are serialised for
	// the duration of fn.
	WithinTx(ctx context.Context, fn func(repo CategoryRepository) error) error
}
