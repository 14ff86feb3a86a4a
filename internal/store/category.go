// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookswap/internal/database"
	"bookswap/internal/models"
)

// categoryGraphLock is the pg_advisory_xact_lock key held by every write
// transaction on the category graph.
const categoryGraphLock int64 = 0x63617467 // "catg"

// CategoryStore manages categories in PostgreSQL.
type CategoryStore struct {
	db *sql.DB // nil inside a transaction
	q  database.Querier
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db, q: db}
}

const categoryColumns = `id, name, slug, parent_id, published, created_at, updated_at`

// orderClauses maps each listing order to its ORDER BY expression. Only
// these fixed strings are ever interpolated into SQL.
var orderClauses = map[models.CategoryOrder]string{
	models.OrderDefault: `(parent_id IS NOT NULL), LOWER(name), id`,
	models.OrderName:    `LOWER(name), id`,
	models.OrderNewest:  `created_at DESC, id DESC`,
	models.OrderOldest:  `created_at, id`,
	models.OrderUpdated: `updated_at DESC, id DESC`,
}

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.ParentID,
		&c.Published, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// queryCategories runs a SELECT returning categoryColumns and collects the rows.
func (s *CategoryStore) queryCategories(ctx context.Context, op, query string, args ...any) ([]models.Category, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return items, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List returns one page of categories whose name contains q.Search
// (case-insensitive) and the total number of matches.
func (s *CategoryStore) List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int, error) {
	where := ""
	var args []any
	if q.Search != "" {
		where = `WHERE name ILIKE '%' || $1 || '%' ESCAPE '\'`
		args = append(args, escapeLike(q.Search))
	}

	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories `+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count categories", err)
	}

	order, ok := orderClauses[q.Order]
	if !ok {
		order = orderClauses[models.OrderDefault]
	}

	query := `SELECT ` + categoryColumns + ` FROM categories ` + where + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, q.Limit, q.Offset)
	}

	items, err := s.queryCategories(ctx, "list categories", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// All returns every category ordered by id.
func (s *CategoryStore) All(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, "list all categories",
		`SELECT `+categoryColumns+` FROM categories ORDER BY id`)
}

// Children returns the direct children of a category.
func (s *CategoryStore) Children(ctx context.Context, parentID int64) ([]models.Category, error) {
	return s.queryCategories(ctx, "list child categories",
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id = $1 ORDER BY LOWER(name), id`,
		parentID)
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find category by id", err)
	}
	return c, nil
}

// CountChildren returns the number of categories whose parent is id.
func (s *CategoryStore) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, wrapErr("count child categories", err)
	}
	return n, nil
}

// CountReferences returns the number of books tagged with the category.
func (s *CategoryStore) CountReferences(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE category_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, wrapErr("count category references", err)
	}
	return n, nil
}

// SiblingExists reports whether name is already taken in the sibling group
// of parentID by a category other than excludeID.
func (s *CategoryStore) SiblingExists(ctx context.Context, parentID *int64, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE parent_id IS NOT DISTINCT FROM $1
			  AND LOWER(name) = LOWER($2)
			  AND id <> $3
		)`, parentID, name, excludeID).Scan(&exists)
	if err != nil {
		return false, wrapErr("check sibling name", err)
	}
	return exists, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, parent_id, published)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.ParentID, c.Published,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, wrapErr("create category", err)
	}
	return result, nil
}

// Update modifies an existing category. Returns nil if the row is gone.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, parent_id = $3, published = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.ParentID, c.Published, c.ID,
	)
	result, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("update category", err)
	}
	return result, nil
}

// SetPublished updates only the published flag. Returns nil if the row is gone.
func (s *CategoryStore) SetPublished(ctx context.Context, id int64, published bool) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE categories SET published = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+categoryColumns,
		published, id,
	)
	result, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("set category published", err)
	}
	return result, nil
}

// Delete removes a category by ID. Children and book references block the
// delete through ON DELETE RESTRICT.
func (s *CategoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, wrapErr("delete category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete category rows affected: %w", err)
	}
	return n > 0, nil
}

// WithinTx runs fn in a transaction holding the category graph advisory
// lock, so concurrent writers re-validate against committed state. Calls
// made on a store that is already inside a transaction reuse it.
func (s *CategoryStore) WithinTx(ctx context.Context, fn func(repo CategoryRepository) error) error {
	if s.db == nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, categoryGraphLock); err != nil {
			return fmt.Errorf("lock category graph: %w", err)
		}
		return fn(&CategoryStore{q: tx})
	})
}
