package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"bookswap/internal/slug"
)

// seedCategory is a development category; Parent refers to another entry's
// Name within the seed set ("" for a root).
type seedCategory struct {
	Name   string
	Parent string
}

// seedCategories is inserted in order, so parents must precede children.
var seedCategories = []seedCategory{
	{Name: "Fiction"},
	{Name: "Sci-Fi", Parent: "Fiction"},
	{Name: "Fantasy", Parent: "Fiction"},
	{Name: "Cyberpunk", Parent: "Sci-Fi"},
	{Name: "Non-Fiction"},
	{Name: "History", Parent: "Non-Fiction"},
	{Name: "Science", Parent: "Non-Fiction"},
	{Name: "Children"},
}

// seedBooks tag a few categories so deletion guards can be tried by hand.
var seedBooks = []struct {
	Title    string
	Author   string
	Category string
}{
	{Title: "Neuromancer", Author: "William Gibson", Category: "Cyberpunk"},
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: "Fantasy"},
	{Title: "SPQR", Author: "Mary Beard", Category: "History"},
}

// Seed populates the database with development categories and books.
// It is a no-op when any category already exists.
func Seed(db *sql.DB) error {
	ctx := context.Background()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	return WithTx(ctx, db, func(tx *sql.Tx) error {
		ids := make(map[string]int64, len(seedCategories))
		for _, c := range seedCategories {
			var parentID *int64
			if c.Parent != "" {
				id := ids[c.Parent]
				parentID = &id
			}

			var id int64
			err := tx.QueryRowContext(ctx, `
				INSERT INTO categories (name, slug, parent_id)
				VALUES ($1, $2, $3)
				RETURNING id
			`, c.Name, slug.Generate(c.Name), parentID).Scan(&id)
			if err != nil {
				return fmt.Errorf("seed insert category %q: %w", c.Name, err)
			}
			ids[c.Name] = id
		}

		for _, b := range seedBooks {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO books (title, author, category_id) VALUES ($1, $2, $3)`,
				b.Title, b.Author, ids[b.Category],
			)
			if err != nil {
				return fmt.Errorf("seed insert book %q: %w", b.Title, err)
			}
		}

		slog.Info("database seeded with development categories",
			"categories", len(seedCategories),
			"books", len(seedBooks),
		)
		return nil
	})
}
