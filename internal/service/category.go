// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package service implements the category operations on top of a
// store.CategoryRepository: validation, sibling uniqueness, parent checks,
// cycle prevention, guarded deletion and tree-shaped listings.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"bookswap/internal/models"
	"bookswap/internal/slug"
	"bookswap/internal/store"
	"bookswap/internal/tree"
)

const (
	minNameLength = 2
	maxNameLength = 50

	defaultPageSize = 10
	maxPageSize     = 100

	// fallbackSlug is used for names made only of symbols, such as "??".
	fallbackSlug = "category"
)

// Shape selects how List returns its page.
type Shape string

const (
	ShapeFlat Shape = "flat"
	ShapeTree Shape = "tree"
)

// ListingCache stores encoded List results under a generation number.
//
// InvalidateAll moves the cache to a new generation. Get and Set only see
// entries of the generation they are given, and Set must not store an entry
// once its generation is no longer current. A listing read from the store
// after Generation returned can therefore never outlive a later write.
type ListingCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, generation int64, key string) ([]byte, bool)
	Set(ctx context.Context, generation int64, key string, value []byte)
	InvalidateAll(ctx context.Context) error
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	ObserveOperation(op, outcome string)
	ConsistencyViolation(op string)
	CacheLookup(hit bool)
}

// ListParams are the raw listing parameters; List normalises them.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Shape    string
	Order    string
}

// ListResult is one page of categories. Items is set for the flat shape and
// Tree for the tree shape.
type ListResult struct {
	Shape      Shape              `json:"shape"`
	Items      []models.Category  `json:"items,omitempty"`
	Tree       []*models.TreeNode `json:"tree,omitempty"`
	Pagination models.Pagination  `json:"pagination"`
}

// Data returns the page in its requested shape, never nil.
func (r *ListResult) Data() any {
	if r.Shape == ShapeTree {
		if r.Tree == nil {
			return []*models.TreeNode{}
		}
		return r.Tree
	}
	if r.Items == nil {
		return []models.Category{}
	}
	return r.Items
}

// CreateInput is the payload for Create. Published defaults to true.
type CreateInput struct {
	Name      string `json:"name"`
	Published *bool  `json:"published"`
	ParentID  *int64 `json:"parent_id"`
}

// Validate checks the input after the name has been trimmed.
func (in *CreateInput) Validate() error {
	return validation.ValidateStruct(in, nameField(&in.Name))
}

// UpdateInput is the payload for Update. A nil Published keeps the current
// value; a nil ParentID makes the category a root.
type UpdateInput struct {
	Name      string `json:"name"`
	Published *bool  `json:"published"`
	ParentID  *int64 `json:"parent_id"`
}

// Validate checks the input after the name has been trimmed.
func (in *UpdateInput) Validate() error {
	return validation.ValidateStruct(in, nameField(&in.Name))
}

func nameField(name *string) *validation.FieldRules {
	return validation.Field(name,
		validation.Required.Error("name is required"),
		validation.RuneLength(minNameLength, maxNameLength).
			Error(fmt.Sprintf("name must be between %d and %d characters", minNameLength, maxNameLength)),
	)
}

// CategoryService implements the category operations.
type CategoryService struct {
	repo    store.CategoryRepository
	cache   ListingCache
	metrics Recorder
}

// NewCategoryService creates a CategoryService. cache and metrics may be nil.
func NewCategoryService(repo store.CategoryRepository, cache ListingCache, metrics Recorder) *CategoryService {
	return &CategoryService{repo: repo, cache: cache, metrics: metrics}
}

// List returns one page of categories matching p.
//
// For the tree shape the forest is built from every matching category and
// pagination applies to its top-level entries.
func (s *CategoryService) List(ctx context.Context, p ListParams) (result *ListResult, err error) {
	defer func() { err = s.observe(ctx, "list", err) }()

	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	shape := Shape(strings.ToLower(strings.TrimSpace(p.Shape)))
	if shape == "" {
		shape = ShapeFlat
	}
	if shape != ShapeFlat && shape != ShapeTree {
		return nil, fieldError("shape", "must be one of flat, tree")
	}

	q := models.CategoryQuery{
		Search: strings.TrimSpace(p.Search),
		Order:  models.ParseCategoryOrder(p.Order),
	}

	// The generation is read before the store so that a write committing
	// in between retires whatever this call ends up caching.
	key := listKey(q, shape, page, size)
	generation, cacheable := s.cacheGeneration(ctx)
	if cacheable {
		if cached := s.cachedList(ctx, generation, key); cached != nil {
			return cached, nil
		}
	}

	if shape == ShapeTree {
		result, err = s.listTree(ctx, q, page, size)
	} else {
		result, err = s.listFlat(ctx, q, page, size)
	}
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if cacheable {
		if raw, err := json.Marshal(result); err == nil {
			s.cache.Set(ctx, generation, key, raw)
		}
	}
	return result, nil
}

func (s *CategoryService) listFlat(ctx context.Context, q models.CategoryQuery, page, size int) (*ListResult, error) {
	q.Limit = size
	q.Offset = (page - 1) * size
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Shape:      ShapeFlat,
		Items:      items,
		Pagination: models.NewPagination(total, page, size),
	}, nil
}

func (s *CategoryService) listTree(ctx context.Context, q models.CategoryQuery, page, size int) (*ListResult, error) {
	items, _, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	forest := tree.Build(items)

	total := len(forest)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return &ListResult{
		Shape:      ShapeTree,
		Tree:       forest[start:end],
		Pagination: models.NewPagination(total, page, size),
	}, nil
}

// listKey identifies a normalised listing request.
func listKey(q models.CategoryQuery, shape Shape, page, size int) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))
	v.Set("shape", string(shape))
	v.Set("order", string(q.Order))
	v.Set("search", strings.ToLower(q.Search))
	return v.Encode()
}

// cacheGeneration reports the current cache generation. The cache is
// skipped entirely when it is absent or its generation is unknown.
func (s *CategoryService) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	generation, err := s.cache.Generation(ctx)
	if err != nil {
		slog.Debug("listing cache bypassed", "error", err)
		return 0, false
	}
	return generation, true
}

func (s *CategoryService) cachedList(ctx context.Context, generation int64, key string) *ListResult {
	raw, ok := s.cache.Get(ctx, generation, key)
	var result ListResult
	if ok && json.Unmarshal(raw, &result) == nil {
		s.recordCache(true)
		return &result
	}
	s.recordCache(false)
	return nil
}

// Get returns a category with its direct children.
func (s *CategoryService) Get(ctx context.Context, id int64) (detail *models.CategoryDetail, err error) {
	defer func() { err = s.observe(ctx, "get", err) }()

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	children, err := s.repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category children: %w", err)
	}
	return &models.CategoryDetail{Category: *c, Children: children}, nil
}

// Breadcrumb returns the path from the root down to the category.
func (s *CategoryService) Breadcrumb(ctx context.Context, id int64) (path []models.PathEntry, err error) {
	defer func() { err = s.observe(ctx, "breadcrumb", err) }()

	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("breadcrumb: %w", err)
	}
	path, err = tree.PathToRoot(all, id)
	if errors.Is(err, tree.ErrUnknownNode) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Descendants returns the ids of every category below id, breadth first.
func (s *CategoryService) Descendants(ctx context.Context, id int64) (ids []int64, err error) {
	defer func() { err = s.observe(ctx, "descendants", err) }()

	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("descendants: %w", err)
	}
	found := false
	for i := range all {
		if all[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return tree.Descendants(all, id), nil
}

// Create adds a category under in.ParentID, or as a root when it is nil.
func (s *CategoryService) Create(ctx context.Context, in CreateInput) (created *models.Category, err error) {
	defer func() { err = s.observe(ctx, "create", err) }()

	in.Name = strings.TrimSpace(in.Name)
	if err := toValidationError(in.Validate()); err != nil {
		return nil, err
	}
	published := true
	if in.Published != nil {
		published = *in.Published
	}

	err = s.repo.WithinTx(ctx, func(repo store.CategoryRepository) error {
		if err := requireParent(ctx, repo, in.ParentID); err != nil {
			return err
		}
		if err := requireUniqueName(ctx, repo, in.ParentID, in.Name, 0); err != nil {
			return err
		}

		var err error
		created, err = repo.Create(ctx, &models.Category{
			Name:      in.Name,
			Slug:      categorySlug(in.Name),
			ParentID:  in.ParentID,
			Published: published,
		})
		return err
	})
	if err != nil {
		return nil, translateStoreErr("create category", err, ErrInvalidParent)
	}

	s.invalidateListings(ctx)
	return created, nil
}

// Update renames, re-parents and (optionally) republishes a category.
// Moving a category moves its whole subtree, since only its own row changes.
func (s *CategoryService) Update(ctx context.Context, id int64, in UpdateInput) (updated *models.Category, err error) {
	defer func() { err = s.observe(ctx, "update", err) }()

	in.Name = strings.TrimSpace(in.Name)
	if err := toValidationError(in.Validate()); err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(repo store.CategoryRepository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if in.ParentID != nil && *in.ParentID == id {
			return ErrSelfParent
		}
		if err := requireParent(ctx, repo, in.ParentID); err != nil {
			return err
		}

		if in.ParentID != nil && !sameParent(current.ParentID, in.ParentID) {
			all, err := repo.All(ctx)
			if err != nil {
				return err
			}
			cycle, err := tree.WouldCycle(all, id, *in.ParentID)
			if err != nil {
				return err
			}
			if cycle {
				return ErrCycleDetected
			}
		}

		if err := requireUniqueName(ctx, repo, in.ParentID, in.Name, id); err != nil {
			return err
		}

		next := *current
		next.Name = in.Name
		next.Slug = categorySlug(in.Name)
		next.ParentID = in.ParentID
		if in.Published != nil {
			next.Published = *in.Published
		}
		updated, err = repo.Update(ctx, &next)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreErr("update category", err, ErrInvalidParent)
	}

	s.invalidateListings(ctx)
	return updated, nil
}

// Delete removes a category that has no children and no books.
func (s *CategoryService) Delete(ctx context.Context, id int64) (err error) {
	defer func() { err = s.observe(ctx, "delete", err) }()

	err = s.repo.WithinTx(ctx, func(repo store.CategoryRepository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}

		children, err := repo.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return ErrHasChildren
		}

		refs, err := repo.CountReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return ErrInUse
		}

		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translateStoreErr("delete category", err, ErrInUse)
	}

	s.invalidateListings(ctx)
	return nil
}

// SetPublished changes only the published flag.
func (s *CategoryService) SetPublished(ctx context.Context, id int64, published bool) (updated *models.Category, err error) {
	defer func() { err = s.observe(ctx, "set_published", err) }()

	err = s.repo.WithinTx(ctx, func(repo store.CategoryRepository) error {
		var err error
		updated, err = repo.SetPublished(ctx, id, published)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreErr("set category published", err, ErrInvalidParent)
	}

	s.invalidateListings(ctx)
	return updated, nil
}

// requireParent returns ErrInvalidParent when parentID names a missing row.
func requireParent(ctx context.Context, repo store.CategoryRepository, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	parent, err := repo.FindByID(ctx, *parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrInvalidParent
	}
	return nil
}

// requireUniqueName returns ErrDuplicate when a sibling already uses name.
func requireUniqueName(ctx context.Context, repo store.CategoryRepository, parentID *int64, name string, excludeID int64) error {
	taken, err := repo.SiblingExists(ctx, parentID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicate
	}
	return nil
}

// categorySlug derives the stored slug for a category name.
func categorySlug(name string) string {
	if s := slug.Generate(name); s != "" {
		return s
	}
	return fallbackSlug
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// translateStoreErr maps constraint violations that slipped past the
// service checks (concurrent writers on a backend without the graph lock)
// to service errors. A foreign-key violation becomes fkErr: a missing
// parent on insert or update, a remaining reference on delete. Service
// sentinels pass through unchanged.
func translateStoreErr(op string, err error, fkErr error) error {
	if Kind(err) != KindInternal {
		return err
	}
	switch {
	case errors.Is(err, store.ErrUniqueViolation):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case errors.Is(err, store.ErrCheckViolation):
		return fmt.Errorf("%s: %w", op, ErrSelfParent)
	case errors.Is(err, store.ErrForeignKeyViolation):
		return fmt.Errorf("%s: %w", op, fkErr)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// invalidateListings drops cached listings after a successful write. A
// failure is logged; the cache keeps bypassing itself until a later
// invalidation succeeds.
func (s *CategoryService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		slog.Warn("listing cache invalidation failed", "error", err)
	}
}

// observe records the outcome of op and reports consistency violations.
// It returns err unchanged.
func (s *CategoryService) observe(ctx context.Context, op string, err error) error {
	kind := Kind(err)
	if kind == KindInternalConsistency {
		slog.ErrorContext(ctx, "category graph consistency violation", "op", op, "error", err)
		if s.metrics != nil {
			s.metrics.ConsistencyViolation(op)
		}
	}
	if s.metrics != nil {
		outcome := kind
		if outcome == "" {
			outcome = "ok"
		}
		s.metrics.ObserveOperation(op, outcome)
	}
	return err
}

func (s *CategoryService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.CacheLookup(hit)
	}
}
