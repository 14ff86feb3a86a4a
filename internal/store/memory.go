// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookswap/internal/models"
)

// MemoryCategoryStore is an in-process CategoryRepository. It enforces the
// same constraints as the PostgreSQL schema (sibling-unique names, existing
// parents, RESTRICT on delete) and is used when STORE_DRIVER=memory and in
// tests.
type MemoryCategoryStore struct {
	mu    sync.Mutex
	state *memState
}

// memState is the data behind a MemoryCategoryStore. It is only touched
// while the store mutex is held.
type memState struct {
	nextID int64
	rows   map[int64]models.Category
	refs   map[int64]int // book references per category
	now    func() time.Time
}

// NewMemoryCategoryStore returns an empty store.
func NewMemoryCategoryStore() *MemoryCategoryStore {
	return &MemoryCategoryStore{state: &memState{
		nextID: 1,
		rows:   make(map[int64]models.Category),
		refs:   make(map[int64]int),
		now:    func() time.Time { return time.Now().UTC() },
	}}
}

// AddBookReference records a book tagged with categoryID, the in-memory
// counterpart of a books row.
func (s *MemoryCategoryStore) AddBookReference(categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.rows[categoryID]; !ok {
		return fmt.Errorf("add book reference: %w", ErrForeignKeyViolation)
	}
	s.state.refs[categoryID]++
	return nil
}

func (s *MemoryCategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindByID(ctx, id)
}

func (s *MemoryCategoryStore) List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.List(ctx, q)
}

func (s *MemoryCategoryStore) All(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.All(ctx)
}

func (s *MemoryCategoryStore) Children(ctx context.Context, parentID int64) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Children(ctx, parentID)
}

func (s *MemoryCategoryStore) CountChildren(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountChildren(ctx, id)
}

func (s *MemoryCategoryStore) CountReferences(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountReferences(ctx, id)
}

func (s *MemoryCategoryStore) SiblingExists(ctx context.Context, parentID *int64, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SiblingExists(ctx, parentID, name, excludeID)
}

func (s *MemoryCategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Create(ctx, c)
}

func (s *MemoryCategoryStore) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Update(ctx, c)
}

func (s *MemoryCategoryStore) SetPublished(ctx context.Context, id int64, published bool) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetPublished(ctx, id, published)
}

func (s *MemoryCategoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Delete(ctx, id)
}

// WithinTx holds the store lock for the duration of fn and restores the
// previous state if fn returns an error.
func (s *MemoryCategoryStore) WithinTx(ctx context.Context, fn func(repo CategoryRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(s.state); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (m *memState) clone() *memState {
	c := &memState{
		nextID: m.nextID,
		rows:   make(map[int64]models.Category, len(m.rows)),
		refs:   make(map[int64]int, len(m.refs)),
		now:    m.now,
	}
	for id, row := range m.rows {
		c.rows[id] = row
	}
	for id, n := range m.refs {
		c.refs[id] = n
	}
	return c
}

// sorted returns the rows ordered by id, the stable base for every listing.
func (m *memState) sorted() []models.Category {
	items := make([]models.Category, 0, len(m.rows))
	for _, row := range m.rows {
		items = append(items, row)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (m *memState) FindByID(_ context.Context, id int64) (*models.Category, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memState) List(_ context.Context, q models.CategoryQuery) ([]models.Category, int, error) {
	needle := strings.ToLower(q.Search)
	matched := []models.Category{}
	for _, row := range m.sorted() {
		if strings.Contains(strings.ToLower(row.Name), needle) {
			matched = append(matched, row)
		}
	}

	sort.SliceStable(matched, lessFor(q.Order, matched))

	total := len(matched)
	if q.Limit <= 0 {
		return matched, total, nil
	}
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	return matched[start:end], total, nil
}

// lessFor mirrors the ORDER BY clauses used by CategoryStore.
func lessFor(order models.CategoryOrder, items []models.Category) func(i, j int) bool {
	byName := func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	}
	switch order {
	case models.OrderName:
		return byName
	case models.OrderNewest:
		return func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) }
	case models.OrderOldest:
		return func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) }
	case models.OrderUpdated:
		return func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) }
	default:
		return func(i, j int) bool {
			ri, rj := items[i].IsRoot(), items[j].IsRoot()
			if ri != rj {
				return ri
			}
			return byName(i, j)
		}
	}
}

func (m *memState) All(_ context.Context) ([]models.Category, error) {
	return m.sorted(), nil
}

func (m *memState) Children(_ context.Context, parentID int64) ([]models.Category, error) {
	children := []models.Category{}
	for _, row := range m.sorted() {
		if row.ParentID != nil && *row.ParentID == parentID {
			children = append(children, row)
		}
	}
	sort.SliceStable(children, lessFor(models.OrderName, children))
	return children, nil
}

func (m *memState) CountChildren(_ context.Context, id int64) (int, error) {
	n := 0
	for _, row := range m.rows {
		if row.ParentID != nil && *row.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (m *memState) CountReferences(_ context.Context, id int64) (int, error) {
	return m.refs[id], nil
}

func (m *memState) SiblingExists(_ context.Context, parentID *int64, name string, excludeID int64) (bool, error) {
	for _, row := range m.rows {
		if row.ID != excludeID && sameParent(row.ParentID, parentID) && strings.EqualFold(row.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// sameParent compares two parent pointers (both nil or same value).
func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// checkRow enforces the schema constraints for a row about to be written.
func (m *memState) checkRow(c *models.Category) error {
	if c.ParentID != nil {
		if *c.ParentID == c.ID {
			return ErrCheckViolation
		}
		if _, ok := m.rows[*c.ParentID]; !ok {
			return ErrForeignKeyViolation
		}
	}
	if taken, _ := m.SiblingExists(context.Background(), c.ParentID, c.Name, c.ID); taken {
		return ErrUniqueViolation
	}
	return nil
}

func (m *memState) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	row := *c
	row.ID = m.nextID
	if err := m.checkRow(&row); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	now := m.now()
	row.CreatedAt = now
	row.UpdatedAt = now
	row.ParentID = copyID(c.ParentID)
	m.rows[row.ID] = row
	m.nextID++
	return &row, nil
}

func (m *memState) Update(_ context.Context, c *models.Category) (*models.Category, error) {
	existing, ok := m.rows[c.ID]
	if !ok {
		return nil, nil
	}
	row := existing
	row.Name = c.Name
	row.Slug = c.Slug
	row.ParentID = copyID(c.ParentID)
	row.Published = c.Published
	if err := m.checkRow(&row); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	row.UpdatedAt = m.now()
	m.rows[row.ID] = row
	return &row, nil
}

func (m *memState) SetPublished(_ context.Context, id int64, published bool) (*models.Category, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	row.Published = published
	row.UpdatedAt = m.now()
	m.rows[id] = row
	return &row, nil
}

func (m *memState) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	children, _ := m.CountChildren(ctx, id)
	if children > 0 || m.refs[id] > 0 {
		return false, fmt.Errorf("delete category: %w", ErrForeignKeyViolation)
	}
	delete(m.rows, id)
	delete(m.refs, id)
	return true, nil
}

// WithinTx on the state itself is reached when a transaction is already
// open, so fn simply runs against the same state.
func (m *memState) WithinTx(_ context.Context, fn func(repo CategoryRepository) error) error {
	return fn(m)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
