package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookswap/internal/models"
	"bookswap/internal/store"
)

// pausingRepo holds the next List call after it has read the store, until
// release is closed.
type pausingRepo struct {
	store.CategoryRepository
	pause   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func newPausingRepo(repo store.CategoryRepository) *pausingRepo {
	return &pausingRepo{CategoryRepository: repo, read: make(chan struct{}), release: make(chan struct{})}
}

func (r *pausingRepo) List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int, error) {
	items, total, err := r.CategoryRepository.List(ctx, q)
	if r.pause.CompareAndSwap(true, false) {
		close(r.read)
		<-r.release
	}
	return items, total, err
}

func TestList_ReadOverlappingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := newPausingRepo(store.NewMemoryCategoryStore())
	svc := NewCategoryService(repo, newFakeCache(), nil)
	mustCreate(t, svc, "Fiction", nil)

	repo.pause.Store(true)
	done := make(chan *ListResult, 1)
	go func() {
		res, err := svc.List(ctx, ListParams{})
		if err != nil {
			res = nil
		}
		done <- res
	}()

	// The listing has read one row; a write commits before it is cached.
	<-repo.read
	mustCreate(t, svc, "History", nil)
	close(repo.release)

	overlapping := <-done
	require.NotNil(t, overlapping)
	assert.Len(t, overlapping.Items, 1)

	res, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2, "a listing after a successful write must include it")
	assert.Equal(t, 2, res.Pagination.TotalItems)
}

func TestCreate_ConcurrentSiblingNames(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	const n = 20
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		name := "Fiction"
		if i%2 == 1 {
			name = "FICTION"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Create(ctx, CreateInput{Name: name})
		}()
	}
	close(start)
	wg.Wait()

	var created, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, ErrDuplicate):
			duplicates++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, duplicates)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdate_ConcurrentCrossReparent(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 25; round++ {
		svc, repo := newTestService(t)
		alpha := mustCreate(t, svc, "Alpha", nil)
		beta := mustCreate(t, svc, "Beta", nil)

		var errAlpha, errBeta error
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, errAlpha = svc.Update(ctx, alpha.ID, UpdateInput{Name: "Alpha", ParentID: &beta.ID})
		}()
		go func() {
			defer wg.Done()
			<-start
			_, errBeta = svc.Update(ctx, beta.ID, UpdateInput{Name: "Beta", ParentID: &alpha.ID})
		}()
		close(start)
		wg.Wait()

		if errAlpha == nil {
			require.ErrorIs(t, errBeta, ErrCycleDetected, "round %d", round)
		} else {
			require.ErrorIs(t, errAlpha, ErrCycleDetected, "round %d", round)
			require.NoError(t, errBeta, "round %d", round)
		}

		// Exactly one of the two is still a root.
		all, err := repo.All(ctx)
		require.NoError(t, err)
		roots := 0
		for _, c := range all {
			if c.ParentID == nil {
				roots++
			}
		}
		assert.Equal(t, 1, roots, "round %d", round)
	}
}
