package tree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookswap/internal/models"
)

func ptr(id int64) *int64 { return &id }

func cat(id int64, name string, parent *int64) models.Category {
	return models.Category{ID: id, Name: name, ParentID: parent, Published: true}
}

// randomForest builds n categories where each category's parent (if any)
// has a smaller id, which guarantees an acyclic set. The slice is shuffled
// so parents do not always precede their children.
func randomForest(r *rand.Rand, n int) []models.Category {
	cats := make([]models.Category, 0, n)
	for i := 1; i <= n; i++ {
		var parent *int64
		if i > 1 && r.Intn(4) != 0 {
			parent = ptr(int64(r.Intn(i-1) + 1))
		}
		cats = append(cats, cat(int64(i), "c", parent))
	}
	r.Shuffle(len(cats), func(i, j int) { cats[i], cats[j] = cats[j], cats[i] })
	return cats
}

func ids(cats []models.Category) []int64 {
	out := make([]int64, len(cats))
	for i, c := range cats {
		out[i] = c.ID
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// hopsToRoot counts non-null parent hops by walking the flat set.
func hopsToRoot(cats []models.Category, id int64) int {
	parents := parentIndex(cats)
	hops := 0
	for p := parents[id]; p != nil; p = parents[*p] {
		hops++
	}
	return hops
}

func collectNodes(forest []*models.TreeNode, out map[int64]*models.TreeNode) {
	for _, n := range forest {
		out[n.ID] = n
		collectNodes(n.Children, out)
	}
}

func TestBuild_Empty(t *testing.T) {
	forest := Build(nil)
	require.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestBuild_NestsChildrenAndAssignsLevels(t *testing.T) {
	flat := []models.Category{
		cat(1, "Fiction", nil),
		cat(2, "Sci-Fi", ptr(1)),
		cat(3, "Fantasy", ptr(1)),
		cat(4, "Cyberpunk", ptr(2)),
		cat(5, "History", nil),
	}

	forest := Build(flat)

	require.Len(t, forest, 2)
	assert.Equal(t, int64(1), forest[0].ID)
	assert.Equal(t, int64(5), forest[1].ID)
	assert.Equal(t, 0, forest[0].Level)

	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, int64(2), forest[0].Children[0].ID)
	assert.Equal(t, int64(3), forest[0].Children[1].ID)
	assert.Equal(t, 1, forest[0].Children[0].Level)

	require.Len(t, forest[0].Children[0].Children, 1)
	cyber := forest[0].Children[0].Children[0]
	assert.Equal(t, int64(4), cyber.ID)
	assert.Equal(t, 2, cyber.Level)
	assert.NotNil(t, cyber.Children, "leaf children should be an empty list, not nil")
	assert.False(t, cyber.Orphan)
}

// TestBuild_PreservesSiblingInputOrder checks that siblings keep their
// relative order from the input, even when the parent comes last.
func TestBuild_PreservesSiblingInputOrder(t *testing.T) {
	flat := []models.Category{
		cat(30, "Zeta", ptr(1)),
		cat(10, "Alpha", ptr(1)),
		cat(20, "Mid", ptr(1)),
		cat(1, "Root", nil),
	}

	forest := Build(flat)

	require.Len(t, forest, 1)
	var got []int64
	for _, c := range forest[0].Children {
		got = append(got, c.ID)
	}
	assert.Equal(t, []int64{30, 10, 20}, got)
}

func TestBuild_PromotesOrphans(t *testing.T) {
	flat := []models.Category{
		cat(1, "Root", nil),
		cat(2, "Lost", ptr(99)),
		cat(3, "Under lost", ptr(2)),
	}

	forest := Build(flat)

	require.Len(t, forest, 2)
	lost := forest[1]
	assert.Equal(t, int64(2), lost.ID)
	assert.True(t, lost.Orphan)
	assert.Equal(t, 0, lost.Level)
	require.Len(t, lost.Children, 1)
	assert.Equal(t, 1, lost.Children[0].Level)
	assert.False(t, forest[0].Orphan)
}

// TestBuild_BreaksStoredCycles feeds a corrupted set and checks the result
// is still a finite forest containing every record once.
func TestBuild_BreaksStoredCycles(t *testing.T) {
	flat := []models.Category{
		cat(1, "Root", nil),
		cat(2, "A", ptr(3)),
		cat(3, "B", ptr(2)),
		cat(4, "Below B", ptr(3)),
		cat(5, "Self", ptr(5)),
	}

	forest := Build(flat)

	assert.Equal(t, ids(flat), ids(Flatten(forest)))

	nodes := map[int64]*models.TreeNode{}
	collectNodes(forest, nodes)
	assert.True(t, nodes[2].Orphan, "first unreachable node should be promoted")
	assert.True(t, nodes[5].Orphan, "self-parented node should be promoted")
	assert.Equal(t, 1, nodes[3].Level)
	assert.Equal(t, 2, nodes[4].Level)
}

// TestBuild_RoundTripProperty: flattening the built forest reproduces the
// input set for many random acyclic sets.
func TestBuild_RoundTripProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		flat := randomForest(r, r.Intn(40))
		got := Flatten(Build(flat))
		require.Equal(t, ids(flat), ids(got), "iteration %d", i)
	}
}

// TestBuild_LevelProperty: every node's level equals its parent-hop count.
func TestBuild_LevelProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		flat := randomForest(r, r.Intn(40)+1)
		nodes := map[int64]*models.TreeNode{}
		collectNodes(Build(flat), nodes)
		for _, c := range flat {
			require.Equal(t, hopsToRoot(flat, c.ID), nodes[c.ID].Level, "iteration %d id %d", i, c.ID)
		}
	}
}

// TestBuild_DoesNotMutateInput verifies Build is a pure function of its input.
func TestBuild_DoesNotMutateInput(t *testing.T) {
	flat := []models.Category{cat(1, "Root", nil), cat(2, "Child", ptr(1))}
	before := append([]models.Category(nil), flat...)

	first := Build(flat)
	second := Build(flat)

	assert.Equal(t, before, flat)
	assert.Equal(t, Flatten(first), Flatten(second))
}

func TestFlatten_PreOrder(t *testing.T) {
	flat := []models.Category{
		cat(1, "Fiction", nil),
		cat(2, "Sci-Fi", ptr(1)),
		cat(3, "History", nil),
		cat(4, "Cyberpunk", ptr(2)),
		cat(5, "Fantasy", ptr(1)),
	}

	var got []int64
	for _, c := range Flatten(Build(flat)) {
		got = append(got, c.ID)
	}
	assert.Equal(t, []int64{1, 2, 4, 5, 3}, got)
}
