package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/relembraq/relembraq/engine/core"
)

func TestProject(t *testing.T) {
	t.Run("Should reject fewer than three embeddings", func(t *testing.T) {
		_, err := Project([][]float32{{1, 2, 3}, {4, 5, 6}})

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
	})

	t.Run("Should reject embeddings with fewer than three dimensions", func(t *testing.T) {
		_, err := Project([][]float32{{1, 2}, {3, 4}, {5, 6}})
		assert.True(t, core.IsInvalidConfiguration(err))
	})

	t.Run("Should reject ragged input", func(t *testing.T) {
		_, err := Project([][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8}})
		assert.True(t, core.IsInvalidConfiguration(err))
	})

	t.Run("Should return one centered point per embedding", func(t *testing.T) {
		embeddings := [][]float32{
			{1, 0, 0, 0},
			{0, 2, 0, 0},
			{0, 0, 3, 0},
			{0, 0, 0, 4},
			{1, 1, 1, 1},
		}

		points, err := Project(embeddings)

		require.NoError(t, err)
		require.Len(t, points, len(embeddings))
		var sx, sy, sz float64
		for _, p := range points {
			sx += p.X
			sy += p.Y
			sz += p.Z
		}
		assert.InDelta(t, 0, sx, 1e-9)
		assert.InDelta(t, 0, sy, 1e-9)
		assert.InDelta(t, 0, sz, 1e-9)
	})

	t.Run("Should put the largest spread on the first axis", func(t *testing.T) {
		embeddings := [][]float32{
			{-10, 0.1, 0},
			{0, -0.1, 0.01},
			{10, 0, -0.01},
			{20, 0.2, 0},
		}

		points, err := Project(embeddings)

		require.NoError(t, err)
		spread := func(get func(Point) float64) float64 {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, p := range points {
				lo = math.Min(lo, get(p))
				hi = math.Max(hi, get(p))
			}
			return hi - lo
		}
		assert.Greater(t, spread(func(p Point) float64 { return p.X }), spread(func(p Point) float64 { return p.Y }))
		assert.InDelta(t, 30, spread(func(p Point) float64 { return p.X }), 0.5)
	})

	t.Run("Should orient the first axis along the dominant loading", func(t *testing.T) {
		embeddings := [][]float32{
			{-10, 0.1, 0},
			{0, -0.1, 0.01},
			{10, 0, -0.01},
			{20, 0.2, 0},
		}
		mirrored := make([][]float32, len(embeddings))
		for i, row := range embeddings {
			mirrored[i] = []float32{-row[0], -row[1], -row[2]}
		}

		points, err := Project(embeddings)
		require.NoError(t, err)
		flipped, err := Project(mirrored)
		require.NoError(t, err)

		assert.Greater(t, points[3].X, 0.0)
		assert.Less(t, points[0].X, 0.0)
		for i := range points {
			assert.InDelta(t, -points[i].X, flipped[i].X, 1e-9)
		}
	})
}

func TestPrincipalAxes(t *testing.T) {
	t.Run("Should make the largest loading of every axis positive", func(t *testing.T) {
		data := mat.NewDense(5, 4, []float64{
			-3, 1, 0, 2,
			1, -2, 1, 0,
			2, 0, -1, 1,
			0, 3, 2, -2,
			-1, -1, 1, 0,
		})

		axes, err := principalAxes(data)

		require.NoError(t, err)
		rows, cols := axes.Dims()
		assert.Equal(t, 4, rows)
		assert.Equal(t, Components, cols)
		col := make([]float64, rows)
		for j := range cols {
			mat.Col(col, j, axes)
			largest := floats.MaxIdx(absAll(col))
			assert.Positive(t, col[largest], "axis %d", j)
		}
	})
}
