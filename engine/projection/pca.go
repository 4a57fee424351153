package projection

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/relembraq/relembraq/engine/core"
)

const Components = 3

var errDecomposition = errors.New("principal component decomposition did not converge")

// Point is one embedding projected onto the first three principal directions.
type Point struct {
	X, Y, Z float64
}

// Project fits PCA on all embeddings and returns their coordinates in the
// first three components, in input order.
func Project(embeddings [][]float32) ([]Point, error) {
	n := len(embeddings)
	if n < Components {
		return nil, core.InvalidConfiguration(
			"embeddings",
			"projection needs at least %d embeddings, got %d", Components, n,
		)
	}
	dim := len(embeddings[0])
	if dim < Components {
		return nil, core.InvalidConfiguration(
			"embeddings",
			"projection needs dimension of at least %d, got %d", Components, dim,
		)
	}
	data := mat.NewDense(n, dim, nil)
	for i, row := range embeddings {
		if len(row) != dim {
			return nil, core.InvalidConfiguration(
				"embeddings",
				"embedding %d has dimension %d, expected %d", i, len(row), dim,
			)
		}
		for j, v := range row {
			data.Set(i, j, float64(v))
		}
	}

	axes, err := principalAxes(data)
	if err != nil {
		return nil, err
	}
	var projected mat.Dense
	projected.Mul(center(data), axes)

	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: projected.At(i, 0), Y: projected.At(i, 1), Z: projected.At(i, 2)}
	}
	return points, nil
}

// principalAxes returns the first three principal directions as columns. Each
// column is flipped so its largest-magnitude loading is positive, since the
// decomposition leaves the sign arbitrary.
func principalAxes(data *mat.Dense) (*mat.Dense, error) {
	var pc stat.PC
	if !pc.PrincipalComponents(data, nil) {
		return nil, errDecomposition
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	dim, _ := vecs.Dims()
	axes := mat.DenseCopyOf(vecs.Slice(0, dim, 0, Components))
	col := make([]float64, dim)
	for j := range Components {
		mat.Col(col, j, axes)
		if col[floats.MaxIdx(absAll(col))] >= 0 {
			continue
		}
		for i := range dim {
			axes.Set(i, j, -col[i])
		}
	}
	return axes, nil
}

func absAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}

func center(data *mat.Dense) *mat.Dense {
	n, dim := data.Dims()
	out := mat.NewDense(n, dim, nil)
	col := make([]float64, n)
	for j := range dim {
		mat.Col(col, j, data)
		mean := stat.Mean(col, nil)
		for i := range n {
			out.Set(i, j, col[i]-mean)
		}
	}
	return out
}
