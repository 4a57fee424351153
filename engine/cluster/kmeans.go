package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// kmeansResult is one clustering of the input rows.
type kmeansResult struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// kmeans runs k-means++ seeded Lloyd iterations restarts times and keeps the
// lowest inertia. All restarts draw from the same random stream, so a seed
// fully determines the result.
func kmeans(points [][]float64, k, maxIter, restarts int, seed uint64) kmeansResult {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	if restarts < 1 {
		restarts = 1
	}
	best := kmeansResult{inertia: math.Inf(1)}
	for range restarts {
		run := lloyd(points, initPlusPlus(points, k, rng), maxIter)
		if run.inertia < best.inertia {
			best = run
		}
	}
	return best
}

// initPlusPlus picks k starting centroids, each new one with probability
// proportional to its squared distance from the closest already chosen.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneRow(points[rng.IntN(n)]))
	dist := make([]float64, n)
	for i := range points {
		dist[i] = floats.Distance(points[i], centroids[0], 2)
		dist[i] *= dist[i]
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			next = -1
			for i, d := range dist {
				if d <= 0 {
					continue
				}
				acc += d
				next = i
				if acc >= target {
					break
				}
			}
		} else {
			next = rng.IntN(n)
		}
		c := cloneRow(points[next])
		centroids = append(centroids, c)
		for i := range points {
			d := squaredDistance(points[i], c)
			if d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int) kmeansResult {
	n, k := len(points), len(centroids)
	dim := len(points[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	if maxIter < 1 {
		maxIter = 1
	}
	for range maxIter {
		if !assign(points, centroids, labels) {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// empty cluster keeps its previous centroid
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	// when iterations run out the last update may have moved centroids away
	// from their members, so inertia is measured after a final assignment
	assign(points, centroids, labels)
	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[labels[i]])
	}
	return kmeansResult{labels: labels, centroids: centroids, inertia: inertia}
}

// assign moves every point to its nearest centroid and reports whether any
// label changed.
func assign(points [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		if l := nearest(p, centroids); l != labels[i] {
			labels[i] = l
			changed = true
		}
	}
	return changed
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
