package metrics

// LatencyBuckets covers service round-trips from tens of milliseconds up to slow completions.
var LatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// RunDurationBuckets covers whole pipeline runs, from a short handout to a long book.
var RunDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600}
