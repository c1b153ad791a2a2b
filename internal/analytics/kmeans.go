package analytics

import (
	"context"
	"math"
	"math/rand/v2"
)

// Center is a KMeans centroid.
type Center struct {
	Cluster   int     `json:"cluster"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// kmeansTol is the convergence threshold relative to the mean per-axis variance.
const kmeansTol = 1e-4

// KMeans fits p.K centroids to pts with k-means++ seeding and Lloyd iterations, keeping
// the run with the lowest inertia out of p.NInit. It returns nil when there are fewer
// points than clusters. Results are deterministic for a given p.Seed.
func KMeans(ctx context.Context, pts []Point, p KMeansParams) ([]Center, error) {
	if p.K <= 0 || len(pts) < p.K {
		return nil, nil
	}
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed+1))
	tol := kmeansTol * meanVariance(pts)

	var best []Point
	bestInertia := math.Inf(1)
	for run := 0; run < max(1, p.NInit); run++ {
		centers := seedPlusPlus(pts, p.K, rng)
		centers, inertia, err := lloyd(ctx, pts, centers, p.MaxIter, tol)
		if err != nil {
			return nil, err
		}
		if inertia < bestInertia {
			best, bestInertia = centers, inertia
		}
	}

	out := make([]Center, len(best))
	for i, c := range best {
		out[i] = Center{Cluster: i, Latitude: c.Latitude, Longitude: c.Longitude}
	}
	return out, nil
}

func sqDist(a, b Point) float64 {
	dl := a.Latitude - b.Latitude
	dn := a.Longitude - b.Longitude
	return dl*dl + dn*dn
}

func meanVariance(pts []Point) float64 {
	m := Point{}
	for _, p := range pts {
		m.Latitude += p.Latitude
		m.Longitude += p.Longitude
	}
	n := float64(len(pts))
	m.Latitude /= n
	m.Longitude /= n
	var v float64
	for _, p := range pts {
		v += sqDist(p, m)
	}
	return v / n / 2
}

// seedPlusPlus is greedy k-means++: each new center is the best of several D²-weighted
// candidates by resulting potential.
func seedPlusPlus(pts []Point, k int, rng *rand.Rand) []Point {
	trials := 2 + int(math.Log(float64(k)))
	centers := make([]Point, 0, k)
	centers = append(centers, pts[rng.IntN(len(pts))])

	closest := make([]float64, len(pts))
	potential := 0.0
	for i, p := range pts {
		closest[i] = sqDist(p, centers[0])
		potential += closest[i]
	}

	for len(centers) < k {
		bestIdx, bestPot := -1, math.Inf(1)
		var bestClosest []float64
		for t := 0; t < trials; t++ {
			idx := sampleWeighted(closest, potential, rng)
			cand := pts[idx]
			next := make([]float64, len(pts))
			pot := 0.0
			for i, p := range pts {
				next[i] = math.Min(closest[i], sqDist(p, cand))
				pot += next[i]
			}
			if pot < bestPot {
				bestIdx, bestPot, bestClosest = idx, pot, next
			}
		}
		centers = append(centers, pts[bestIdx])
		closest, potential = bestClosest, bestPot
	}
	return centers
}

func sampleWeighted(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

func lloyd(ctx context.Context, pts []Point, centers []Point, maxIter int, tol float64) ([]Point, float64, error) {
	k := len(centers)
	assign := make([]int, len(pts))
	sums := make([]Point, k)
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		for c := range sums {
			sums[c] = Point{}
			counts[c] = 0
		}
		for i, p := range pts {
			c := nearest(p, centers)
			assign[i] = c
			sums[c].Latitude += p.Latitude
			sums[c].Longitude += p.Longitude
			counts[c]++
		}

		next := make([]Point, k)
		for c := range next {
			if counts[c] == 0 {
				next[c] = pts[farthest(pts, centers, assign)]
				continue
			}
			n := float64(counts[c])
			next[c] = Point{Latitude: sums[c].Latitude / n, Longitude: sums[c].Longitude / n}
		}

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	inertia := 0.0
	for _, p := range pts {
		inertia += sqDist(p, centers[nearest(p, centers)])
	}
	return centers, inertia, nil
}

func nearest(p Point, centers []Point) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centers {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// farthest returns the point furthest from its assigned center, used to re-seed an
// empty cluster.
func farthest(pts []Point, centers []Point, assign []int) int {
	best, bestD := 0, -1.0
	for i, p := range pts {
		if d := sqDist(p, centers[assign[i]]); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}
