package analytics

import (
	"context"
	"math"
)

// Noise is the DBSCAN label of points that belong to no cluster.
const Noise = -1

// earthRadiusKm is the mean Earth radius used by the haversine metric.
const earthRadiusKm = 6371.0088

// kmPerDegree is the length of one degree of latitude.
const kmPerDegree = earthRadiusKm * math.Pi / 180

// ctxCheckEvery bounds how often long loops poll the context.
const ctxCheckEvery = 1024

// DBSCAN labels points by density. A point is core when at least minSamples points,
// itself included, lie within eps of it. Clusters are numbered from 0 in the order
// their first core point appears in pts; a border point joins the first cluster that
// reaches it; everything else is Noise.
func DBSCAN(ctx context.Context, pts []Point, p DBSCANParams) ([]int, error) {
	labels := make([]int, len(pts))
	for i := range labels {
		labels[i] = Noise
	}
	if len(pts) == 0 {
		return labels, nil
	}

	dist := distanceFunc(p.Metric)
	idx := newGridIndex(pts, p.Eps, p.Metric)

	neighbours := make([][]int32, len(pts))
	core := make([]bool, len(pts))
	for i := range pts {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var nb []int32
		idx.candidates(pts[i], func(j int) {
			if dist(pts[i], pts[j]) <= p.Eps {
				nb = append(nb, int32(j))
			}
		})
		neighbours[i] = nb
		core[i] = len(nb) >= p.MinSamples
	}

	cluster := 0
	stack := make([]int32, 0, 64)
	for i := range pts {
		if labels[i] != Noise || !core[i] {
			continue
		}
		cur := int32(i)
		for {
			if labels[cur] == Noise {
				labels[cur] = cluster
				if core[cur] {
					for _, j := range neighbours[cur] {
						if labels[j] == Noise {
							stack = append(stack, j)
						}
					}
				}
			}
			if len(stack) == 0 {
				break
			}
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		cluster++
	}
	return labels, nil
}

func distanceFunc(m Metric) func(a, b Point) float64 {
	if m == MetricHaversine {
		return HaversineKm
	}
	return EuclideanDegrees
}

// EuclideanDegrees is the planar distance between two positions in degrees.
func EuclideanDegrees(a, b Point) float64 {
	return math.Hypot(a.Latitude-b.Latitude, a.Longitude-b.Longitude)
}

// HaversineKm is the great-circle distance between two positions in kilometres.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

type cellKey struct{ row, col int }

// gridIndex buckets points into cells at least eps wide so every neighbour of a point
// lies in its own or an adjacent cell.
type gridIndex struct {
	cellLat, cellLon float64
	// wrapCols is the number of longitude columns around the globe, 0 for planar grids.
	wrapCols int
	cells    map[cellKey][]int
}

func newGridIndex(pts []Point, eps float64, m Metric) *gridIndex {
	g := &gridIndex{cells: make(map[cellKey][]int)}
	if m == MetricHaversine {
		g.cellLat = eps / kmPerDegree
		maxAbsLat := 0.0
		for _, p := range pts {
			maxAbsLat = math.Max(maxAbsLat, math.Abs(p.Latitude))
		}
		reach := maxAbsLat + g.cellLat
		minWidth := 360.0
		if reach < 89 {
			minWidth = math.Min(360, 1.01*g.cellLat/math.Cos(reach*math.Pi/180))
		}
		// columns tile the globe exactly so the first and last ones are adjacent
		g.wrapCols = max(1, int(math.Floor(360/minWidth)))
		g.cellLon = 360 / float64(g.wrapCols)
	} else {
		g.cellLat, g.cellLon = eps, eps
	}
	for i, p := range pts {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *gridIndex) key(p Point) cellKey {
	row := int(math.Floor(p.Latitude / g.cellLat))
	if g.wrapCols == 0 {
		return cellKey{row: row, col: int(math.Floor(p.Longitude / g.cellLon))}
	}
	col := int(math.Floor((p.Longitude + 180) / g.cellLon))
	return cellKey{row: row, col: g.wrap(col)}
}

func (g *gridIndex) wrap(col int) int {
	col %= g.wrapCols
	if col < 0 {
		col += g.wrapCols
	}
	return col
}

// candidates calls fn for every point in the 3x3 block of cells around p, each once.
func (g *gridIndex) candidates(p Point, fn func(j int)) {
	k := g.key(p)
	for dr := -1; dr <= 1; dr++ {
		var seen [3]int
		n := 0
		for dc := -1; dc <= 1; dc++ {
			col := k.col + dc
			if g.wrapCols > 0 {
				col = g.wrap(col)
				dup := false
				for _, c := range seen[:n] {
					if c == col {
						dup = true
						break
					}
				}
				if dup {
					continue
				}
				seen[n] = col
				n++
			}
			for _, j := range g.cells[cellKey{row: k.row + dr, col: col}] {
				fn(j)
			}
		}
	}
}
