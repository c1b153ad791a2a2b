package analytics

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blob(center Point, n int) []Point {
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		dx := float64(i%5-2) * 0.01
		dy := float64(i/5-2) * 0.01
		out = append(out, Point{center.Latitude + dx, center.Longitude + dy})
	}
	return out
}

func TestKMeans_SeparatedBlobs(t *testing.T) {
	var pts []Point
	pts = append(pts, blob(Point{24, 70}, 25)...)
	pts = append(pts, blob(Point{36, 70}, 25)...)
	pts = append(pts, blob(Point{30, 85}, 25)...)

	centers, err := KMeans(context.Background(), pts, KMeansParams{K: 3, Seed: 42, NInit: 1, MaxIter: 300})
	require.NoError(t, err)
	require.Len(t, centers, 3)

	for i, c := range centers {
		assert.Equal(t, i, c.Cluster)
	}
	got := make([]Point, len(centers))
	for i, c := range centers {
		got[i] = Point{c.Latitude, c.Longitude}
	}
	sort.Slice(got, func(i, j int) bool { return got[i].Latitude < got[j].Latitude })
	want := []Point{{24, 70}, {30, 85}, {36, 70}}
	for i := range want {
		assert.InDelta(t, want[i].Latitude, got[i].Latitude, 1e-9)
		assert.InDelta(t, want[i].Longitude, got[i].Longitude, 1e-9)
	}
}

func TestKMeans_Deterministic(t *testing.T) {
	pts := append(blob(Point{1, 1}, 25), blob(Point{5, 5}, 25)...)
	p := KMeansParams{K: 4, Seed: 42, NInit: 3, MaxIter: 100}
	a, err := KMeans(context.Background(), pts, p)
	require.NoError(t, err)
	b, err := KMeans(context.Background(), pts, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKMeans_TooFewPoints(t *testing.T) {
	centers, err := KMeans(context.Background(), []Point{{1, 1}, {2, 2}}, KMeansParams{K: 3, Seed: 1, NInit: 1, MaxIter: 10})
	require.NoError(t, err)
	assert.Nil(t, centers)
}

func TestKMeans_ExactlyK(t *testing.T) {
	pts := []Point{{1, 1}, {2, 2}, {3, 3}}
	centers, err := KMeans(context.Background(), pts, KMeansParams{K: 3, Seed: 1, NInit: 1, MaxIter: 10})
	require.NoError(t, err)
	require.Len(t, centers, 3)
	got := map[Point]bool{}
	for _, c := range centers {
		got[Point{c.Latitude, c.Longitude}] = true
	}
	for _, p := range pts {
		assert.True(t, got[p], "center at %v", p)
	}
}

func TestKMeans_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := KMeans(ctx, blob(Point{0, 0}, 25), KMeansParams{K: 2, Seed: 1, NInit: 1, MaxIter: 10})
	assert.ErrorIs(t, err, context.Canceled)
}
