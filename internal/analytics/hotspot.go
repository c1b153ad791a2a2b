package analytics

import (
	"sort"

	"geointel/internal/event/domain"
)

// Hotspot summarises one DBSCAN cluster.
type Hotspot struct {
	Cluster   int     `json:"cluster"`
	Count     int     `json:"count"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TopGroup  string  `json:"top_group"`
}

// SummarizeClusters builds one Hotspot per non-noise label, ordered by count descending
// then cluster id. labels must be aligned with events.
func SummarizeClusters(events []domain.Event, labels []int) []Hotspot {
	type acc struct {
		count    int
		lat, lon float64
		groups   map[string]int
	}
	byCluster := make(map[int]*acc)
	for i, lab := range labels {
		if lab == Noise {
			continue
		}
		a, ok := byCluster[lab]
		if !ok {
			a = &acc{groups: make(map[string]int)}
			byCluster[lab] = a
		}
		a.count++
		a.lat += events[i].Latitude
		a.lon += events[i].Longitude
		a.groups[events[i].Group]++
	}

	out := make([]Hotspot, 0, len(byCluster))
	for lab, a := range byCluster {
		n := float64(a.count)
		out = append(out, Hotspot{
			Cluster:   lab,
			Count:     a.count,
			Latitude:  a.lat / n,
			Longitude: a.lon / n,
			TopGroup:  argmax(a.groups),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cluster < out[j].Cluster
	})
	return out
}

// CountNoise returns how many labels are Noise.
func CountNoise(labels []int) int {
	n := 0
	for _, l := range labels {
		if l == Noise {
			n++
		}
	}
	return n
}

// argmax returns the key with the highest count, ties broken by the smaller key.
func argmax(counts map[string]int) string {
	best, bestN := "", -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}
