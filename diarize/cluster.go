package diarize

import (
	"math"
	"sort"
	"time"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/voice"
)

// Cluster groups segments into voices. Segments sharing a non-empty label
// are always merged; otherwise segments are merged by single linkage when
// their cosine similarity reaches threshold. When maxSpeakers > 0 the two
// clusters with the most similar centroids are merged until the cap holds.
// Results are ordered by each voice's earliest segment.
func Cluster(segments []ai.Segment, threshold float64, maxSpeakers int) []core.SpeakerResult {
	if len(segments) == 0 {
		return []core.SpeakerResult{}
	}

	normalized := make([][]float32, len(segments))
	for i, s := range segments {
		normalized[i] = voice.NormalizeVector(s.Embedding)
	}

	uf := newUnionFind(len(segments))
	byLabel := make(map[string]int)
	for i, s := range segments {
		if s.Label == "" {
			continue
		}
		if first, ok := byLabel[s.Label]; ok {
			uf.union(first, i)
		} else {
			byLabel[s.Label] = i
		}
	}
	for i := range normalized {
		for j := i + 1; j < len(normalized); j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			if float64(dot(normalized[i], normalized[j])) >= threshold {
				uf.union(i, j)
			}
		}
	}

	clusters := uf.groups()
	if maxSpeakers > 0 {
		clusters = capClusters(clusters, normalized, maxSpeakers)
	}

	sort.SliceStable(clusters, func(a, b int) bool {
		sa, ia := firstAppearance(segments, clusters[a])
		sb, ib := firstAppearance(segments, clusters[b])
		if sa != sb {
			return sa < sb
		}
		return ia < ib
	})

	results := make([]core.SpeakerResult, 0, len(clusters))
	for _, members := range clusters {
		centroid := clusterCentroid(normalized, members)
		var cohesion float64
		for _, m := range members {
			cohesion += float64(dot(normalized[m], centroid))
		}
		cohesion /= float64(len(members))
		results = append(results, core.SpeakerResult{
			Embedding:  centroid,
			Confidence: float32(math.Max(0, math.Min(1, cohesion))),
		})
	}
	return results
}

// capClusters merges the pair of clusters with the most similar centroids
// until at most max remain.
func capClusters(clusters [][]int, normalized [][]float32, max int) [][]int {
	for len(clusters) > max {
		centroids := make([][]float32, len(clusters))
		for i, c := range clusters {
			centroids[i] = clusterCentroid(normalized, c)
		}

		bi, bj, best := 0, 1, math.Inf(-1)
		for i := range centroids {
			for j := i + 1; j < len(centroids); j++ {
				if sim := float64(dot(centroids[i], centroids[j])); sim > best {
					bi, bj, best = i, j, sim
				}
			}
		}

		merged := append(append([]int{}, clusters[bi]...), clusters[bj]...)
		sort.Ints(merged)
		next := make([][]int, 0, len(clusters)-1)
		for i, c := range clusters {
			if i != bi && i != bj {
				next = append(next, c)
			}
		}
		clusters = append(next, merged)
	}
	return clusters
}

// clusterCentroid is the normalized mean of the member embeddings.
func clusterCentroid(normalized [][]float32, members []int) []float32 {
	vecs := make([][]float32, len(members))
	for i, m := range members {
		vecs[i] = normalized[m]
	}
	return voice.NormalizeVector(voice.Mean(vecs))
}

// firstAppearance returns the earliest member segment by start time, then index.
func firstAppearance(segments []ai.Segment, members []int) (time.Duration, int) {
	start, idx := segments[members[0]].Start, members[0]
	for _, m := range members[1:] {
		s := segments[m].Start
		if s < start || (s == start && m < idx) {
			start, idx = s, m
		}
	}
	return start, idx
}

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the smaller index as root.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

// groups returns the member indexes of each set, ordered by root.
func (u *unionFind) groups() [][]int {
	index := make(map[int]int)
	var out [][]int
	for i := range u.parent {
		r := u.find(i)
		g, ok := index[r]
		if !ok {
			g = len(out)
			index[r] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], i)
	}
	return out
}
