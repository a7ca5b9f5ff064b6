package diarize

import (
	"math"
	"testing"
	"time"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unit returns a 2-D unit vector at the given angle in degrees.
func unit(deg float64) []float32 {
	r := deg * math.Pi / 180
	return []float32{float32(math.Cos(r)), float32(math.Sin(r))}
}

func seg(sec int, emb []float32, label string) ai.Segment {
	return ai.Segment{
		Embedding: emb,
		Label:     label,
		Start:     time.Duration(sec) * time.Second,
		End:       time.Duration(sec+1) * time.Second,
	}
}

func TestCluster_Empty(t *testing.T) {
	results := Cluster(nil, DefaultClusterThreshold, 0)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestCluster_SeparatesVoices(t *testing.T) {
	segments := []ai.Segment{
		seg(0, unit(0), ""),
		seg(1, unit(90), ""),
		seg(2, unit(5), ""),
		seg(3, unit(88), ""),
	}

	results := Cluster(segments, DefaultClusterThreshold, 0)
	require.Len(t, results, 2)

	assert.Greater(t, results[0].Embedding[0], results[0].Embedding[1], "first voice is the one heard first")
	assert.Greater(t, results[1].Embedding[1], results[1].Embedding[0])
	for _, r := range results {
		assert.InDelta(t, 1.0, math.Hypot(float64(r.Embedding[0]), float64(r.Embedding[1])), 1e-6)
		assert.Greater(t, r.Confidence, float32(0.99))
		assert.LessOrEqual(t, r.Confidence, float32(1))
	}
}

func TestCluster_OrderByFirstAppearance(t *testing.T) {
	// Out-of-order segments: the 90 degree voice starts first.
	segments := []ai.Segment{
		seg(5, unit(0), ""),
		seg(1, unit(90), ""),
	}
	results := Cluster(segments, DefaultClusterThreshold, 0)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].Embedding[1], 1e-6)
}

func TestCluster_SingleLinkageChains(t *testing.T) {
	// 0 and 60 degrees are not similar enough directly (cos 0.5) but are
	// linked through 30 degrees (cos 0.866).
	segments := []ai.Segment{
		seg(0, unit(0), ""),
		seg(1, unit(60), ""),
		seg(2, unit(30), ""),
	}
	results := Cluster(segments, DefaultClusterThreshold, 0)
	require.Len(t, results, 1)
	assert.Less(t, results[0].Confidence, float32(1))
	assert.Greater(t, results[0].Confidence, float32(0.8))
}

func TestCluster_ThresholdInclusive(t *testing.T) {
	a, b := unit(0), unit(36)
	sim := float64(dot(voice.NormalizeVector(a), voice.NormalizeVector(b)))

	assert.Len(t, Cluster([]ai.Segment{seg(0, a, ""), seg(1, b, "")}, sim, 0), 1)
	assert.Len(t, Cluster([]ai.Segment{seg(0, a, ""), seg(1, b, "")}, math.Nextafter(sim, 2), 0), 2)
}

func TestCluster_SameLabelAlwaysMerged(t *testing.T) {
	segments := []ai.Segment{
		seg(0, unit(0), "spk0"),
		seg(1, unit(90), "spk0"),
		seg(2, unit(180), "spk1"),
	}
	results := Cluster(segments, DefaultClusterThreshold, 0)
	assert.Len(t, results, 2)
}

func TestCluster_MaxSpeakers(t *testing.T) {
	segments := []ai.Segment{
		seg(0, unit(0), ""),
		seg(1, unit(50), ""),
		seg(2, unit(180), ""),
	}
	require.Len(t, Cluster(segments, DefaultClusterThreshold, 0), 3)

	results := Cluster(segments, DefaultClusterThreshold, 2)
	require.Len(t, results, 2)
	// 0 and 50 degrees are the closest pair, so they merge.
	assert.InDelta(t, math.Cos(25*math.Pi/180), results[0].Embedding[0], 1e-5)
	assert.InDelta(t, -1.0, results[1].Embedding[0], 1e-6)

	assert.Len(t, Cluster(segments, DefaultClusterThreshold, 1), 1)
}

func TestCluster_NormalizesInputs(t *testing.T) {
	segments := []ai.Segment{
		seg(0, []float32{10, 0}, ""),
		seg(1, []float32{0.1, 0}, ""),
	}
	results := Cluster(segments, DefaultClusterThreshold, 0)
	require.Len(t, results, 1)
	assert.Equal(t, []float32{1, 0}, results[0].Embedding)
	assert.InDelta(t, 1.0, results[0].Confidence, 1e-6)
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(3, 1)
	uf.union(4, 3)

	assert.Equal(t, [][]int{{0}, {1, 3, 4}, {2}}, uf.groups())
}
