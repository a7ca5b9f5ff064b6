package voice

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/poiesic/vocald/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryProfileTx is an in-memory storage.ProfileTx.
type memoryProfileTx struct {
	profiles map[core.ID]*core.VoiceProfile
	nextID   core.ID
	saves    int
	failSave error
}

func newMemoryProfileTx(profiles ...*core.VoiceProfile) *memoryProfileTx {
	tx := &memoryProfileTx{profiles: make(map[core.ID]*core.VoiceProfile), nextID: 1}
	for _, p := range profiles {
		tx.profiles[p.Id] = p
		if p.Id >= tx.nextID {
			tx.nextID = p.Id + 1
		}
	}
	return tx
}

func (m *memoryProfileTx) Profiles() ([]*core.VoiceProfile, error) {
	var out []*core.VoiceProfile
	for id := core.ID(1); id < m.nextID; id++ {
		if p, ok := m.profiles[id]; ok {
			cp := *p
			cp.Centroid = append([]float32(nil), p.Centroid...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryProfileTx) CreateProfile(p *core.VoiceProfile) error {
	p.Id = m.nextID
	m.nextID++
	if p.Name == "" {
		p.Name = fmt.Sprintf("Speaker %d", p.Id)
	}
	cp := *p
	m.profiles[p.Id] = &cp
	return nil
}

func (m *memoryProfileTx) SaveProfile(p *core.VoiceProfile) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	cp := *p
	m.profiles[p.Id] = &cp
	return nil
}

func newTestMatcher(t *testing.T, opts ...Option) *Matcher {
	t.Helper()
	m, err := NewMatcher(opts...)
	require.NoError(t, err)
	return m
}

// unit returns a 2-D unit vector at the given angle in degrees.
func unit(deg float64) []float32 {
	r := deg * math.Pi / 180
	return []float32{float32(math.Cos(r)), float32(math.Sin(r))}
}

func TestNewMatcher(t *testing.T) {
	m := newTestMatcher(t)
	assert.Equal(t, MatchThreshold, m.Threshold())

	m = newTestMatcher(t, WithThreshold(0.9))
	assert.Equal(t, 0.9, m.Threshold())

	_, err := NewMatcher(WithThreshold(1.5))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestSession_FirstEmbeddingCreatesProfile(t *testing.T) {
	m := newTestMatcher(t)
	tx := newMemoryProfileTx()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	decision, err := m.Begin(tx, now).Resolve([]float32{1, 0})
	require.NoError(t, err)

	assert.True(t, decision.IsNew)
	assert.Equal(t, core.ID(1), decision.ProfileId)
	assert.Equal(t, float32(100), decision.Confidence)
	assert.Equal(t, "Speaker 1", decision.Name)

	p := tx.profiles[1]
	require.NotNil(t, p)
	assert.Equal(t, 1, p.TotalRecordings)
	assert.Equal(t, []float32{1, 0}, p.Centroid)
	assert.Equal(t, now, p.FirstSeen)
	assert.Equal(t, now, p.LastSeen)
}

func TestSession_MatchUpdatesCentroid(t *testing.T) {
	m := newTestMatcher(t)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tx := newMemoryProfileTx(&core.VoiceProfile{
		Id: 1, Name: "Alice", Centroid: []float32{1, 0}, TotalRecordings: 3, FirstSeen: first, LastSeen: first,
	})
	now := first.Add(24 * time.Hour)

	decision, err := m.Begin(tx, now).Resolve(unit(30)) // cos 30° ≈ 0.866
	require.NoError(t, err)

	assert.False(t, decision.IsNew)
	assert.Equal(t, core.ID(1), decision.ProfileId)
	assert.Equal(t, "Alice", decision.Name)
	assert.InDelta(t, 86.6, decision.Confidence, 0.1)

	p := tx.profiles[1]
	assert.Equal(t, 4, p.TotalRecordings)
	assert.Equal(t, now, p.LastSeen)
	assert.Equal(t, first, p.FirstSeen)

	e := unit(30)
	assert.InDelta(t, (1*3+float64(e[0]))/4, p.Centroid[0], 1e-6)
	assert.InDelta(t, (0*3+float64(e[1]))/4, p.Centroid[1], 1e-6)
}

func TestSession_BelowThresholdCreatesProfile(t *testing.T) {
	m := newTestMatcher(t)
	tx := newMemoryProfileTx(&core.VoiceProfile{Id: 1, Name: "Alice", Centroid: []float32{1, 0}, TotalRecordings: 1})

	decision, err := m.Begin(tx, time.Now()).Resolve(unit(60)) // cos 60° = 0.5
	require.NoError(t, err)

	assert.True(t, decision.IsNew)
	assert.Equal(t, core.ID(2), decision.ProfileId)
	assert.Equal(t, 1, tx.profiles[1].TotalRecordings, "unmatched profile untouched")
	assert.Len(t, tx.profiles, 2)
}

func TestSession_ThresholdBoundaryIsInclusive(t *testing.T) {
	// Use the exact similarity of the query as the threshold.
	query := unit(40)
	sim := CosineSimilarity(query, []float32{1, 0})

	m := newTestMatcher(t, WithThreshold(sim))
	tx := newMemoryProfileTx(&core.VoiceProfile{Id: 1, Centroid: []float32{1, 0}, TotalRecordings: 1})
	decision, err := m.Begin(tx, time.Now()).Resolve(query)
	require.NoError(t, err)
	assert.False(t, decision.IsNew, "similarity equal to threshold must match")

	m = newTestMatcher(t, WithThreshold(math.Nextafter(sim, 2)))
	tx = newMemoryProfileTx(&core.VoiceProfile{Id: 1, Centroid: []float32{1, 0}, TotalRecordings: 1})
	decision, err = m.Begin(tx, time.Now()).Resolve(query)
	require.NoError(t, err)
	assert.True(t, decision.IsNew, "similarity just below threshold must not match")
}

func TestMatcher_BestPicksHighestSimilarity(t *testing.T) {
	m := newTestMatcher(t)
	profiles := []*core.VoiceProfile{
		{Id: 1, Centroid: unit(20)},
		{Id: 2, Centroid: unit(5)},
		{Id: 3, Centroid: unit(-10)},
	}

	best, sim := m.Best(profiles, unit(0))
	require.NotNil(t, best)
	assert.Equal(t, core.ID(2), best.Id)
	assert.InDelta(t, math.Cos(5*math.Pi/180), sim, 1e-6)
}

func TestMatcher_TiesResolveToLowerID(t *testing.T) {
	m := newTestMatcher(t)
	profiles := []*core.VoiceProfile{
		{Id: 4, Centroid: unit(10)},
		{Id: 9, Centroid: unit(-10)},
	}

	best, _ := m.Best(profiles, unit(0))
	require.NotNil(t, best)
	assert.Equal(t, core.ID(4), best.Id)
}

func TestMatcher_TieEpsilon(t *testing.T) {
	profiles := []*core.VoiceProfile{
		{Id: 4, Centroid: unit(10)},
		{Id: 9, Centroid: unit(9)},
	}

	best, _ := newTestMatcher(t).Best(profiles, unit(0))
	require.NotNil(t, best)
	assert.Equal(t, core.ID(9), best.Id)

	best, _ = newTestMatcher(t, WithTieEpsilon(0.01)).Best(profiles, unit(0))
	require.NotNil(t, best)
	assert.Equal(t, core.ID(4), best.Id, "near-equal similarities keep the lower ID")
}

func TestMatcher_Monotonic(t *testing.T) {
	m := newTestMatcher(t)
	// Whatever the order, the more similar profile always wins.
	for _, order := range [][]core.ID{{1, 2}, {2, 1}} {
		byID := map[core.ID]*core.VoiceProfile{
			1: {Id: 1, Centroid: unit(15)},
			2: {Id: 2, Centroid: unit(12)},
		}
		var profiles []*core.VoiceProfile
		for _, id := range order {
			profiles = append(profiles, byID[id])
		}
		best, _ := m.Best(profiles, unit(0))
		assert.Equal(t, core.ID(2), best.Id)
	}
}

func TestMatcher_BestEmpty(t *testing.T) {
	m := newTestMatcher(t)
	best, _ := m.Best(nil, []float32{1, 0})
	assert.Nil(t, best)
}

func TestSession_CentroidAfterNMatches(t *testing.T) {
	m := newTestMatcher(t, WithThreshold(0.5))
	tx := newMemoryProfileTx()

	embeddings := [][]float32{unit(0), unit(10), unit(-8), unit(4), unit(15)}
	for _, e := range embeddings {
		// One session per recording
		_, err := m.Begin(tx, time.Now()).Resolve(e)
		require.NoError(t, err)
	}

	require.Len(t, tx.profiles, 1)
	p := tx.profiles[1]
	assert.Equal(t, len(embeddings), p.TotalRecordings)

	want := Mean(embeddings)
	for i := range want {
		assert.InDelta(t, want[i], p.Centroid[i], 1e-6)
	}
}

func TestSession_TotalRecordingsOncePerSession(t *testing.T) {
	m := newTestMatcher(t)
	tx := newMemoryProfileTx(&core.VoiceProfile{Id: 1, Centroid: []float32{1, 0}, TotalRecordings: 2})

	session := m.Begin(tx, time.Now())
	_, err := session.Resolve(unit(5))
	require.NoError(t, err)
	_, err = session.Resolve(unit(-5))
	require.NoError(t, err)

	assert.Equal(t, 3, tx.profiles[1].TotalRecordings)
}

func TestSession_NewProfileVisibleWithinSession(t *testing.T) {
	m := newTestMatcher(t)
	tx := newMemoryProfileTx()
	session := m.Begin(tx, time.Now())

	first, err := session.Resolve(unit(0))
	require.NoError(t, err)
	second, err := session.Resolve(unit(3))
	require.NoError(t, err)

	assert.True(t, first.IsNew)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.ProfileId, second.ProfileId)
	assert.Equal(t, 1, tx.profiles[first.ProfileId].TotalRecordings)
}

func TestSession_InvalidEmbedding(t *testing.T) {
	m := newTestMatcher(t)
	stored := &core.VoiceProfile{Id: 1, Name: "Speaker 1", Centroid: []float32{1, 0}, TotalRecordings: 1}

	tests := []struct {
		name      string
		profiles  []*core.VoiceProfile
		embedding []float32
	}{
		{"empty", nil, nil},
		{"zero vector", nil, []float32{0, 0}},
		{"zero vector with profiles", []*core.VoiceProfile{stored}, []float32{0, 0}},
		{"dimension differs from centroids", []*core.VoiceProfile{stored}, []float32{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newMemoryProfileTx(tt.profiles...)
			_, err := m.Begin(tx, time.Now()).Resolve(tt.embedding)
			assert.ErrorIs(t, err, core.ErrInvalidEmbedding)
			assert.Zero(t, tx.saves)
			assert.Len(t, tx.profiles, len(tt.profiles), "no profile may be created")
		})
	}
}

func TestSession_SaveError(t *testing.T) {
	m := newTestMatcher(t)
	tx := newMemoryProfileTx(&core.VoiceProfile{Id: 1, Centroid: []float32{1, 0}, TotalRecordings: 1})
	tx.failSave = errors.New("disk full")

	_, err := m.Begin(tx, time.Now()).Resolve([]float32{1, 0})
	assert.EqualError(t, err, "disk full")
}

func TestConfidencePercent(t *testing.T) {
	assert.Equal(t, float32(0), confidencePercent(-0.3))
	assert.Equal(t, float32(100), confidencePercent(1.0000001))
	assert.InDelta(t, 80, confidencePercent(0.8), 1e-4)
}
