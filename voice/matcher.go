// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package voice

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

const (
	// MatchThreshold is the default minimum cosine similarity for an
	// embedding to be attributed to an existing profile.
	MatchThreshold = 0.75

	// TieEpsilon is the default similarity difference below which two
	// profiles are considered tied.
	TieEpsilon = 1e-9
)

// ErrInvalidThreshold is returned for thresholds outside [-1, 1].
var ErrInvalidThreshold = errors.New("match threshold must be between -1 and 1")

// Matcher resolves embeddings to voice profiles by cosine similarity
// against profile centroids.
type Matcher struct {
	threshold float64
	epsilon   float64
}

var _ storage.VoiceMatcher = (*Matcher)(nil)

// Option configures a Matcher.
type Option func(*Matcher) error

// WithThreshold sets the match threshold. Similarities greater than or
// equal to the threshold match.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		m.threshold = threshold
		return nil
	}
}

// WithTieEpsilon sets the tie tolerance.
func WithTieEpsilon(epsilon float64) Option {
	return func(m *Matcher) error {
		if epsilon < 0 {
			epsilon = 0
		}
		m.epsilon = epsilon
		return nil
	}
}

// NewMatcher creates a Matcher with MatchThreshold and TieEpsilon.
func NewMatcher(opts ...Option) (*Matcher, error) {
	m := &Matcher{
		threshold: MatchThreshold,
		epsilon:   TieEpsilon,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Best returns the profile whose centroid is most similar to embedding,
// and that similarity. Profiles must be ordered by ID; a later profile only
// replaces the current best when it is more similar by more than epsilon,
// so ties go to the lower ID. Returns nil when profiles is empty.
func (m *Matcher) Best(profiles []*core.VoiceProfile, embedding []float32) (*core.VoiceProfile, float64) {
	var best *core.VoiceProfile
	bestSim := 0.0
	for _, p := range profiles {
		sim := CosineSimilarity(embedding, p.Centroid)
		if best == nil || sim > bestSim+m.epsilon {
			best = p
			bestSim = sim
		}
	}
	return best, bestSim
}

// Matches reports whether a similarity clears the threshold.
func (m *Matcher) Matches(similarity float64) bool {
	return similarity >= m.threshold
}

// Begin starts a match session for one recording.
func (m *Matcher) Begin(tx storage.ProfileTx, now time.Time) storage.MatchSession {
	return &Session{
		matcher: m,
		tx:      tx,
		now:     now,
		touched: make(map[core.ID]bool),
	}
}

// Session resolves the voices of a single recording inside one transaction.
type Session struct {
	matcher  *Matcher
	tx       storage.ProfileTx
	now      time.Time
	profiles []*core.VoiceProfile
	loaded   bool
	touched  map[core.ID]bool
}

// Resolve matches embedding against the known profiles. On a match the
// profile centroid becomes the running average weighted by the profile's
// prior recording count and LastSeen advances; TotalRecordings grows once per
// session. Otherwise a new profile is seeded from embedding.
//
// The embedding must have the same dimension as the stored centroids.
func (s *Session) Resolve(embedding []float32) (core.MatchDecision, error) {
	if err := core.ValidateEmbedding(embedding, 0); err != nil {
		return core.MatchDecision{}, err
	}

	if !s.loaded {
		profiles, err := s.tx.Profiles()
		if err != nil {
			return core.MatchDecision{}, err
		}
		s.profiles = profiles
		s.loaded = true
	}
	if len(s.profiles) > 0 {
		if err := core.ValidateEmbedding(embedding, len(s.profiles[0].Centroid)); err != nil {
			return core.MatchDecision{}, err
		}
	}

	best, sim := s.matcher.Best(s.profiles, embedding)
	if best != nil && s.matcher.Matches(sim) {
		best.Centroid = RunningAverage(best.Centroid, embedding, best.TotalRecordings)
		if !s.touched[best.Id] {
			best.TotalRecordings++
			s.touched[best.Id] = true
		}
		best.LastSeen = s.now
		if err := s.tx.SaveProfile(best); err != nil {
			return core.MatchDecision{}, err
		}
		return core.MatchDecision{
			ProfileId:  best.Id,
			Name:       best.Name,
			Confidence: confidencePercent(sim),
			Similarity: float32(sim),
		}, nil
	}

	profile := &core.VoiceProfile{
		Centroid:        append([]float32(nil), embedding...),
		TotalRecordings: 1,
		FirstSeen:       s.now,
		LastSeen:        s.now,
	}
	if err := s.tx.CreateProfile(profile); err != nil {
		return core.MatchDecision{}, err
	}
	s.profiles = append(s.profiles, profile)
	s.touched[profile.Id] = true

	return core.MatchDecision{
		ProfileId:  profile.Id,
		Name:       profile.Name,
		Confidence: 100,
		Similarity: float32(sim),
		IsNew:      true,
	}, nil
}

func confidencePercent(sim float64) float32 {
	pct := sim * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return float32(pct)
}
