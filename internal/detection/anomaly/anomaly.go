// Package anomaly scores per-event-type feature vectors for the detection
// engine. No isolation-forest or other ML library exists anywhere in this
// module's dependency set, so scoring here is a from-scratch online z-score
// aggregate rather than a ported trained model: each feature accumulates
// running mean/variance (Welford's algorithm) as events pass through, and
// the score is the negative mean absolute z-score across the declared
// feature list, scaled so a handful of features several standard
// deviations out crosses the default -0.5 alert threshold.
package anomaly

import (
	"math"
	"sync"
)

// stats holds running mean/variance for one feature.
type stats struct {
	n    int64
	mean float64
	m2   float64
}

func (s *stats) observe(x float64) {
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (x - s.mean)
}

func (s *stats) stddev() float64 {
	if s.n < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.n-1))
}

// Model scores feature vectors for a single event type. Safe for
// concurrent use.
type Model struct {
	EventType string
	Features  []string
	Threshold float64

	mu    sync.Mutex
	stats map[string]*stats
}

// New creates a Model with empty running statistics for each feature.
func New(eventType string, features []string, threshold float64) *Model {
	st := make(map[string]*stats, len(features))
	for _, f := range features {
		st[f] = &stats{}
	}
	return &Model{EventType: eventType, Features: features, Threshold: threshold, stats: st}
}

// Score updates each feature's running statistics with values (missing
// features are treated as 0, per the declared feature-list contract) and
// returns the resulting anomaly score. 0 is typical; increasingly negative
// is increasingly anomalous. A feature with fewer than two observations so
// far contributes nothing to the score.
func (m *Model) Score(values map[string]float64) float64 {
	if len(m.Features) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	for _, feature := range m.Features {
		x := values[feature]
		st := m.stats[feature]
		st.observe(x)
		if sd := st.stddev(); sd != 0 {
			total += math.Abs((x - st.mean) / sd)
		}
	}
	return -total / float64(len(m.Features)) / 4
}
