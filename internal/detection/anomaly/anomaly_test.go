package anomaly

import "testing"

func TestScoreZeroFeaturesIsZero(t *testing.T) {
	m := New("authentication", nil, -0.5)
	if got := m.Score(map[string]float64{}); got != 0 {
		t.Errorf("Score() = %v, want 0", got)
	}
}

func TestScoreMissingFeatureTreatedAsZero(t *testing.T) {
	m := New("network", []string{"bytes_in", "bytes_out"}, -0.5)
	// Seed a tight distribution, then hit it with a zero-valued outlier for
	// the missing feature.
	for i := 0; i < 10; i++ {
		m.Score(map[string]float64{"bytes_in": 100, "bytes_out": 100})
	}
	score := m.Score(map[string]float64{"bytes_in": 100})
	if score >= 0 {
		t.Errorf("Score() = %v, want a negative score for the deviating missing feature", score)
	}
}

func TestScoreStableValuesStayNearZero(t *testing.T) {
	m := New("process", []string{"cpu_percent"}, -0.5)
	var last float64
	for i := 0; i < 20; i++ {
		last = m.Score(map[string]float64{"cpu_percent": 42})
	}
	if last < -0.1 {
		t.Errorf("Score() = %v for a constant feature, want near 0", last)
	}
}
