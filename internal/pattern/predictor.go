package pattern

import (
	"math"
	"time"
)

// HeuristicPredictor is the default reuse predictor: a plain
// frequency/recency heuristic over the tracker's patterns. It stands in for
// a trained model; anything implementing types.Predictor can replace it
// without touching the engine.
type HeuristicPredictor struct {
	tracker *Tracker
}

// NewHeuristicPredictor creates a predictor backed by the given tracker.
func NewHeuristicPredictor(tracker *Tracker) *HeuristicPredictor {
	return &HeuristicPredictor{tracker: tracker}
}

// RecordAccess is a no-op: the engine already records accesses into the
// shared tracker, so the predictor reads the same history.
func (h *HeuristicPredictor) RecordAccess(key string, at time.Time) {}

// PredictReuse estimates the probability of another access soon, in [0,1].
// Hot keys (high frequency, recent access) score near 1; an increasing
// trend nudges the score up.
func (h *HeuristicPredictor) PredictReuse(key string, now time.Time) float64 {
	p := h.tracker.Get(key)
	if p == nil {
		return 0
	}

	freq := math.Min(1, p.Frequency(now)/10)
	recency := p.Recency(now)
	score := 0.6*freq + 0.4*recency

	if p.Trend() == TrendIncreasing {
		score = math.Min(1, score*1.2)
	}
	return score
}
