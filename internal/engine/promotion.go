package engine

import (
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

// reuseVeto is the predicted-reuse probability above which a demotion
// candidate is kept in place despite its low access count.
const reuseVeto = 0.7

// mover decides tier moves from access-count thresholds. Promotion is
// evaluated opportunistically on access, demotion periodically via the
// sweep; the engine serializes both behind its lock so the two never
// contend for a key.
type mover struct {
	promoteThreshold int64
	demoteThreshold  int64
	predictor        types.Predictor
}

// maybePromote returns the move for an entry hit below the fast tier once
// its access count reaches the promotion threshold.
func (m *mover) maybePromote(e *types.Entry) (types.TierMove, bool) {
	target, ok := e.Tier.Faster()
	if !ok || e.AccessCount < m.promoteThreshold {
		return types.TierMove{}, false
	}
	return types.TierMove{Key: e.Key, From: e.Tier, To: target}, true
}

// maybeDemote returns the move for a cold entry on a faster tier. Entries
// the predictor expects to be reused soon stay put.
func (m *mover) maybeDemote(e *types.Entry, now time.Time) (types.TierMove, bool) {
	target, ok := e.Tier.Slower()
	if !ok || e.AccessCount > m.demoteThreshold {
		return types.TierMove{}, false
	}
	if m.predictor != nil && m.predictor.PredictReuse(e.Key, now) > reuseVeto {
		return types.TierMove{}, false
	}
	return types.TierMove{Key: e.Key, From: e.Tier, To: target}, true
}
