package engine

import (
	"testing"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

func testMover(reuse float64) *mover {
	return &mover{
		promoteThreshold: 3,
		demoteThreshold:  1,
		predictor:        &stubPredictor{reuse: reuse},
	}
}

func TestMaybePromoteAtThreshold(t *testing.T) {
	m := testMover(0)
	e := &types.Entry{Key: "k", Tier: types.TierCold, AccessCount: 3}

	move, ok := m.maybePromote(e)
	if !ok {
		t.Fatal("no promotion at the threshold")
	}
	if move.From != types.TierCold || move.To != types.TierWarm {
		t.Fatalf("move = %+v, want cold -> warm", move)
	}
}

func TestMaybePromoteBelowThreshold(t *testing.T) {
	m := testMover(0)
	e := &types.Entry{Key: "k", Tier: types.TierCold, AccessCount: 2}
	if _, ok := m.maybePromote(e); ok {
		t.Fatal("promoted below the threshold")
	}
}

func TestMaybePromoteFastTierStays(t *testing.T) {
	m := testMover(0)
	e := &types.Entry{Key: "k", Tier: types.TierFast, AccessCount: 100}
	if _, ok := m.maybePromote(e); ok {
		t.Fatal("promoted past the fast tier")
	}
}

func TestMaybeDemoteAtThreshold(t *testing.T) {
	m := testMover(0)
	e := &types.Entry{Key: "k", Tier: types.TierFast, AccessCount: 1}

	move, ok := m.maybeDemote(e, time.Now())
	if !ok {
		t.Fatal("no demotion at the threshold")
	}
	if move.From != types.TierFast || move.To != types.TierWarm {
		t.Fatalf("move = %+v, want fast -> warm", move)
	}
}

func TestMaybeDemoteAboveThreshold(t *testing.T) {
	m := testMover(0)
	e := &types.Entry{Key: "k", Tier: types.TierFast, AccessCount: 2}
	if _, ok := m.maybeDemote(e, time.Now()); ok {
		t.Fatal("demoted above the threshold")
	}
}

func TestMaybeDemoteColdTierStays(t *testing.T) {
	m := testMover(0)
	e := &types.Entry{Key: "k", Tier: types.TierCold, AccessCount: 0}
	if _, ok := m.maybeDemote(e, time.Now()); ok {
		t.Fatal("demoted past the cold tier")
	}
}

func TestMaybeDemoteVetoedByPredictor(t *testing.T) {
	m := testMover(0.9)
	e := &types.Entry{Key: "k", Tier: types.TierFast, AccessCount: 1}
	if _, ok := m.maybeDemote(e, time.Now()); ok {
		t.Fatal("demoted despite high predicted reuse")
	}
}
