package engine

import (
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

// realClock backs the engine with the time package. Tests substitute a
// manual clock so background ticks can be stepped deterministically.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) types.Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (rt *realTicker) Chan() <-chan time.Time { return rt.t.C }

func (rt *realTicker) Stop() { rt.t.Stop() }
