package chainstore

import (
	"context"
	"fmt"
)

// initGate is a one-shot readiness latch. Construction starts background
// initialisation; every public operation awaits the gate before proceeding.
// A failed initialisation is terminal: the gate closes its done channel
// exactly once and stores the terminal error, which every subsequent call
// observes forever.
type initGate struct {
	done chan struct{}
	err  error
}

func newInitGate() *initGate {
	return &initGate{done: make(chan struct{})}
}

// start launches fn in the background and closes the gate once fn returns,
// recording any error as the terminal failure.
func (g *initGate) start(fn func() error) {
	go func() {
		err := fn()
		if err != nil {
			g.err = fmt.Errorf("%w: %v", ErrInitFailed, err)
		}
		close(g.done)
	}()
}

// await suspends until initialisation completes or ctx is cancelled. It
// returns ErrInitFailed (wrapped) if initialisation itself failed.
func (g *initGate) await(ctx context.Context) error {
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
