package engine

import (
	"context"

	"github.com/nathoo/voicequest/types"
)

// Run starts the session and then processes events from inbox until ctx
// is cancelled or inbox is closed. Capabilities running on other
// goroutines deliver their completions through inbox; Run is the only
// goroutine that touches the engine.
func (e *Engine) Run(ctx context.Context, inbox <-chan types.Event) error {
	if e.active == nil {
		if _, err := e.Start(ctx); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("session stopped", "reason", context.Cause(ctx))
			return ctx.Err()
		case ev, ok := <-inbox:
			if !ok {
				e.logger.Info("session inbox closed", "node", e.Path())
				return nil
			}
			e.Send(ctx, ev)
		}
	}
}
