package engine

import (
	"context"

	"github.com/nathoo/voicequest/types"
)

// Speech is the speech output and input capability. Each call starts the
// operation and returns; completion arrives later as an event sent to the
// engine (SPEAK_COMPLETE, RECOGNISED, ASR_NOINPUT or a *_FAILED event).
// An error return means the operation could not start.
type Speech interface {
	Speak(ctx context.Context, text string) error
	SpeakMarkup(ctx context.Context, markup string) error
	Listen(ctx context.Context) error
}

// Presenter consumes media for display. The engine never reads it back.
type Presenter interface {
	Present(ctx context.Context, m types.Media)
	StopMedia(ctx context.Context)
}
