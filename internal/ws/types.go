package ws

import (
	"context"

	"github.com/saker-ai/voice-relay/internal/pipeline"
)

// Mode selects how much a connection hears about a message in flight.
type Mode string

const (
	// ModeBasic sends only the final translation or error frame.
	ModeBasic Mode = "basic"
	// ModeStream also sends progress frames ahead of the final frame.
	ModeStream Mode = "stream"
)

// Runner processes one inbound frame to completion.
type Runner interface {
	Run(ctx context.Context, raw []byte, notify pipeline.Notify) pipeline.Result
}
