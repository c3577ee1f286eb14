package voice

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// historyWindow bounds how many prior turns are replayed to the responder.
// Older context is dropped for latency.
const historyWindow = 4

// FallbackUtterance is spoken whenever response generation fails. A single
// generation failure never aborts the call.
const FallbackUtterance = "I apologize, I'm having trouble processing that. Could you please repeat?"

// TurnProcessor produces the assistant's reply for one caller utterance.
// It is stateless: appending the finished turn to the session history is
// the orchestrator's job.
type TurnProcessor struct {
	Responder Responder
	Timeout   time.Duration
	Logger    *slog.Logger
}

func (p TurnProcessor) Process(ctx context.Context, systemPrompt string, prior []Turn, utterance string) string {
	recent := prior
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := p.Responder.Generate(ctx, systemPrompt, recent, utterance)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Error("responder failed", "error", err)
		}
		return FallbackUtterance
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return FallbackUtterance
	}
	return reply
}
