package voice

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// extractionMinTurns is the cadence floor: extraction is skipped on
// trivially short exchanges except on the forced end-of-call pass.
const extractionMinTurns = 3

// Gate decides, per turn, whether to run structured extraction and whether
// to persist the result. It owns the at-most-once guarantee for the "new
// order" side effect; updates after the first create may happen on every
// actionable turn.
type Gate struct {
	Extractor Extractor
	Recorder  Recorder
	Notifier  Notifier
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Run evaluates the gate for one turn. forced is the end-of-call path: it
// ignores the cadence floor because partial information is still worth
// capturing. Run never returns an error; every failure inside it is logged
// and the conversation continues.
func (g Gate) Run(ctx context.Context, sess *Session, cfg TenantConfig, forced bool) {
	if !forced && sess.TurnCount() < extractionMinTurns {
		return
	}

	history := sess.History()
	fields := g.extract(ctx, history, cfg.MenuReference)
	sess.SetExtracted(fields)

	if !fields.Actionable() {
		return
	}

	persisted, orderID := sess.OrderState()
	if persisted {
		if err := g.Recorder.UpdateOrder(ctx, orderID, fields); err != nil {
			g.logError("order update failed", sess, err)
		}
		return
	}

	if !sess.BeginCreate() {
		// Created by an earlier delivery, or a create is in flight.
		return
	}
	orderID, err := g.Recorder.CreateOrder(ctx, sess.CallID, sess.CallerNumber, sess.TenantID, fields)
	if err != nil {
		sess.FinishCreate(0, false)
		g.logError("order create failed", sess, err)
		return
	}
	sess.FinishCreate(orderID, true)

	if err := g.Notifier.NotifyOrderCreated(ctx, fields, sess.CallerNumber); err != nil {
		g.logError("order notification failed", sess, err)
	}
}

func (g Gate) extract(ctx context.Context, history []Turn, menuReference string) OrderFields {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fields, err := g.Extractor.Extract(ctx, history, menuReference)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Warn("extractor failed, using keyword fallback", "error", err)
		}
		return keywordExtract(history)
	}
	return fields
}

func (g Gate) logError(msg string, sess *Session, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.Error(msg, "call_id", sess.CallID, "error", err)
}

var orderKeywords = []string{"pizza", "order", "want", "like", "get"}

// keywordExtract is the best-effort fallback when the extractor is down:
// it collects caller utterances that look order-related. An empty result
// is simply inactionable, never an error.
func keywordExtract(history []Turn) OrderFields {
	var parts []string
	for _, t := range history {
		lower := strings.ToLower(t.Caller)
		for _, kw := range orderKeywords {
			if strings.Contains(lower, kw) {
				parts = append(parts, strings.TrimSpace(t.Caller))
				break
			}
		}
	}
	return OrderFields{Items: strings.Join(parts, " ")}
}
