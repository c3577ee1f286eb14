package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/answerline/answerline/pkg/gateway/feed"
	"github.com/answerline/answerline/pkg/twiml"
	"github.com/answerline/answerline/pkg/voice"
)

// VoiceHandler terminates telephony webhooks. Every response is a voice
// XML document; the provider retries on non-2xx, so failures inside the
// orchestrator surface as spoken fallbacks instead of HTTP errors.
type VoiceHandler struct {
	Orch   *voice.Orchestrator
	Feed   *feed.Hub
	Logger *slog.Logger

	// BaseURL prefixes gather action URLs so the provider calls back to
	// the right host. Empty means relative URLs.
	BaseURL string
}

func (h VoiceHandler) Answer(w http.ResponseWriter, r *http.Request) {
	callID, caller, called, ok := h.parseCall(w, r)
	if !ok {
		return
	}

	reply := h.Orch.HandleStart(r.Context(), callID, caller, called)
	h.Feed.Broadcast(feed.Event{
		Type:         feed.EventCallStarted,
		CallID:       callID,
		CallerNumber: caller,
		Reply:        reply.Utterance,
	})

	h.render(w, twiml.GatherSpeech(h.actionURL("/voice/process"), reply.Voice, reply.Utterance))
}

func (h VoiceHandler) Process(w http.ResponseWriter, r *http.Request) {
	callID, caller, called, ok := h.parseCall(w, r)
	if !ok {
		return
	}
	utterance := strings.TrimSpace(r.FormValue("SpeechResult"))

	reply := h.Orch.HandleTurn(r.Context(), callID, caller, called, utterance)
	h.Feed.Broadcast(feed.Event{
		Type:         feed.EventCallTurn,
		CallID:       callID,
		CallerNumber: caller,
		Utterance:    utterance,
		Reply:        reply.Utterance,
	})
	if reply.Emergency {
		h.Feed.Broadcast(feed.Event{
			Type:         feed.EventEmergency,
			CallID:       callID,
			CallerNumber: caller,
			Utterance:    utterance,
		})
	}
	if reply.OrderSaved {
		h.Feed.Broadcast(feed.Event{
			Type:         feed.EventOrderSaved,
			CallID:       callID,
			CallerNumber: caller,
			OrderID:      reply.OrderID,
		})
	}

	if reply.EndCall {
		h.render(w, twiml.SayHangup(reply.Voice, reply.Utterance))
		return
	}
	h.render(w, twiml.GatherSpeech(h.actionURL("/voice/process"), reply.Voice, reply.Utterance))
}

func (h VoiceHandler) Hangup(w http.ResponseWriter, r *http.Request) {
	callID, caller, _, ok := h.parseCall(w, r)
	if !ok {
		return
	}

	res := h.Orch.HandleEnd(r.Context(), callID, caller)
	if res.OrderSaved {
		// Forced end-of-call extraction can be the first successful save.
		h.Feed.Broadcast(feed.Event{
			Type:         feed.EventOrderSaved,
			CallID:       callID,
			CallerNumber: caller,
			OrderID:      res.OrderID,
		})
	}
	h.Feed.Broadcast(feed.Event{
		Type:         feed.EventCallEnded,
		CallID:       callID,
		CallerNumber: caller,
	})

	h.render(w, twiml.HangupOnly())
}

func (h VoiceHandler) parseCall(w http.ResponseWriter, r *http.Request) (callID, caller, called string, ok bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return "", "", "", false
	}
	callID = strings.TrimSpace(r.FormValue("CallSid"))
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return "", "", "", false
	}
	return callID, strings.TrimSpace(r.FormValue("From")), strings.TrimSpace(r.FormValue("To")), true
}

func (h VoiceHandler) actionURL(path string) string {
	return h.BaseURL + path
}

func (h VoiceHandler) render(w http.ResponseWriter, resp *twiml.Response) {
	body, err := resp.Render()
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("twiml render failed", "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
