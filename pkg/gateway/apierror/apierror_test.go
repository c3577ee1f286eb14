package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/answerline/answerline/pkg/store"
	"github.com/answerline/answerline/pkg/voice"
)

func TestFromError_Canonical(t *testing.T) {
	in := New(TypeInvalidRequest, "missing CallSid")
	in.Param = "CallSid"

	out, status := FromError(in, "req_1")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if out.RequestID != "req_1" || out.Param != "CallSid" {
		t.Fatalf("out = %+v", out)
	}
	// Must not mutate the original.
	if in.RequestID != "" {
		t.Fatalf("input mutated: %+v", in)
	}
}

func TestFromError_WrappedCanonical(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", New(TypeAuthentication, "bad token"))
	out, status := FromError(wrapped, "req_2")
	if status != http.StatusUnauthorized || out.Type != TypeAuthentication {
		t.Fatalf("status=%d type=%q", status, out.Type)
	}
}

func TestFromError_NotFoundSentinels(t *testing.T) {
	for _, err := range []error{store.ErrNotFound, voice.ErrSessionNotFound} {
		out, status := FromError(fmt.Errorf("lookup: %w", err), "")
		if status != http.StatusNotFound || out.Type != TypeNotFound {
			t.Fatalf("err=%v status=%d type=%q", err, status, out.Type)
		}
	}
}

func TestFromError_ContextAndUnknown(t *testing.T) {
	if _, status := FromError(context.DeadlineExceeded, ""); status != http.StatusGatewayTimeout {
		t.Fatalf("deadline status = %d", status)
	}
	if _, status := FromError(context.Canceled, ""); status != http.StatusRequestTimeout {
		t.Fatalf("cancel status = %d", status)
	}
	out, status := FromError(errors.New("pq: connection refused"), "req_3")
	if status != http.StatusInternalServerError {
		t.Fatalf("unknown status = %d", status)
	}
	if out.Message != "internal error" {
		t.Fatalf("unknown errors must not leak details, got %q", out.Message)
	}
}
