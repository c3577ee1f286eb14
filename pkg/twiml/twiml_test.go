package twiml

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
)

func TestGatherSpeech(t *testing.T) {
	out, err := GatherSpeech("https://example.com/voice/process", "Polly.Joanna-Neural", "How can I help?").Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(out)

	if !strings.HasPrefix(body, "<?xml") {
		t.Fatalf("missing xml declaration: %q", body)
	}
	for _, want := range []string{
		`<Gather input="speech" action="https://example.com/voice/process" method="POST" timeout="5" speechTimeout="auto" language="en-US">`,
		`<Say voice="Polly.Joanna-Neural">How can I help?</Say>`,
		`<Redirect method="POST">https://example.com/voice/process</Redirect>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in %q", want, body)
		}
	}
	if strings.Contains(body, "<Hangup") {
		t.Fatalf("gather response must not hang up: %q", body)
	}

	// Gather must come before the no-input fallback say. The fallback
	// message contains an apostrophe, which xml.Marshal escapes, so
	// search for the escaped form.
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(noInputFallbackMsg)); err != nil {
		t.Fatalf("escape fallback message: %v", err)
	}
	fallbackIdx := strings.Index(body, escaped.String())
	if fallbackIdx < 0 {
		t.Fatalf("missing no-input fallback in %q", body)
	}
	if strings.Index(body, "<Gather") > fallbackIdx {
		t.Fatalf("element order wrong: %q", body)
	}
}

func TestSayHangup(t *testing.T) {
	out, err := SayHangup("", "Goodbye!").Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(out)

	if !strings.Contains(body, `<Say voice="Polly.Matthew-Neural">Goodbye!</Say>`) {
		t.Fatalf("missing say with default voice: %q", body)
	}
	if !strings.Contains(body, "<Hangup></Hangup>") {
		t.Fatalf("missing hangup: %q", body)
	}
	if strings.Contains(body, "<Gather") {
		t.Fatalf("unexpected gather: %q", body)
	}
}

func TestHangupOnly(t *testing.T) {
	out, err := HangupOnly().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "<Hangup></Hangup>") {
		t.Fatalf("missing hangup: %q", string(out))
	}
}

func TestRender_EscapesText(t *testing.T) {
	out, err := SayHangup("", `say "hi" & <bye>`).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(out)
	if strings.Contains(body, "<bye>") {
		t.Fatalf("unescaped text: %q", body)
	}
	if !strings.Contains(body, "&amp;") {
		t.Fatalf("ampersand not escaped: %q", body)
	}
}
