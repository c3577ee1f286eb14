// Package twiml renders the voice XML documents the telephony provider
// consumes: speak a line, gather the caller's speech, redirect, hang up.
package twiml

import (
	"encoding/xml"
	"fmt"
)

const (
	defaultVoice       = "Polly.Matthew-Neural"
	gatherTimeoutSecs  = 5
	gatherLanguage     = "en-US"
	noInputFallbackMsg = "I didn't catch that. Could you please repeat?"
)

type Say struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type Gather struct {
	Input         string `xml:"input,attr"`
	Action        string `xml:"action,attr"`
	Method        string `xml:"method,attr"`
	Timeout       int    `xml:"timeout,attr"`
	SpeechTimeout string `xml:"speechTimeout,attr"`
	Language      string `xml:"language,attr"`
	Say           *Say   `xml:"Say,omitempty"`
}

type Redirect struct {
	Method string `xml:"method,attr"`
	URL    string `xml:",chardata"`
}

type Hangup struct{}

// Response is one voice document. Field order fixes element order: an
// optional Gather, then spoken fallbacks, then a Redirect or Hangup.
type Response struct {
	XMLName  xml.Name  `xml:"Response"`
	Gather   *Gather   `xml:"Gather,omitempty"`
	Say      []Say     `xml:"Say,omitempty"`
	Redirect *Redirect `xml:"Redirect,omitempty"`
	Hangup   *Hangup   `xml:"Hangup,omitempty"`
}

// GatherSpeech speaks text inside a speech gather posting to actionURL,
// with a spoken fallback and a redirect back to actionURL if the gather
// times out without input.
func GatherSpeech(actionURL, voiceName, text string) *Response {
	return &Response{
		Gather: &Gather{
			Input:         "speech",
			Action:        actionURL,
			Method:        "POST",
			Timeout:       gatherTimeoutSecs,
			SpeechTimeout: "auto",
			Language:      gatherLanguage,
			Say:           &Say{Voice: voiceOr(voiceName), Text: text},
		},
		Say:      []Say{{Voice: voiceOr(voiceName), Text: noInputFallbackMsg}},
		Redirect: &Redirect{Method: "POST", URL: actionURL},
	}
}

// SayHangup speaks text and ends the call.
func SayHangup(voiceName, text string) *Response {
	return &Response{
		Say:    []Say{{Voice: voiceOr(voiceName), Text: text}},
		Hangup: &Hangup{},
	}
}

// HangupOnly ends the call without speaking.
func HangupOnly() *Response {
	return &Response{Hangup: &Hangup{}}
}

// Render serializes the document with the XML declaration the provider
// expects.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal voice response: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func voiceOr(voiceName string) string {
	if voiceName == "" {
		return defaultVoice
	}
	return voiceName
}
