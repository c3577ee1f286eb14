// Package llm implements the language responder and transcript extractor
// over the OpenAI chat completions API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/answerline/answerline/pkg/voice"
)

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client serves both voice.Responder and voice.Extractor.
type Client struct {
	api   completionAPI
	model string
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Client{api: openai.NewClient(apiKey), model: model}
}

// Generate produces the assistant's next utterance. Low temperature and a
// tight token budget keep replies short and fast enough for telephony.
func (c *Client) Generate(ctx context.Context, systemPrompt string, recent []voice.Turn, utterance string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2*len(recent)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, t := range recent {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Caller},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Assistant},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: utterance,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.model,
		Messages:         messages,
		Temperature:      0.3,
		MaxTokens:        35,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Extract pulls structured order fields out of the full transcript. The
// model's JSON is untrusted and goes through normalizeFields before use.
func (c *Client) Extract(ctx context.Context, history []voice.Turn, menuReference string) (voice.OrderFields, error) {
	if strings.TrimSpace(menuReference) == "" {
		menuReference = "Menu information not available. Extract whatever the caller asked for."
	}

	var text strings.Builder
	for _, t := range history {
		text.WriteString(t.Caller)
		text.WriteString(" ")
		text.WriteString(t.Assistant)
		text.WriteString(" ")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionPromptFormat, menuReference, text.String())},
		},
		Temperature: 0.2,
		MaxTokens:   400,
		TopP:        0.9,
	})
	if err != nil {
		return voice.OrderFields{}, fmt.Errorf("extraction completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return voice.OrderFields{}, fmt.Errorf("extraction completion: empty choices")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return voice.OrderFields{}, fmt.Errorf("extraction result is not a JSON object: %w", err)
	}
	return normalizeFields(decoded), nil
}

// stripCodeFence removes a surrounding markdown fence, which some models
// emit even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// normalizeFields maps the model's free-form JSON onto OrderFields. Nulls,
// numbers, booleans, and string lists all collapse to plain strings;
// anything unexpected becomes the zero value rather than an error.
func normalizeFields(decoded map[string]json.RawMessage) voice.OrderFields {
	return voice.OrderFields{
		CustomerName:        asString(decoded["customer_name"]),
		Items:               asString(decoded["items"]),
		OrderType:           strings.ToLower(asString(decoded["order_type"])),
		DeliveryAddress:     asString(decoded["delivery_address"]),
		PickupName:          asString(decoded["pickup_name"]),
		PhoneNumber:         asString(decoded["phone_number"]),
		SpecialInstructions: asString(decoded["special_instructions"]),
		PaymentMethod:       strings.ToLower(asString(decoded["payment_method"])),
		TotalEstimate:       asString(decoded["total_estimate"]),
		Confirmed:           asBool(decoded["order_confirmed"]),
	}
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if strings.EqualFold(val, "null") {
			return ""
		}
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func asBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true") || strings.EqualFold(val, "yes")
	default:
		return false
	}
}
