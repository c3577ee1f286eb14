package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/answerline/answerline/pkg/voice"
)

// POSClient pushes captured orders into a point-of-sale system over a
// generic JSON REST endpoint. Each push carries a fresh idempotency key
// so the POS side can deduplicate retried deliveries.
type POSClient struct {
	BaseURL    string
	APIKey     string
	LocationID string

	HTTPClient *http.Client
}

func NewPOSClient(baseURL, apiKey, locationID string) *POSClient {
	return &POSClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		LocationID: locationID,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type posOrderPayload struct {
	IdempotencyKey string            `json:"idempotency_key"`
	LocationID     string            `json:"location_id,omitempty"`
	Source         string            `json:"source"`
	CustomerName   string            `json:"customer_name,omitempty"`
	CustomerPhone  string            `json:"customer_phone,omitempty"`
	OrderType      string            `json:"order_type,omitempty"`
	Items          string            `json:"items"`
	Note           string            `json:"note,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

func (c *POSClient) PushOrder(ctx context.Context, fields voice.OrderFields, callerPhone string) error {
	if c == nil || c.BaseURL == "" {
		return nil
	}

	payload := posOrderPayload{
		IdempotencyKey: uuid.NewString(),
		LocationID:     c.LocationID,
		Source:         "answerline",
		CustomerName:   fields.CustomerName,
		CustomerPhone:  callerPhone,
		OrderType:      fields.OrderType,
		Items:          fields.Items,
		Note:           fields.SpecialInstructions,
	}
	if fields.DeliveryAddress != "" || fields.TotalEstimate != "" {
		payload.Extra = map[string]string{}
		if fields.DeliveryAddress != "" {
			payload.Extra["delivery_address"] = fields.DeliveryAddress
		}
		if fields.TotalEstimate != "" {
			payload.Extra["total_estimate"] = fields.TotalEstimate
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pos order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pos request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pos request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pos returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
