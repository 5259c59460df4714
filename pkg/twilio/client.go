package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client sends WhatsApp messages through the Twilio Messages API.
type Client interface {
	SendWhatsApp(ctx context.Context, to, body string) (*SendResult, error)
}

type twilioClient struct {
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
	client     *http.Client
}

// Options configures a Twilio client.
type Options struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

func NewClient(opts Options) Client {
	return &twilioClient{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		accountSID: opts.AccountSID,
		authToken:  opts.AuthToken,
		fromNumber: opts.FromNumber,
		client:     &http.Client{Timeout: opts.Timeout},
	}
}

// SendWhatsApp posts a message to the Messages API. The recipient must
// carry the "whatsapp:" channel prefix; it is added when missing.
func (c *twilioClient) SendWhatsApp(ctx context.Context, to, body string) (*SendResult, error) {
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("From", c.fromNumber)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       result.Code,
			Message:    result.Message,
		}
	}

	return &SendResult{
		SID:    result.SID,
		Status: result.Status,
	}, nil
}
