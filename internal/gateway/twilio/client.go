// Package twilio sends SMS and WhatsApp messages through the Twilio REST API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwalitptl/surveillance-api/internal/config"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/circuitbreaker"
)

const whatsAppPrefix = "whatsapp:"

type Client struct {
	cfg     config.TwilioConfig
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// messageResponse is the subset of the Messages resource we read.
type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	Code         int    `json:"code"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message"`
}

// RejectedError is returned when Twilio refuses a message (bad number,
// unverified sender). It does not count against the circuit breaker.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("twilio rejected message (%d): %s", e.StatusCode, e.Message)
}

func NewClient(cfg config.TwilioConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "twilio",
			MaxFailures: 5,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
	}
}

// Send delivers body to the phone number over channel and returns the
// provider message id.
func (c *Client) Send(ctx context.Context, to, body string, channel model.Channel) (string, error) {
	from := c.cfg.FromNumber
	if channel == model.ChannelWhatsApp {
		from = withPrefix(c.cfg.WhatsAppFrom)
		to = withPrefix(to)
	}
	if from == "" || from == whatsAppPrefix {
		return "", fmt.Errorf("no sender configured for %s", channel)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	var (
		sid      string
		rejected error
	)
	err := c.breaker.Execute(func() error {
		resp, err := c.post(ctx, form)
		if err != nil {
			return err
		}
		if resp.rejected != nil {
			rejected = resp.rejected
			return nil
		}
		sid = resp.SID
		return nil
	})
	if err != nil {
		return "", err
	}
	if rejected != nil {
		return "", rejected
	}
	return sid, nil
}

type postResult struct {
	messageResponse
	rejected error
}

func (c *Client) post(ctx context.Context, form url.Values) (*postResult, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio call failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	var out postResult
	_ = json.Unmarshal(data, &out.messageResponse)

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("twilio non-2xx: %s, body: %s", resp.Status, string(data))
	case resp.StatusCode >= 400:
		msg := out.Message
		if msg == "" {
			msg = string(data)
		}
		out.rejected = &RejectedError{StatusCode: resp.StatusCode, Message: msg}
		return &out, nil
	}

	if out.SID == "" {
		return nil, fmt.Errorf("twilio response missing sid: %s", string(data))
	}
	if out.ErrorMessage != "" {
		out.rejected = &RejectedError{StatusCode: resp.StatusCode, Message: out.ErrorMessage}
	}
	return &out, nil
}

func withPrefix(number string) string {
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}
