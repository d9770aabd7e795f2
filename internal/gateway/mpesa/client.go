// Package mpesa talks to the Safaricom Daraja API: OAuth tokens and
// Lipa na M-Pesa STK push requests.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwalitptl/surveillance-api/internal/config"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/circuitbreaker"
)

const timestampLayout = "20060102150405"

type Client struct {
	cfg     config.MPesaConfig
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

func NewClient(cfg config.MPesaConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "mpesa",
			MaxFailures: 3,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
		now: time.Now,
	}
}

// Token fetches a client-credentials access token.
func (c *Client) Token(ctx context.Context) (*model.AccessToken, error) {
	var token model.AccessToken
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.url("/oauth/v1/generate?grant_type=client_credentials"), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
		return c.do(req, &token)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("failed to get access token: empty token")
	}
	return &token, nil
}

// STKPush asks the customer's handset to authorize a payment of amount.
func (c *Client) STKPush(ctx context.Context, phone string, amount int) (*model.STKPushResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  c.cfg.AccountRef,
		TransactionDesc:   c.cfg.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal stk push: %w", err)
	}

	var out model.STKPushResponse
	err = c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.url("/mpesa/stkpush/v1/processrequest"), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("stk push failed: %w", err)
	}
	return &out, nil
}

// Password is base64(shortcode + passkey + timestamp) as Daraja expects.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daraja call failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("daraja non-2xx: %s, body: %s", resp.Status, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode daraja resp: %w", err)
	}
	return nil
}
