package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.twilio.com"
	defaultTimeout              = 10 * time.Second
	channelPrefix               = "whatsapp:"
	responseBodyReadLimit int64 = 1024
)

// ErrDisabled is returned by Send when no Twilio credentials are configured.
var ErrDisabled = errors.New("whatsapp messaging disabled")

// Sender is the surface notification code depends on.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, to, body string) (string, error)
}

// Client sends WhatsApp messages through the Twilio Messages REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Twilio API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a client from config. Missing credentials yield a disabled
// client rather than an error so the API can boot without Twilio.
func NewClient(cfg config.WhatsAppConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		accountSID: strings.TrimSpace(cfg.AccountSID),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		from:       normalizeNumber(cfg.FromNumber),
	}
	WithBaseURL(cfg.BaseURL)(client)
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Enabled reports whether credentials and a sender number are present.
func (c *Client) Enabled() bool {
	return c != nil && c.accountSID != "" && c.authToken != "" && c.from != ""
}

// Send delivers body to the given phone number and returns the Twilio message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	to = normalizeNumber(to)
	if to == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "recipient phone number is required")
	}
	if strings.TrimSpace(body) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	form := url.Values{}
	form.Set("From", channelPrefix+c.from)
	form.Set("To", channelPrefix+to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build whatsapp request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute whatsapp request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "whatsapp request failed")
	}

	var apiResp struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode whatsapp response")
	}
	return apiResp.SID, nil
}

func normalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	return strings.TrimPrefix(number, channelPrefix)
}
