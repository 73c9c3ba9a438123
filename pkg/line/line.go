// Package line is a minimal LINE Messaging API client: webhook signature
// verification, event decoding, and reply/push with text and flex messages.
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

const (
	defaultAPIEndpoint   = "https://api.line.me"
	maxResponseSizeBytes = 1 << 20

	// SignatureHeader carries the webhook body HMAC.
	SignatureHeader = "X-Line-Signature"
)

var ErrInvalidSignature = errors.New("line signature mismatch")

type Config struct {
	ChannelSecret string        `envconfig:"CHANNEL_SECRET" split_words:"true" required:"true"`
	ChannelToken  string        `envconfig:"CHANNEL_TOKEN" split_words:"true" required:"true"`
	APIEndpoint   string        `envconfig:"API_ENDPOINT" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type Client struct {
	endpoint      string
	channelSecret string
	channelToken  string
	httpClient    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	secret := strings.TrimSpace(cfg.ChannelSecret)
	if secret == "" {
		return nil, errors.New("line channel secret is required")
	}
	token := strings.TrimSpace(cfg.ChannelToken)
	if token == "" {
		return nil, errors.New("line channel token is required")
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.APIEndpoint), "/")
	if endpoint == "" {
		endpoint = defaultAPIEndpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid line api endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint:      endpoint,
		channelSecret: secret,
		channelToken:  token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// VerifySignature checks the webhook body against the X-Line-Signature
// header value.
func (c *Client) VerifySignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(c.channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(signature))) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

/* ------------------------------ webhook types ----------------------------- */

type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string          `json:"type"`
	ReplyToken string          `json:"replyToken"`
	Timestamp  int64           `json:"timestamp"`
	Source     EventSource     `json:"source"`
	Message    *MessageContent `json:"message,omitempty"`
}

type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type MessageContent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseWebhook verifies the signature and decodes the event batch.
func (c *Client) ParseWebhook(body []byte, signature string) (*WebhookRequest, error) {
	if err := c.VerifySignature(body, signature); err != nil {
		return nil, err
	}
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	return &req, nil
}

/* ----------------------------- outbound types ----------------------------- */

// Message is one outbound LINE message object.
type Message map[string]any

func TextMessage(text string) Message {
	return Message{"type": "text", "text": text}
}

func FlexMessage(altText string, contents map[string]any) Message {
	return Message{"type": "flex", "altText": altText, "contents": contents}
}

// Messages converts an agent reply into LINE message objects.
func Messages(reply contractx.OutboundReply) []Message {
	if reply.Kind == contractx.ReplyCard && reply.Card != nil {
		return []Message{FlexMessage(reply.Body, reply.Card)}
	}
	return []Message{TextMessage(reply.Body)}
}

// Reply answers one webhook event. Reply tokens are single-use and expire
// quickly, so callers should reply within the webhook handler.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs []Message) error {
	if strings.TrimSpace(replyToken) == "" {
		return errors.New("reply token is required")
	}
	return c.post(ctx, "/v2/bot/message/reply", map[string]any{
		"replyToken": replyToken,
		"messages":   msgs,
	})
}

// Push sends messages outside a reply window.
func (c *Client) Push(ctx context.Context, to string, msgs []Message) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("push target is required")
	}
	return c.post(ctx, "/v2/bot/message/push", map[string]any{
		"to":       to,
		"messages": msgs,
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) error {
	if len(payload) == 0 {
		return errors.New("empty payload")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal line payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build line request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.channelToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute line request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read line response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("line http status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}
