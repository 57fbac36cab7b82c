package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	webhookHeader   = "**New Contact Form Submission**"
	webhookUsername = "Contact Form"
	webhookAvatar   = "https://iamzub.in/favicon.ico"
	userAgent       = "contact-relay/1"
	maxDetailBytes  = 512
)

type webhookPayload struct {
	Content   string `json:"content"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// WebhookSender posts submissions to a chat incoming-webhook.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender constructs a WebhookSender using client, or http.DefaultClient when nil.
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{client: client}
}

// FormatWebhookContent renders the chat message. Blank optional fields are left out entirely.
func FormatWebhookContent(sub Submission) string {
	lines := []string{
		webhookHeader,
		"**Email:** " + sub.Email,
	}
	if name := strings.TrimSpace(sub.Name); name != "" {
		lines = append(lines, "**Name:** "+sub.Name)
	}
	if message := strings.TrimSpace(sub.Message); message != "" {
		lines = append(lines, "**Message:**\n"+sub.Message)
	}
	return strings.Join(lines, "\n")
}

// Send delivers sub to webhookURL. Any non-2xx response is an error.
func (s *WebhookSender) Send(ctx context.Context, webhookURL string, sub Submission) error {
	body, errMarshal := json.Marshal(webhookPayload{
		Content:   FormatWebhookContent(sub),
		Username:  webhookUsername,
		AvatarURL: webhookAvatar,
	})
	if errMarshal != nil {
		return fmt.Errorf("marshal webhook payload: %w", errMarshal)
	}
	return postJSON(ctx, s.client, webhookURL, body, nil)
}

func postJSON(ctx context.Context, client *http.Client, target string, body []byte, header http.Header) error {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if errReq != nil {
		return fmt.Errorf("create request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, errDo := client.Do(req)
	if errDo != nil {
		return errDo
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	if text := strings.TrimSpace(string(snippet)); text != "" {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, text)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

// RedactURL masks credentials in a URL for logging: userinfo, query values
// and the final path segment, which carries the token in chat webhook URLs.
func RedactURL(rawURL string) string {
	u, errParse := url.Parse(rawURL)
	if errParse != nil || u.Host == "" {
		return "<invalid-url>"
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		u.RawQuery = q.Encode()
	}
	if trimmed := strings.TrimSuffix(u.Path, "/"); strings.Count(trimmed, "/") > 1 {
		u.Path = trimmed[:strings.LastIndex(trimmed, "/")] + "/REDACTED"
		u.RawPath = ""
	}
	return u.Redacted()
}

// redactedError hides the webhook URL in transport errors while keeping the chain.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactError(err error, rawURL string) error {
	if err == nil || rawURL == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, rawURL) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, rawURL, RedactURL(rawURL)), err: err}
}
