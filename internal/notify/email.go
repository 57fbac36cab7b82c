package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
)

// EmailSenderConfig holds the transactional email API settings.
type EmailSenderConfig struct {
	APIKey string
	APIURL string
	From   string
}

// EmailSender sends submissions through a Resend-compatible email API.
type EmailSender struct {
	client *http.Client
	apiKey string
	apiURL string
	from   string
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewEmailSender returns nil when cfg carries no API key, meaning no sender is available.
func NewEmailSender(client *http.Client, cfg EmailSenderConfig) *EmailSender {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &EmailSender{
		client: client,
		apiKey: apiKey,
		apiURL: strings.TrimSpace(cfg.APIURL),
		from:   strings.TrimSpace(cfg.From),
	}
}

// EmailSubject derives the subject line from the name, falling back to the email.
func EmailSubject(sub Submission) string {
	if name := strings.TrimSpace(sub.Name); name != "" {
		return "New Contact Form: " + name
	}
	return "New Contact Form: " + sub.Email
}

// FormatEmailHTML renders the message body. User fields are escaped; message newlines become <br>.
func FormatEmailHTML(sub Submission) string {
	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>")
	b.WriteString("<p><strong>Email:</strong> " + html.EscapeString(sub.Email) + "</p>")
	if strings.TrimSpace(sub.Name) != "" {
		b.WriteString("<p><strong>Name:</strong> " + html.EscapeString(sub.Name) + "</p>")
	}
	if strings.TrimSpace(sub.Message) != "" {
		message := html.EscapeString(sub.Message)
		message = strings.ReplaceAll(message, "\r\n", "\n")
		message = strings.ReplaceAll(message, "\n", "<br>")
		b.WriteString("<p><strong>Message:</strong><br>" + message + "</p>")
	}
	return b.String()
}

// Send delivers sub to recipient with the submitter as reply-to.
func (s *EmailSender) Send(ctx context.Context, recipient string, sub Submission) error {
	if s == nil {
		return fmt.Errorf("email sender not configured")
	}
	body, errMarshal := json.Marshal(emailRequest{
		From:    s.from,
		To:      []string{recipient},
		ReplyTo: sub.Email,
		Subject: EmailSubject(sub),
		HTML:    FormatEmailHTML(sub),
	})
	if errMarshal != nil {
		return fmt.Errorf("marshal email payload: %w", errMarshal)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.apiKey)
	return postJSON(ctx, s.client, s.apiURL, body, header)
}
