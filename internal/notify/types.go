package notify

import "strings"

// Submission is a validated contact form submission.
type Submission struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelWebhook Channel = "webhook"
	ChannelEmail   Channel = "email"
)

// Outcome is the result of a single delivery attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// ChannelResult records one channel's attempt for one submission.
type ChannelResult struct {
	Channel Channel `json:"channel"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// DispatchOutcome aggregates the per-channel results in attempt order.
type DispatchOutcome struct {
	PerChannel     []ChannelResult `json:"per_channel"`
	OverallSuccess bool            `json:"overall_success"`
}

// ChannelConfig selects which channels a dispatch uses.
type ChannelConfig struct {
	WebhookURL           string
	EmailRecipient       string
	EmailSenderAvailable bool
}

// WebhookConfigured reports whether the webhook channel has a URL.
func (c ChannelConfig) WebhookConfigured() bool {
	return strings.TrimSpace(c.WebhookURL) != ""
}

// EmailConfigured reports whether the email channel has a recipient and a sender.
func (c ChannelConfig) EmailConfigured() bool {
	return c.EmailSenderAvailable && strings.TrimSpace(c.EmailRecipient) != ""
}

// AnyConfigured reports whether at least one channel is usable.
func (c ChannelConfig) AnyConfigured() bool {
	return c.WebhookConfigured() || c.EmailConfigured()
}

// Channels lists the configured channels in dispatch order.
func (c ChannelConfig) Channels() []Channel {
	channels := make([]Channel, 0, 2)
	if c.WebhookConfigured() {
		channels = append(channels, ChannelWebhook)
	}
	if c.EmailConfigured() {
		channels = append(channels, ChannelEmail)
	}
	return channels
}
