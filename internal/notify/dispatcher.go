package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultChannelTimeout = 10 * time.Second

// Dispatcher delivers a submission through every configured channel and reduces
// the results with the any-delivered rule.
type Dispatcher struct {
	webhook *WebhookSender
	email   *EmailSender
	timeout time.Duration
	metrics *Metrics
	nowFn   func() time.Time
}

// NewDispatcher constructs a Dispatcher. email may be nil when no email sender is available.
func NewDispatcher(webhook *WebhookSender, email *EmailSender, timeout time.Duration) *Dispatcher {
	if webhook == nil {
		webhook = NewWebhookSender(nil)
	}
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	return &Dispatcher{
		webhook: webhook,
		email:   email,
		timeout: timeout,
		nowFn:   time.Now,
	}
}

// WithMetrics attaches delivery collectors.
func (d *Dispatcher) WithMetrics(metrics *Metrics) *Dispatcher {
	d.metrics = metrics
	return d
}

// EmailSenderAvailable reports whether an email API key was supplied.
func (d *Dispatcher) EmailSenderAvailable() bool {
	return d != nil && d.email != nil
}

// Dispatch attempts every configured channel concurrently. Channel errors never escape;
// each becomes a Failed result. No channel is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, sub Submission, cfg ChannelConfig) DispatchOutcome {
	channels := cfg.Channels()
	results := make([]ChannelResult, len(channels))

	var wg sync.WaitGroup
	for i, channel := range channels {
		wg.Add(1)
		go func(i int, channel Channel) {
			defer wg.Done()
			results[i] = d.attempt(ctx, channel, sub, cfg)
		}(i, channel)
	}
	wg.Wait()

	outcome := DispatchOutcome{PerChannel: results}
	for _, result := range results {
		if result.Outcome == OutcomeDelivered {
			outcome.OverallSuccess = true
			break
		}
	}
	return outcome
}

func (d *Dispatcher) attempt(ctx context.Context, channel Channel, sub Submission, cfg ChannelConfig) (result ChannelResult) {
	result = ChannelResult{Channel: channel}
	start := d.nowFn()
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Outcome = OutcomeFailed
			result.Detail = fmt.Sprintf("panic: %v", recovered)
		}
		d.metrics.observe(result, d.nowFn().Sub(start))
		if result.Outcome == OutcomeFailed {
			log.WithFields(log.Fields{
				"channel": channel,
				"detail":  result.Detail,
			}).Error("contact: channel delivery failed")
		}
	}()

	ctxSend, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var errSend error
	switch channel {
	case ChannelWebhook:
		errSend = d.webhook.Send(ctxSend, cfg.WebhookURL, sub)
		if errSend != nil {
			errSend = redactError(errSend, cfg.WebhookURL)
		}
	case ChannelEmail:
		errSend = d.email.Send(ctxSend, cfg.EmailRecipient, sub)
	default:
		errSend = fmt.Errorf("unknown channel %q", channel)
	}
	if errSend != nil {
		if errors.Is(errSend, context.DeadlineExceeded) {
			errSend = fmt.Errorf("timed out after %s: %w", d.timeout, errSend)
		}
		result.Outcome = OutcomeFailed
		result.Detail = errSend.Error()
		return result
	}
	result.Outcome = OutcomeDelivered
	return result
}
