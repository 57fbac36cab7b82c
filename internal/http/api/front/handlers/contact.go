package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/models"
	"github.com/router-for-me/ContactRelay/internal/notify"
	"github.com/router-for-me/ContactRelay/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

const maxContactBodyBytes = 64 << 10

// Client-facing messages.
const (
	msgTooManyRequests = "Too many requests. Please try again later."
	msgInvalidBody     = "Invalid request body"
	msgEmailRequired   = "Email is required"
	msgInternalError   = "Internal server error"
	msgSendFailed      = "Failed to send message"
	msgSent            = "Message sent successfully"
)

// RateLimiter decides whether a client may submit.
type RateLimiter interface {
	Check(ctx context.Context, clientID string) ratelimit.Result
}

// Dispatcher delivers a submission to the configured channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub notify.Submission, cfg notify.ChannelConfig) notify.DispatchOutcome
}

// SubmissionRecorder persists accepted submissions.
type SubmissionRecorder interface {
	Save(ctx context.Context, sub notify.Submission, clientID string, outcome notify.DispatchOutcome) (models.Submission, error)
}

// ContactHandler serves the public contact form endpoint.
type ContactHandler struct {
	limiter    RateLimiter
	dispatcher Dispatcher
	channels   config.ChannelsConfig
	recorder   SubmissionRecorder
	nowFn      func() time.Time
}

// NewContactHandler constructs a ContactHandler. recorder may be nil when no store is configured.
func NewContactHandler(limiter RateLimiter, dispatcher Dispatcher, channels config.ChannelsConfig, recorder SubmissionRecorder) *ContactHandler {
	return &ContactHandler{
		limiter:    limiter,
		dispatcher: dispatcher,
		channels:   channels,
		recorder:   recorder,
		nowFn:      time.Now,
	}
}

// contactRequest captures the contact form payload.
type contactRequest struct {
	Email   string `json:"email"`   // Required submitter address.
	Name    string `json:"name"`    // Optional name.
	Message string `json:"message"` // Optional message.
}

// ChannelConfig returns the dispatch configuration derived from the channel settings.
func (h *ContactHandler) ChannelConfig() notify.ChannelConfig {
	return notify.ChannelConfig{
		WebhookURL:           h.channels.WebhookURL,
		EmailRecipient:       h.channels.EmailTo,
		EmailSenderAvailable: h.channels.EmailAPIKey != "",
	}
}

// Submit rate-limits, validates and dispatches a contact submission.
func (h *ContactHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := ratelimit.ClientIDFromHeaders(c.Request.Header)

	limit := h.limiter.Check(ctx, clientID)
	if limit.Limited {
		if retryAfter := h.retryAfterSeconds(limit.Reset); retryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgTooManyRequests})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxContactBodyBytes)
	var body contactRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	sub := notify.Submission{
		Email:   strings.TrimSpace(body.Email),
		Name:    strings.TrimSpace(body.Name),
		Message: strings.TrimSpace(body.Message),
	}
	if sub.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEmailRequired})
		return
	}

	if errChannel := h.channels.RequireChannel(); errChannel != nil {
		log.WithError(errChannel).Error("contact: cannot deliver submission")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		return
	}

	// Deliveries finish even if the client disconnects.
	dispatchCtx := context.WithoutCancel(ctx)
	outcome := h.dispatcher.Dispatch(dispatchCtx, sub, h.ChannelConfig())
	h.record(dispatchCtx, sub, clientID, outcome)

	if !outcome.OverallSuccess {
		log.WithFields(log.Fields{
			"client":   clientID,
			"channels": len(outcome.PerChannel),
		}).Error("contact: all configured channels failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgSendFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   msgSent,
		"remaining": limit.Remaining,
	})
}

func (h *ContactHandler) record(ctx context.Context, sub notify.Submission, clientID string, outcome notify.DispatchOutcome) {
	if h.recorder == nil {
		return
	}
	if _, errSave := h.recorder.Save(ctx, sub, clientID, outcome); errSave != nil {
		log.WithError(errSave).Warn("contact: persist submission failed")
	}
}

func (h *ContactHandler) retryAfterSeconds(reset time.Time) int {
	if reset.IsZero() {
		return 0
	}
	wait := reset.Sub(h.nowFn()).Seconds()
	if wait <= 0 {
		return 1
	}
	return int(math.Ceil(wait))
}
