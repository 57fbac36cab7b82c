package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/models"
	"github.com/router-for-me/ContactRelay/internal/notify"
	"github.com/router-for-me/ContactRelay/internal/ratelimit"
)

type countingDispatcher struct {
	calls int32
	next  Dispatcher
}

func (d *countingDispatcher) Dispatch(ctx context.Context, sub notify.Submission, cfg notify.ChannelConfig) notify.DispatchOutcome {
	atomic.AddInt32(&d.calls, 1)
	if d.next == nil {
		return notify.DispatchOutcome{}
	}
	return d.next.Dispatch(ctx, sub, cfg)
}

type memoryRecorder struct {
	saved []notify.DispatchOutcome
}

func (r *memoryRecorder) Save(_ context.Context, _ notify.Submission, _ string, outcome notify.DispatchOutcome) (models.Submission, error) {
	r.saved = append(r.saved, outcome)
	return models.Submission{}, nil
}

func newLimiter(limit int) *ratelimit.Manager {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsConfig{Limit: limit, Window: time.Minute}), func() time.Time {
		return now
	}, nil)
}

func statusServer(t *testing.T, status int, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func newEngine(h *ContactHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/contact", h.Submit)
	return r
}

func postContact(r http.Handler, body string, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errUnmarshal := json.Unmarshal(w.Body.Bytes(), &out); errUnmarshal != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), errUnmarshal)
	}
	return out
}

func TestSubmitFallsBackToEmail(t *testing.T) {
	var webhookHits, emailHits int32
	webhook := statusServer(t, http.StatusInternalServerError, &webhookHits)
	email := statusServer(t, http.StatusOK, &emailHits)

	channels := config.ChannelsConfig{
		WebhookURL:  webhook.URL,
		EmailAPIKey: "re_test",
		EmailTo:     "owner@example.com",
		EmailAPIURL: email.URL,
	}
	dispatcher := notify.NewDispatcher(notify.NewWebhookSender(webhook.Client()), notify.NewEmailSender(email.Client(), notify.EmailSenderConfig{
		APIKey: channels.EmailAPIKey,
		APIURL: channels.EmailAPIURL,
	}), time.Second)
	recorder := &memoryRecorder{}
	r := newEngine(NewContactHandler(newLimiter(5), dispatcher, channels, recorder))

	w := postContact(r, `{"email":"visitor@example.com","name":"Ada"}`, "203.0.113.7")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decodeBody(t, w)
	if out["message"] != "Message sent successfully" {
		t.Fatalf("unexpected message %v", out["message"])
	}
	if out["remaining"] != float64(4) {
		t.Fatalf("expected remaining=4, got %v", out["remaining"])
	}
	if webhookHits != 1 || emailHits != 1 {
		t.Fatalf("expected both channels attempted, got webhook=%d email=%d", webhookHits, emailHits)
	}
	if len(recorder.saved) != 1 || !recorder.saved[0].OverallSuccess {
		t.Fatalf("expected one persisted successful submission, got %+v", recorder.saved)
	}
}

func TestSubmitAllChannelsFail(t *testing.T) {
	var webhookHits, emailHits int32
	webhook := statusServer(t, http.StatusBadGateway, &webhookHits)
	email := statusServer(t, http.StatusForbidden, &emailHits)

	channels := config.ChannelsConfig{WebhookURL: webhook.URL, EmailAPIKey: "re_test", EmailTo: "owner@example.com"}
	dispatcher := notify.NewDispatcher(notify.NewWebhookSender(webhook.Client()), notify.NewEmailSender(email.Client(), notify.EmailSenderConfig{
		APIKey: "re_test",
		APIURL: email.URL,
	}), time.Second)
	recorder := &memoryRecorder{}
	r := newEngine(NewContactHandler(newLimiter(5), dispatcher, channels, recorder))

	w := postContact(r, `{"email":"visitor@example.com"}`, "203.0.113.8")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if out := decodeBody(t, w); out["error"] != "Failed to send message" {
		t.Fatalf("unexpected error %v", out["error"])
	}
	if len(recorder.saved) != 1 {
		t.Fatalf("expected failed submission persisted")
	}
	for _, result := range recorder.saved[0].PerChannel {
		if result.Outcome != notify.OutcomeFailed {
			t.Fatalf("expected each channel failure recorded, got %+v", result)
		}
	}
}

func TestSubmitWithoutChannelsNeverDispatches(t *testing.T) {
	dispatcher := &countingDispatcher{}
	recorder := &memoryRecorder{}
	r := newEngine(NewContactHandler(newLimiter(5), dispatcher, config.ChannelsConfig{EmailAPIKey: "re_test"}, recorder))

	w := postContact(r, `{"email":"visitor@example.com"}`, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if out := decodeBody(t, w); out["error"] != "Internal server error" {
		t.Fatalf("unexpected error %v", out["error"])
	}
	if dispatcher.calls != 0 {
		t.Fatalf("expected no dispatch, got %d calls", dispatcher.calls)
	}
	if len(recorder.saved) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestSubmitValidation(t *testing.T) {
	dispatcher := &countingDispatcher{}
	r := newEngine(NewContactHandler(newLimiter(50), dispatcher, config.ChannelsConfig{WebhookURL: "https://hook.example"}, nil))

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "missing email", body: `{"name":"Ada"}`, want: "Email is required"},
		{name: "blank email", body: `{"email":"   "}`, want: "Email is required"},
		{name: "malformed json", body: `{"email":`, want: "Invalid request body"},
		{name: "wrong type", body: `{"email":42}`, want: "Invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postContact(r, tc.body, "198.51.100.1")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if out := decodeBody(t, w); out["error"] != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, out["error"])
			}
		})
	}
	if dispatcher.calls != 0 {
		t.Fatalf("expected no dispatch for invalid submissions")
	}
}

func TestSubmitRateLimited(t *testing.T) {
	dispatcher := &countingDispatcher{next: stubDispatcher{success: true}}
	h := NewContactHandler(newLimiter(2), dispatcher, config.ChannelsConfig{WebhookURL: "https://hook.example"}, nil)
	h.nowFn = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	r := newEngine(h)

	for i := 0; i < 2; i++ {
		if w := postContact(r, `{"email":"a@b.co"}`, "192.0.2.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := postContact(r, `{"email":"a@b.co"}`, "192.0.2.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	out := decodeBody(t, w)
	if out["error"] != "Too many requests. Please try again later." {
		t.Fatalf("unexpected error %v", out["error"])
	}
	if _, ok := out["remaining"]; ok {
		t.Fatalf("did not expect remaining on 429")
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After=60, got %q", w.Header().Get("Retry-After"))
	}
	if dispatcher.calls != 2 {
		t.Fatalf("expected limited request not dispatched, got %d calls", dispatcher.calls)
	}

	if w := postContact(r, `{"email":"a@b.co"}`, "192.0.2.2"); w.Code != http.StatusOK {
		t.Fatalf("expected other client unaffected, got %d", w.Code)
	}
}

type stubDispatcher struct {
	success bool
}

func (d stubDispatcher) Dispatch(context.Context, notify.Submission, notify.ChannelConfig) notify.DispatchOutcome {
	outcome := notify.OutcomeFailed
	if d.success {
		outcome = notify.OutcomeDelivered
	}
	return notify.DispatchOutcome{
		PerChannel:     []notify.ChannelResult{{Channel: notify.ChannelWebhook, Outcome: outcome}},
		OverallSuccess: d.success,
	}
}
