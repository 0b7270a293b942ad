// Package discord provides best-effort push notifications via Discord
// Incoming Webhooks. Sends are fire-and-forget: failures are logged and
// reported as a boolean, never as an error, and nothing here is retried.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "DonorHub"
)

// Embed accent colors.
const (
	colorCampaign = 0x2ECC71
	colorUrgent   = 0xE74C3C
	colorStats    = 0x3498DB
	colorSystem   = 0x95A5A6
)

// Config holds Discord sender configuration. An empty WebhookURL disables
// the sender; every Notify method then short-circuits with false.
type Config struct {
	WebhookURL string
	Username   string
	AvatarURL  string
	Timeout    time.Duration
}

// Sender posts notifications to a single configured Discord webhook.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Discord sender.
func NewSender(config Config) *Sender {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Enabled reports whether a webhook URL is configured.
func (s *Sender) Enabled() bool {
	return s.config.WebhookURL != ""
}

// CampaignNotice describes a newly created campaign.
type CampaignNotice struct {
	Title        string
	Organization string
	City         string
	Location     string
	StartsAt     time.Time
}

// RequestNotice describes an urgent blood request.
type RequestNotice struct {
	BloodGroup string
	City       string
	Hospital   string
	Contact    string
}

// WeeklyStats summarizes platform activity for the weekly report.
type WeeklyStats struct {
	NewCampaigns int
	NewRequests  int
	NewUsers     int
}

// NotifyNewCampaign announces a campaign creation.
func (s *Sender) NotifyNewCampaign(ctx context.Context, notice CampaignNotice) bool {
	e := embed{
		Title:       "New donation campaign",
		Description: notice.Title,
		Color:       colorCampaign,
		Fields: []embedField{
			{Name: "Organization", Value: notice.Organization, Inline: true},
			{Name: "City", Value: notice.City, Inline: true},
			{Name: "Starts", Value: notice.StartsAt.Format("Mon, 02 Jan 2006 15:04"), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if notice.Location != "" {
		e.Fields = append(e.Fields, embedField{Name: "Location", Value: notice.Location})
	}
	return s.post(ctx, message{Embeds: []embed{e}})
}

// NotifyUrgentRequest announces an urgent blood request.
func (s *Sender) NotifyUrgentRequest(ctx context.Context, notice RequestNotice) bool {
	fields := []embedField{
		{Name: "Blood group", Value: notice.BloodGroup, Inline: true},
		{Name: "City", Value: notice.City, Inline: true},
	}
	if notice.Hospital != "" {
		fields = append(fields, embedField{Name: "Hospital", Value: notice.Hospital, Inline: true})
	}
	if notice.Contact != "" {
		fields = append(fields, embedField{Name: "Contact", Value: notice.Contact})
	}
	return s.post(ctx, message{Embeds: []embed{{
		Title:     "Urgent blood request",
		Color:     colorUrgent,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}})
}

// NotifyWeeklyStats posts the weekly activity summary.
func (s *Sender) NotifyWeeklyStats(ctx context.Context, stats WeeklyStats) bool {
	return s.post(ctx, message{Embeds: []embed{{
		Title: "Weekly summary",
		Color: colorStats,
		Fields: []embedField{
			{Name: "New campaigns", Value: fmt.Sprintf("%d", stats.NewCampaigns), Inline: true},
			{Name: "New blood requests", Value: fmt.Sprintf("%d", stats.NewRequests), Inline: true},
			{Name: "New users", Value: fmt.Sprintf("%d", stats.NewUsers), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}})
}

// NotifySystem posts a plain system message.
func (s *Sender) NotifySystem(ctx context.Context, title, body string) bool {
	return s.post(ctx, message{Embeds: []embed{{
		Title:       title,
		Description: body,
		Color:       colorSystem,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}}})
}

// SendTest posts a test message to verify webhook configuration.
func (s *Sender) SendTest(ctx context.Context) bool {
	return s.post(ctx, message{Content: "Webhook configuration test."})
}

type message struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []embed `json:"embeds,omitempty"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func (s *Sender) post(ctx context.Context, msg message) bool {
	if !s.Enabled() {
		slog.Debug("discord webhook not configured, skipping")
		return false
	}

	msg.Username = s.config.Username
	msg.AvatarURL = s.config.AvatarURL

	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal discord message", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Error("failed to create discord request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("discord webhook request failed",
			"webhook", maskWebhookURL(s.config.WebhookURL),
			"error", err,
		)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord replies 204 on success for plain webhook posts.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.Debug("discord message sent", "webhook", maskWebhookURL(s.config.WebhookURL))
		return true
	}

	respBody, _ := io.ReadAll(resp.Body)
	slog.Warn("discord webhook rejected message",
		"webhook", maskWebhookURL(s.config.WebhookURL),
		"status", resp.StatusCode,
		"body", string(respBody),
	)
	return false
}

// maskWebhookURL hides part of the URL for logging.
func maskWebhookURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}
