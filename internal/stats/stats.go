// Package stats computes platform activity summaries and pushes the weekly
// report to the notification side channel.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hemolink/donorhub/internal/notifications/discord"
	"github.com/hemolink/donorhub/internal/pkg/httputil"
)

// WeeklySnapshot counts platform activity within a time window.
type WeeklySnapshot struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	NewCampaigns int       `json:"new_campaigns"`
	NewRequests  int       `json:"new_requests"`
	NewUsers     int       `json:"new_users"`
}

// Repository defines the interface for activity counting.
type Repository interface {
	Snapshot(ctx context.Context, from, to time.Time) (*WeeklySnapshot, error)
}

// Pusher posts the weekly summary. Best-effort.
type Pusher interface {
	NotifyWeeklyStats(ctx context.Context, stats discord.WeeklyStats) bool
}

// Reporter builds the weekly snapshot and pushes it.
type Reporter struct {
	repo   Repository
	pusher Pusher
	now    func() time.Time
}

// NewReporter creates a new weekly stats reporter. The pusher may be nil
// when push notifications are not configured.
func NewReporter(repo Repository, pusher Pusher) *Reporter {
	return &Reporter{
		repo:   repo,
		pusher: pusher,
		now:    time.Now,
	}
}

// Report computes the last seven days of activity and pushes the summary.
func (r *Reporter) Report(ctx context.Context) (*WeeklySnapshot, error) {
	to := r.now().UTC()
	from := to.AddDate(0, 0, -7)

	snapshot, err := r.repo.Snapshot(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("weekly snapshot: %w", err)
	}

	slog.Info("weekly stats computed",
		"new_campaigns", snapshot.NewCampaigns,
		"new_requests", snapshot.NewRequests,
		"new_users", snapshot.NewUsers,
	)

	if r.pusher != nil {
		r.pusher.NotifyWeeklyStats(ctx, discord.WeeklyStats{
			NewCampaigns: snapshot.NewCampaigns,
			NewRequests:  snapshot.NewRequests,
			NewUsers:     snapshot.NewUsers,
		})
	}

	return snapshot, nil
}

// Handler exposes the weekly snapshot over HTTP.
type Handler struct {
	reporter *Reporter
}

// NewHandler creates a new stats handler.
func NewHandler(reporter *Reporter) *Handler {
	return &Handler{reporter: reporter}
}

// RegisterRoutes registers all HTTP routes for the stats module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats/weekly", h.Weekly)
}

// Weekly handles GET /stats/weekly request. Reading the snapshot over HTTP
// does not push to the side channel.
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	to := h.reporter.now().UTC()
	from := to.AddDate(0, 0, -7)

	snapshot, err := h.reporter.repo.Snapshot(r.Context(), from, to)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, snapshot)
}
