package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hemolink/donorhub/internal/directory"
	"github.com/hemolink/donorhub/internal/domain"
	"github.com/hemolink/donorhub/internal/jobs"
	"github.com/hemolink/donorhub/internal/notifications/email"
	"github.com/hemolink/donorhub/internal/requests"
)

// EmailSender delivers one email per call. The sender owns its own pacing.
type EmailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// RequestSource resolves blood requests for notification rendering.
type RequestSource interface {
	GetDetail(ctx context.Context, id string) (*requests.Detail, error)
}

// DonorSource resolves the compatible donors a request alert goes to.
type DonorSource interface {
	ParticipantsByRegionAndBloodTypes(ctx context.Context, regionID string, types []domain.BloodType) ([]directory.Recipient, error)
}

// DigestStore marks digests sent once their emails are out.
type DigestStore interface {
	MarkSent(ctx context.Context, digestID string, at time.Time) error
}

// Handlers executes notification jobs pulled from the job store. A returned
// error sends the job back for retry; since delivery is at-least-once, a
// retry after a partial fan-out re-emails recipients already served.
type Handlers struct {
	renderer *Renderer
	email    EmailSender
	requests RequestSource
	donors   DonorSource
	digests  DigestStore
	now      func() time.Time
}

// NewHandlers creates the notification job handlers.
func NewHandlers(renderer *Renderer, sender EmailSender, reqs RequestSource, donors DonorSource, digests DigestStore) *Handlers {
	return &Handlers{
		renderer: renderer,
		email:    sender,
		requests: reqs,
		donors:   donors,
		digests:  digests,
		now:      time.Now,
	}
}

// HandleBloodRequest alerts every compatible participant in the request's
// region. Emails go out one at a time; failure of any send fails the job.
func (h *Handlers) HandleBloodRequest(ctx context.Context, job *jobs.Job) error {
	var payload jobs.BloodRequestPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal blood request payload: %w", err)
	}

	detail, err := h.requests.GetDetail(ctx, payload.RequestID)
	if err != nil {
		return fmt.Errorf("load blood request %s: %w", payload.RequestID, err)
	}

	donorTypes := domain.CompatibleDonors(detail.BloodType)
	if len(donorTypes) == 0 {
		// UNKNOWN recipients map to an empty donor set.
		slog.Info("no donor types can serve this request",
			"request_id", payload.RequestID,
			"blood_type", detail.BloodType,
		)
		return nil
	}

	recipients, err := h.donors.ParticipantsByRegionAndBloodTypes(ctx, detail.RegionID, donorTypes)
	if err != nil {
		return fmt.Errorf("list compatible donors: %w", err)
	}

	if len(recipients) == 0 {
		slog.Info("no compatible donors for blood request",
			"request_id", payload.RequestID,
			"blood_type", detail.BloodType,
			"region_id", detail.RegionID,
		)
		return nil
	}

	for _, rec := range recipients {
		subject, body, err := h.renderer.RenderBloodRequest(BloodRequestEmail{
			RecipientName: rec.Name,
			BloodGroup:    detail.BloodType.Display(),
			City:          detail.CityName,
			Hospital:      detail.Hospital,
			Contact:       detail.Contact,
			Urgent:        detail.Urgency == domain.UrgencyUrgent,
			Notes:         detail.Notes,
		})
		if err != nil {
			return fmt.Errorf("render blood request email: %w", err)
		}

		if err := h.email.Send(ctx, email.Message{To: rec.Email, Subject: subject, Body: body}); err != nil {
			return fmt.Errorf("send blood request email to %s: %w", rec.Email, err)
		}
	}

	slog.Info("blood request notifications sent",
		"request_id", payload.RequestID,
		"recipients", len(recipients),
	)
	return nil
}

// HandleCampaignDigest sends the regional digest to every recipient embedded
// in the payload, then marks the digest sent. An empty campaign list is a
// no-op: the aggregator never enqueues such a job, so this only guards
// against hand-crafted payloads.
func (h *Handlers) HandleCampaignDigest(ctx context.Context, job *jobs.Job) error {
	var payload jobs.CampaignDigestPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal campaign digest payload: %w", err)
	}

	if len(payload.Campaigns) == 0 {
		slog.Warn("campaign digest job with no campaigns, skipping", "digest_id", payload.DigestID)
		return nil
	}

	for _, rec := range payload.Recipients {
		subject, body, err := h.renderer.RenderCampaignDigest(CampaignDigestEmail{
			RecipientName: rec.Name,
			RegionName:    payload.RegionName,
			Date:          h.now().UTC(),
			Campaigns:     payload.Campaigns,
		})
		if err != nil {
			return fmt.Errorf("render campaign digest email: %w", err)
		}

		if err := h.email.Send(ctx, email.Message{To: rec.Email, Subject: subject, Body: body}); err != nil {
			return fmt.Errorf("send campaign digest email to %s: %w", rec.Email, err)
		}
	}

	if err := h.digests.MarkSent(ctx, payload.DigestID, h.now().UTC()); err != nil {
		return fmt.Errorf("mark digest %s sent: %w", payload.DigestID, err)
	}

	slog.Info("campaign digest sent",
		"digest_id", payload.DigestID,
		"region", payload.RegionName,
		"campaigns", len(payload.Campaigns),
		"recipients", len(payload.Recipients),
	)
	return nil
}
