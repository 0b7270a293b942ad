package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hemolink/donorhub/internal/directory"
	"github.com/hemolink/donorhub/internal/jobs"
	"github.com/hemolink/donorhub/internal/notifications/discord"
)

// CampaignSource resolves the digest-relevant view of a campaign.
type CampaignSource interface {
	DigestInfo(ctx context.Context, campaignID string) (*CampaignInfo, error)
}

// RecipientSource resolves the participants a regional digest goes to.
type RecipientSource interface {
	ParticipantsByRegion(ctx context.Context, regionID string) ([]directory.Recipient, error)
}

// Pusher fires best-effort push notifications. The boolean result is
// informational only; a false never fails the caller.
type Pusher interface {
	NotifyNewCampaign(ctx context.Context, notice discord.CampaignNotice) bool
}

// Enqueuer persists new jobs into the job store.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *jobs.Job) error
}

// Aggregator attaches newly created campaigns to their regional daily digest
// and converts accumulated digests into campaign_digest jobs.
type Aggregator struct {
	repo       Repository
	campaigns  CampaignSource
	recipients RecipientSource
	pusher     Pusher
	queue      Enqueuer
	now        func() time.Time
}

// NewAggregator creates a new digest aggregator. The pusher may be nil when
// push notifications are not configured.
func NewAggregator(repo Repository, campaigns CampaignSource, recipients RecipientSource, pusher Pusher, queue Enqueuer) *Aggregator {
	return &Aggregator{
		repo:       repo,
		campaigns:  campaigns,
		recipients: recipients,
		pusher:     pusher,
		queue:      queue,
		now:        time.Now,
	}
}

// AttachCampaign adds a campaign to today's digest for the campaign's
// region, creating the digest on first use, and fires an immediate push
// notification on the side channel. The push is independent of digest state
// and its failure never surfaces to the caller; lookup and persistence
// errors do.
func (a *Aggregator) AttachCampaign(ctx context.Context, campaignID string) error {
	info, err := a.campaigns.DigestInfo(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("look up campaign %s: %w", campaignID, err)
	}

	d, err := a.repo.FindOrCreate(ctx, Day(a.now()), info.RegionID)
	if err != nil {
		return fmt.Errorf("find or create digest for region %s: %w", info.RegionID, err)
	}

	if err := a.repo.AttachCampaign(ctx, d.ID, campaignID); err != nil {
		return fmt.Errorf("attach campaign %s to digest %s: %w", campaignID, d.ID, err)
	}
	recordCampaignAttached()

	slog.Debug("campaign attached to digest",
		"campaign_id", campaignID,
		"digest_id", d.ID,
		"region_id", info.RegionID,
	)

	if a.pusher != nil {
		a.pusher.NotifyNewCampaign(ctx, discord.CampaignNotice{
			Title:        info.Title,
			Organization: info.OrganizationName,
			City:         info.CityName,
			Location:     info.Location,
			StartsAt:     info.StartsAt,
		})
	}

	return nil
}

// ProcessDigests converts today's unsent digests into campaign_digest jobs,
// one per region, and returns the number of jobs enqueued. Digests with no
// campaigns created today or no regional recipients are skipped without
// being marked sent. A failure on one region does not stop the others.
func (a *Aggregator) ProcessDigests(ctx context.Context) (int, error) {
	today := Day(a.now())

	digests, err := a.repo.ListUnsent(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list unsent digests: %w", err)
	}

	enqueued := 0
	for _, d := range digests {
		if a.processDigest(ctx, d, today) {
			enqueued++
		}
	}

	slog.Info("digest aggregation cycle finished",
		"date", today.Format("2006-01-02"),
		"digests", len(digests),
		"jobs_enqueued", enqueued,
	)
	return enqueued, nil
}

func (a *Aggregator) processDigest(ctx context.Context, d *Digest, today time.Time) bool {
	log := slog.With("digest_id", d.ID, "region", d.RegionName)

	members, err := a.repo.ListMemberCampaignsCreatedOn(ctx, d.ID, today)
	if err != nil {
		log.Error("failed to list digest campaigns", "error", err)
		return false
	}
	if len(members) == 0 {
		log.Debug("digest has no campaigns created today, skipping")
		return false
	}

	recipients, err := a.recipients.ParticipantsByRegion(ctx, d.RegionID)
	if err != nil {
		log.Error("failed to list digest recipients", "error", err)
		return false
	}
	if len(recipients) == 0 {
		log.Info("digest has campaigns but no recipients, skipping")
		return false
	}

	payload := jobs.CampaignDigestPayload{
		DigestID:   d.ID,
		RegionName: d.RegionName,
		Campaigns:  make([]jobs.DigestCampaign, 0, len(members)),
		Recipients: make([]jobs.DigestRecipient, 0, len(recipients)),
	}
	for _, m := range members {
		payload.Campaigns = append(payload.Campaigns, jobs.DigestCampaign{
			ID:           m.ID,
			Title:        m.Title,
			Organization: m.OrganizationName,
			City:         m.CityName,
			StartsAt:     m.StartsAt,
			EndsAt:       m.EndsAt,
		})
	}
	for _, r := range recipients {
		payload.Recipients = append(payload.Recipients, jobs.DigestRecipient{
			Email: r.Email,
			Name:  r.Name,
		})
	}

	job, err := jobs.New(jobs.TypeCampaignDigest, payload)
	if err != nil {
		log.Error("failed to build digest job", "error", err)
		return false
	}
	if err := a.queue.Enqueue(ctx, job); err != nil {
		log.Error("failed to enqueue digest job", "error", err)
		return false
	}
	recordDigestEnqueued()

	log.Info("digest job enqueued",
		"job_id", job.ID,
		"campaigns", len(payload.Campaigns),
		"recipients", len(payload.Recipients),
	)
	return true
}
