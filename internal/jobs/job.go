// Package jobs provides the durable job store and the polling processor
// that delivers asynchronous notification work at least once.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the handler a job is dispatched to.
type Type string

// Job types.
const (
	TypeBloodRequestNotification Type = "blood_request_notification"
	TypeCampaignDigest           Type = "campaign_digest"
)

// Status represents the lifecycle state of a job.
type Status string

// Job statuses. Completed and failed are terminal.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultMaxAttempts is the attempt budget for newly enqueued jobs.
const DefaultMaxAttempts = 3

// Job is a unit of asynchronous work persisted in the job store.
type Job struct {
	ID          string
	Type        Type
	Payload     json.RawMessage
	Status      Status
	Attempts    int
	MaxAttempts int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// BloodRequestPayload is the wire contract for blood-request notification
// jobs between enqueuers and the processor.
type BloodRequestPayload struct {
	RequestID string `json:"request_id"`
}

// DigestCampaign is a campaign embedded in a digest job payload. Names are
// captured at aggregation time so the send phase needs no extra queries;
// an organization renamed between aggregation and send keeps its old name
// in that digest.
type DigestCampaign struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Organization string     `json:"organization"`
	City         string     `json:"city"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
}

// DigestRecipient is an email recipient embedded in a digest job payload.
type DigestRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CampaignDigestPayload is the wire contract for campaign digest jobs.
type CampaignDigestPayload struct {
	DigestID   string            `json:"digest_id"`
	RegionName string            `json:"region_name"`
	Campaigns  []DigestCampaign  `json:"campaigns"`
	Recipients []DigestRecipient `json:"recipients"`
}

// New creates a pending job of the given type with a marshalled payload.
func New(jobType Type, payload interface{}) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", jobType, err)
	}

	return &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     raw,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
