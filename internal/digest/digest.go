// Package digest maintains per-day, per-region collections of newly created
// campaigns and turns them into deliverable digest email jobs.
package digest

import "time"

// Digest is a per-day, per-region collection of campaigns. At most one
// digest exists per (date, region) pair.
type Digest struct {
	ID         string
	DigestDate time.Time
	RegionID   string
	RegionName string
	SentAt     *time.Time
	CreatedAt  time.Time
}

// Sent reports whether the digest email has gone out.
func (d *Digest) Sent() bool {
	return d.SentAt != nil
}

// MemberCampaign is a campaign attached to a digest, with the organization
// and city names resolved for rendering.
type MemberCampaign struct {
	ID               string
	Title            string
	OrganizationName string
	CityName         string
	StartsAt         time.Time
	EndsAt           *time.Time
	CreatedAt        time.Time
}

// CampaignInfo is the digest-relevant view of a campaign, with the region
// resolved transitively through the campaign's city.
type CampaignInfo struct {
	ID               string
	Title            string
	OrganizationName string
	CityName         string
	Location         string
	RegionID         string
	RegionName       string
	StartsAt         time.Time
}

// Day truncates a time to midnight UTC, the granularity digests are keyed on.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
