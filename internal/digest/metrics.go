package digest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	campaignsAttached = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "donorhub",
			Subsystem: "digest",
			Name:      "campaigns_attached_total",
			Help:      "Total campaigns attached to daily digests",
		},
	)

	digestsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "donorhub",
			Subsystem: "digest",
			Name:      "jobs_enqueued_total",
			Help:      "Total digest email jobs enqueued by aggregation cycles",
		},
	)
)

func recordCampaignAttached() {
	campaignsAttached.Inc()
}

func recordDigestEnqueued() {
	digestsEnqueued.Inc()
}
