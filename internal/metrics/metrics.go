package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timesync_build_info",
			Help: "Build information of timesyncd",
		},
		[]string{"version", "commit", "date"},
	)

	SNTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timesync_sntp_requests_total",
		Help: "Total number of SNTP datagrams received by the responder",
	}, []string{"result"})

	SNTPListening = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timesync_sntp_listening",
		Help: "Whether the SNTP responder socket is bound (1) or not (0)",
	})

	SyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timesync_sync_total",
		Help: "Total number of upstream synchronization cycles",
	}, []string{"result"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timesync_sync_duration_seconds",
		Help:    "Duration of an upstream synchronization cycle",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 11), // 5ms .. ~5s
	})

	SyncOffset = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timesync_sync_offset_seconds",
		Help: "Clock offset to the upstream server measured in the last successful cycle",
	})

	SyncRTT = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timesync_sync_rtt_seconds",
		Help: "Round trip time to the upstream server in the last successful cycle",
	})
)
