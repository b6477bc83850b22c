// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_messages_sent_total",
			Help: "Total messages dispatched through the channel",
		},
		[]string{"kind", "status"},
	)

	ResponsesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "responses_classified_total",
			Help: "Total approval responses classified by decision and method",
		},
		[]string{"decision", "method"},
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total OTP verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	LockersClaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockers_claimed_total",
			Help: "Total locker claims by type and outcome",
		},
		[]string{"locker_type", "outcome"},
	)

	ChannelSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "channel_sessions_active",
			Help: "Number of active messaging channel sessions",
		},
	)
)
