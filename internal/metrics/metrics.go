package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Total number of mock interview sessions started",
		},
		[]string{"difficulty"},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_ended_total",
			Help: "Total number of mock interview sessions that ended",
		},
		[]string{"reason"}, // expired | ended | abandoned
	)

	SessionsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_sessions_live",
			Help: "Sessions currently counting down",
		},
	)

	DeviceUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_device_unavailable_total",
			Help: "Sessions that started without camera or microphone",
		},
	)

	ReportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_report_jobs_total",
			Help: "Report generation jobs by outcome",
		},
		[]string{"status"}, // completed | retried | failed
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_report_duration_seconds",
			Help:    "Time spent generating an interview report",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"generator"},
	)
)
