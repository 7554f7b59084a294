package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "frames_processed_total",
		Help:      "Total number of camera frames processed",
	}, []string{"mode"})

	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected",
	}, []string{"mode"})

	MatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "match_outcomes_total",
		Help:      "Recognition decisions by outcome",
	}, []string{"outcome"})

	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "attendance_marked_total",
		Help:      "Attendance records inserted",
	})

	SamplesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "samples_captured_total",
		Help:      "Face samples stored by capture sessions",
	})

	TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "training_runs_total",
		Help:      "Model training runs by result",
	}, []string{"result"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rollcall",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"stage"})

	ModelOwners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rollcall",
		Name:      "model_owners",
		Help:      "Number of identities in the current model",
	})
)
