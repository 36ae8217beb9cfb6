package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "flagbot_pipeline_stage_duration_sec",
	Help: "Duration of each scoring pipeline stage",
}, []string{"stage"})

var runCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flagbot_pipeline_runs",
	Help: "Number of scoring runs by outcome",
}, []string{"status"})

var messageCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flagbot_pipeline_messages",
	Help: "Number of scored messages by decision",
}, []string{"decision"})

var labelFitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flagbot_label_fit_failures",
	Help: "Number of label classifiers that could not be fit",
}, []string{"label"})

var modelCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "flagbot_model_cache_hits",
	Help: "Number of runs that reused a fitted model",
})
