package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripchat_chat_requests_total",
			Help: "Total number of chat pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	chatPipelineSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripchat_chat_pipeline_duration_seconds",
			Help:    "End-to-end chat pipeline latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	sqlGenerationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripchat_sql_generation_duration_seconds",
			Help:    "Latency of the SQL-generation model call.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
	answerGenerationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripchat_answer_generation_duration_seconds",
			Help:    "Latency of the answer-generation model call.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripchat_query_execution_duration_seconds",
			Help:    "Latency of guarded trip queries.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripchat_query_rows_returned",
			Help:    "Rows returned per guarded trip query, after the row cap.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)
	queryRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripchat_query_rejections_total",
			Help: "Generated queries rejected by the safety policy, by rule.",
		},
		[]string{"rule"},
	)
	modelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripchat_model_tokens_total",
			Help: "Model token usage by call and kind.",
		},
		[]string{"call", "kind"},
	)
	sessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tripchat_sessions_created_total",
			Help: "Total number of chat sessions created.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		chatRequestsTotal,
		chatPipelineSeconds,
		sqlGenerationSeconds,
		answerGenerationSeconds,
		queryExecutionSeconds,
		queryRowsReturned,
		queryRejectionsTotal,
		modelTokensTotal,
		sessionsCreatedTotal,
	)
}

func ObserveChatOutcome(outcome string, elapsed time.Duration) {
	chatRequestsTotal.WithLabelValues(outcome).Inc()
	chatPipelineSeconds.Observe(elapsed.Seconds())
}

func ObserveSQLGeneration(elapsed time.Duration) {
	sqlGenerationSeconds.Observe(elapsed.Seconds())
}

func ObserveAnswerGeneration(elapsed time.Duration) {
	answerGenerationSeconds.Observe(elapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration, rows int) {
	queryExecutionSeconds.Observe(elapsed.Seconds())
	if rows >= 0 {
		queryRowsReturned.Observe(float64(rows))
	}
}

func ObserveQueryRejected(rule string) {
	queryRejectionsTotal.WithLabelValues(rule).Inc()
}

func ObserveModelTokens(call string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		modelTokensTotal.WithLabelValues(call, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		modelTokensTotal.WithLabelValues(call, "completion").Add(float64(completionTokens))
	}
}

func IncrementSessionsCreated() {
	sessionsCreatedTotal.Inc()
}
