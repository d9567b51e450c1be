package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/trustmesh/rpn/logx"
)

type SubmissionRejectedReason string

var (
	SubmissionStakeInsufficient SubmissionRejectedReason = "stake_insufficient"
	SubmissionDuplicated        SubmissionRejectedReason = "duplicated"
	SubmissionBadStepCount      SubmissionRejectedReason = "bad_step_count"
	SubmissionUnboundScores     SubmissionRejectedReason = "unbound_scores"
	SubmissionRejectedUnknown   SubmissionRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds        prometheus.Gauge
	currentEpoch             prometheus.Gauge
	trustEdgeCount           prometheus.Gauge
	submissionCount          prometheus.Counter
	rejectedSubmissionCount  *prometheus.CounterVec
	openChallengeCount       prometheus.Gauge
	bisectionRounds          prometheus.Histogram
	resolvedGameCount        *prometheus.CounterVec
	slashedAmount            prometheus.Counter
	propagationPasses        prometheus.Histogram
	propagationSteps         prometheus.Histogram
	propagationDuration      prometheus.Histogram
	invariantViolationCount  prometheus.Counter
	panicCount               prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rpn_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		currentEpoch: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rpn_node_current_epoch",
				Help: "The current refresh epoch",
			},
		),
		trustEdgeCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rpn_node_trust_edge_count",
				Help: "The total number of trust edges in the live graph",
			},
		),
		submissionCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rpn_node_submission_count",
				Help: "The total number of accepted refresh submissions",
			},
		),
		rejectedSubmissionCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpn_node_rejected_submission_count",
				Help: "The total number of rejected refresh submissions",
			},
			[]string{"reason"},
		),
		openChallengeCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rpn_node_open_challenge_count",
				Help: "Number of challenge games currently in progress",
			},
		),
		bisectionRounds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rpn_node_bisection_rounds",
				Help:    "Number of bisection rounds played before a game resolved",
				Buckets: prometheus.LinearBuckets(1, 2, 16),
			},
		),
		resolvedGameCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpn_node_resolved_game_count",
				Help: "The total number of resolved challenge games",
			},
			[]string{"winner"},
		),
		slashedAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rpn_node_slashed_amount",
				Help: "Cumulative stake amount slashed to the deterrent fund",
			},
		),
		propagationPasses: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rpn_node_propagation_passes",
				Help:    "Number of passes a propagation run took before stopping",
				Buckets: prometheus.LinearBuckets(1, 1, 16),
			},
		),
		propagationSteps: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "rpn_node_propagation_steps",
				Help: "Number of step records a propagation run produced",
			},
		),
		propagationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "rpn_node_propagation_duration_seconds",
				Help: "Duration in seconds of a full off-chain propagation run",
			},
		),
		invariantViolationCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rpn_node_invariant_violation_count",
				Help: "Number of detected protocol invariant violations (never expected to move)",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rpn_node_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var nodeMetrics *nodePromMetrics

// InitMetrics initialize metrics for node but not expose to api yet
func InitMetrics() {
	nodeMetrics = newNodePromMetrics()
	nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetCurrentEpoch(epoch uint64) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.currentEpoch.Set(float64(epoch))
}

func SetTrustEdgeCount(count int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.trustEdgeCount.Set(float64(count))
}

func IncreaseSubmissionCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.submissionCount.Inc()
}

func RecordRejectedSubmission(reason SubmissionRejectedReason) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.rejectedSubmissionCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func SetOpenChallengeCount(count int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.openChallengeCount.Set(float64(count))
}

func RecordBisectionRounds(rounds int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.bisectionRounds.Observe(float64(rounds))
}

func RecordResolvedGame(winner string) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.resolvedGameCount.With(prometheus.Labels{
		"winner": winner,
	}).Inc()
}

func AddSlashedAmount(amount float64) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.slashedAmount.Add(amount)
}

func RecordPropagationRun(passes uint32, steps int, seconds float64) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.propagationPasses.Observe(float64(passes))
	nodeMetrics.propagationSteps.Observe(float64(steps))
	nodeMetrics.propagationDuration.Observe(seconds)
}

func IncreaseInvariantViolationCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.invariantViolationCount.Inc()
}

// InvariantViolationTotal reads the current value of the violation counter,
// zero before InitMetrics. Ops alerting keys off this number staying at zero.
func InvariantViolationTotal() float64 {
	if nodeMetrics == nil {
		return 0
	}
	var m dto.Metric
	if err := nodeMetrics.invariantViolationCount.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func IncreasePanicCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.panicCount.Inc()
}
