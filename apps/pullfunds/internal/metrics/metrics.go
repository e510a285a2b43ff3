package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelRoute   = "route"
	labelMethod  = "method"
	labelSuccess = "success"
	labelOutcome = "outcome"
)

const (
	OutcomeMined       = "mined"
	OutcomeFailed      = "failed"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
)

type Collector struct {
	requestLatency *prometheus.HistogramVec
	requestCounter *prometheus.CounterVec
	resultCounter  *prometheus.CounterVec
	contractCalls  *prometheus.CounterVec
}

func NewCollector(prom prometheus.Registerer) (*Collector, error) {
	requestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pullfunds_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{labelRoute, labelMethod})

	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pullfunds_http_requests_total",
			Help: "A counter for HTTP requests by route.",
		},
		[]string{labelRoute, labelMethod},
	)

	resultCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pullfunds_results_total",
			Help: "A counter for business results by route and success flag.",
		},
		[]string{labelRoute, labelSuccess},
	)

	contractCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pullfunds_contract_calls_total",
			Help: "A counter for pullFunds invocations by outcome.",
		},
		[]string{labelOutcome},
	)

	var err error
	if requestLatency, err = registerCollector(prom, requestLatency); err != nil {
		return nil, err
	}
	if requestCounter, err = registerCollector(prom, requestCounter); err != nil {
		return nil, err
	}
	if resultCounter, err = registerCollector(prom, resultCounter); err != nil {
		return nil, err
	}
	if contractCalls, err = registerCollector(prom, contractCalls); err != nil {
		return nil, err
	}

	return &Collector{
		requestLatency: requestLatency,
		requestCounter: requestCounter,
		resultCounter:  resultCounter,
		contractCalls:  contractCalls,
	}, nil
}

func (c *Collector) ObserveRequest(route, method string, startTime time.Time) {
	labels := prometheus.Labels{labelRoute: route, labelMethod: method}
	c.requestLatency.With(labels).Observe(time.Since(startTime).Seconds())
	c.requestCounter.With(labels).Inc()
}

// IncResult counts the body-level outcome, which HTTP status codes never carry here
func (c *Collector) IncResult(route string, success bool) {
	c.resultCounter.With(prometheus.Labels{
		labelRoute:   route,
		labelSuccess: strconv.FormatBool(success),
	}).Inc()
}

func (c *Collector) IncContractCall(outcome string) {
	c.contractCalls.With(prometheus.Labels{labelOutcome: outcome}).Inc()
}

var (
	ErrWrongMetricType = errors.New("collector already registered with different type")
)

// registerCollector registers a Prometheus collector and returns the registered collector or an error
func registerCollector[T prometheus.Collector](prom prometheus.Registerer, c T) (T, error) {
	err := prom.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, ErrWrongMetricType
	}

	return existing, nil
}
