package prometheusmetrics

import (
	"strconv"
	"time"

	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry

	// General Metrics
	requests            *prometheus.CounterVec
	requestsTimer       *prometheus.HistogramVec
	auctionTimeouts     prometheus.Counter
	gdprActionCacheHits *prometheus.CounterVec

	// Adapter Metrics
	adapterBids          *prometheus.CounterVec
	adapterErrors        *prometheus.CounterVec
	adapterPanics        *prometheus.CounterVec
	adapterPrices        *prometheus.HistogramVec
	adapterRequests      *prometheus.CounterVec
	adapterRequestsTimer *prometheus.HistogramVec
	adapterGDPRBlocked   *prometheus.CounterVec
}

const (
	adapterErrorLabel   = "adapter_error"
	adapterLabel        = "adapter"
	bidTypeLabel        = "bid_type"
	cacheResultLabel    = "cache_result"
	hasBidsLabel        = "has_bids"
	markupDeliveryAdm   = "adm"
	markupDeliveryNurl  = "nurl"
	markupDeliveryLabel = "delivery"
	requestStatusLabel  = "request_status"
)

const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	standardTimeBuckets := []float64{0.05, 0.1, 0.15, 0.20, 0.25, 0.3, 0.4, 0.5, 0.75, 1}
	priceBuckets := []float64{250, 500, 750, 1000, 1500, 2000, 2500, 3000, 3500, 4000}

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.requests = newCounter(cfg, metrics.Registry,
		"requests",
		"Count of total auction requests labeled by status.",
		[]string{requestStatusLabel})

	metrics.requestsTimer = newHistogramVec(cfg, metrics.Registry,
		"request_time_seconds",
		"Seconds to resolve auction requests labeled by status.",
		[]string{requestStatusLabel},
		standardTimeBuckets)

	metrics.auctionTimeouts = newCounterWithoutLabels(cfg, metrics.Registry,
		"auction_timeouts",
		"Count of auctions whose deadline expired before every bidder answered.")

	metrics.gdprActionCacheHits = newCounter(cfg, metrics.Registry,
		"gdpr_action_cache_performance",
		"Count of GDPR enforcement decision cache lookups by hit or miss.",
		[]string{cacheResultLabel})

	metrics.adapterBids = newCounter(cfg, metrics.Registry,
		"adapter_bids",
		"Count of bids labeled by adapter, bid type and markup delivery type (adm or nurl).",
		[]string{adapterLabel, bidTypeLabel, markupDeliveryLabel})

	metrics.adapterErrors = newCounter(cfg, metrics.Registry,
		"adapter_errors",
		"Count of errors labeled by adapter and error type.",
		[]string{adapterLabel, adapterErrorLabel})

	metrics.adapterPanics = newCounter(cfg, metrics.Registry,
		"adapter_panics",
		"Count of panics labeled by adapter.",
		[]string{adapterLabel})

	metrics.adapterPrices = newHistogramVec(cfg, metrics.Registry,
		"adapter_prices",
		"Monetary value of the bids labeled by adapter.",
		[]string{adapterLabel},
		priceBuckets)

	metrics.adapterRequests = newCounter(cfg, metrics.Registry,
		"adapter_requests",
		"Count of requests labeled by adapter and whether they resulted in bids.",
		[]string{adapterLabel, hasBidsLabel})

	metrics.adapterRequestsTimer = newHistogramVec(cfg, metrics.Registry,
		"adapter_request_time_seconds",
		"Seconds to resolve each successful request labeled by adapter.",
		[]string{adapterLabel},
		standardTimeBuckets)

	metrics.adapterGDPRBlocked = newCounter(cfg, metrics.Registry,
		"adapter_gdpr_requests_blocked",
		"Count of total bidder requests blocked due to unsatisfied GDPR purpose 2 legal basis",
		[]string{adapterLabel})

	preloadLabelValues(&metrics)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func preloadLabelValues(m *Metrics) {
	for _, status := range metrics.RequestStatuses() {
		m.requests.With(prometheus.Labels{requestStatusLabel: string(status)})
	}
	for _, adapter := range openrtb_ext.CoreBidderNames() {
		for _, bid := range metrics.AdapterBids() {
			m.adapterRequests.With(prometheus.Labels{
				adapterLabel: string(adapter),
				hasBidsLabel: strconv.FormatBool(bid == metrics.AdapterBidPresent),
			})
		}
		for _, adapterErr := range metrics.AdapterErrors() {
			m.adapterErrors.With(prometheus.Labels{
				adapterLabel:      string(adapter),
				adapterErrorLabel: string(adapterErr),
			})
		}
	}
}

func (m *Metrics) RecordRequest(labels metrics.Labels) {
	m.requests.With(prometheus.Labels{
		requestStatusLabel: string(labels.RequestStatus),
	}).Inc()
}

func (m *Metrics) RecordRequestTime(labels metrics.Labels, length time.Duration) {
	m.requestsTimer.With(prometheus.Labels{
		requestStatusLabel: string(labels.RequestStatus),
	}).Observe(length.Seconds())
}

func (m *Metrics) RecordAuctionTimeout() {
	m.auctionTimeouts.Inc()
}

func (m *Metrics) RecordAdapterRequest(labels metrics.AdapterLabels) {
	m.adapterRequests.With(prometheus.Labels{
		adapterLabel: string(labels.Adapter),
		hasBidsLabel: strconv.FormatBool(labels.AdapterBids == metrics.AdapterBidPresent),
	}).Inc()

	for err := range labels.AdapterErrors {
		m.adapterErrors.With(prometheus.Labels{
			adapterLabel:      string(labels.Adapter),
			adapterErrorLabel: string(err),
		}).Inc()
	}
}

func (m *Metrics) RecordAdapterPanic(labels metrics.AdapterLabels) {
	m.adapterPanics.With(prometheus.Labels{
		adapterLabel: string(labels.Adapter),
	}).Inc()
}

func (m *Metrics) RecordAdapterBidReceived(labels metrics.AdapterLabels, bidType openrtb_ext.BidType, hasAdm bool) {
	markupDelivery := markupDeliveryNurl
	if hasAdm {
		markupDelivery = markupDeliveryAdm
	}

	m.adapterBids.With(prometheus.Labels{
		adapterLabel:        string(labels.Adapter),
		bidTypeLabel:        string(bidType),
		markupDeliveryLabel: markupDelivery,
	}).Inc()
}

func (m *Metrics) RecordAdapterPrice(labels metrics.AdapterLabels, cpm float64) {
	m.adapterPrices.With(prometheus.Labels{
		adapterLabel: string(labels.Adapter),
	}).Observe(cpm)
}

func (m *Metrics) RecordAdapterTime(labels metrics.AdapterLabels, length time.Duration) {
	if len(labels.AdapterErrors) == 0 {
		m.adapterRequestsTimer.With(prometheus.Labels{
			adapterLabel: string(labels.Adapter),
		}).Observe(length.Seconds())
	}
}

func (m *Metrics) RecordAdapterGDPRRequestBlocked(adapterName openrtb_ext.BidderName) {
	m.adapterGDPRBlocked.With(prometheus.Labels{
		adapterLabel: string(adapterName),
	}).Inc()
}

func (m *Metrics) RecordGDPRActionCacheResult(hit bool) {
	result := cacheMiss
	if hit {
		result = cacheHit
	}
	m.gdprActionCacheHits.With(prometheus.Labels{
		cacheResultLabel: result,
	}).Inc()
}
