package metrics

import (
	"time"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	metrics "github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of MetricsEngine.
type Metrics struct {
	MetricsRegistry     metrics.Registry
	RequestStatuses     map[RequestStatus]metrics.Meter
	RequestTimer        metrics.Timer
	AuctionTimeoutMeter metrics.Meter
	GDPRActionCacheHit  metrics.Meter
	GDPRActionCacheMiss metrics.Meter
	AdapterMetrics      map[openrtb_ext.BidderName]*AdapterMetrics
}

// AdapterMetrics houses the metrics for a particular adapter
type AdapterMetrics struct {
	RequestMeter      metrics.Meter
	NoBidMeter        metrics.Meter
	BidsReceivedMeter metrics.Meter
	PanicMeter        metrics.Meter
	GDPRBlockedMeter  metrics.Meter
	ErrorMeters       map[AdapterError]metrics.Meter
	RequestTimer      metrics.Timer
	PriceHistogram    metrics.Histogram
	MarkupMetrics     map[openrtb_ext.BidType]*MarkupDeliveryMetrics
}

// MarkupDeliveryMetrics counts bids by how their creative is delivered.
type MarkupDeliveryMetrics struct {
	AdmMeter  metrics.Meter
	NurlMeter metrics.Meter
}

// NewMetrics creates a new Metrics object with all the metrics registered in registry.
func NewMetrics(registry metrics.Registry, exchanges []openrtb_ext.BidderName) *Metrics {
	newMetrics := &Metrics{
		MetricsRegistry:     registry,
		RequestStatuses:     make(map[RequestStatus]metrics.Meter),
		RequestTimer:        metrics.GetOrRegisterTimer("request_time", registry),
		AuctionTimeoutMeter: metrics.GetOrRegisterMeter("auction_timeouts", registry),
		GDPRActionCacheHit:  metrics.GetOrRegisterMeter("gdpr_action_cache.hit", registry),
		GDPRActionCacheMiss: metrics.GetOrRegisterMeter("gdpr_action_cache.miss", registry),
		AdapterMetrics:      make(map[openrtb_ext.BidderName]*AdapterMetrics, len(exchanges)),
	}

	for _, status := range RequestStatuses() {
		newMetrics.RequestStatuses[status] = metrics.GetOrRegisterMeter("requests."+string(status), registry)
	}

	for _, a := range exchanges {
		newMetrics.AdapterMetrics[a] = registerAdapterMetrics(registry, "adapter", string(a))
	}

	return newMetrics
}

func registerAdapterMetrics(registry metrics.Registry, prefix string, exchange string) *AdapterMetrics {
	name := func(metric string) string {
		return prefix + "." + exchange + "." + metric
	}

	am := &AdapterMetrics{
		RequestMeter:      metrics.GetOrRegisterMeter(name("requests"), registry),
		NoBidMeter:        metrics.GetOrRegisterMeter(name("no_bid_requests"), registry),
		BidsReceivedMeter: metrics.GetOrRegisterMeter(name("bids_received"), registry),
		PanicMeter:        metrics.GetOrRegisterMeter(name("panics"), registry),
		GDPRBlockedMeter:  metrics.GetOrRegisterMeter(name("gdpr_request_blocked"), registry),
		ErrorMeters:       make(map[AdapterError]metrics.Meter),
		RequestTimer:      metrics.GetOrRegisterTimer(name("request_time"), registry),
		PriceHistogram:    metrics.GetOrRegisterHistogram(name("prices"), registry, metrics.NewExpDecaySample(1028, 0.015)),
		MarkupMetrics:     make(map[openrtb_ext.BidType]*MarkupDeliveryMetrics),
	}
	for _, err := range AdapterErrors() {
		am.ErrorMeters[err] = metrics.GetOrRegisterMeter(name("requests."+string(err)), registry)
	}
	for _, bidType := range []openrtb_ext.BidType{openrtb_ext.BidTypeBanner, openrtb_ext.BidTypeVideo, openrtb_ext.BidTypeAudio, openrtb_ext.BidTypeNative} {
		am.MarkupMetrics[bidType] = &MarkupDeliveryMetrics{
			AdmMeter:  metrics.GetOrRegisterMeter(name(string(bidType)+".adm_bids_received"), registry),
			NurlMeter: metrics.GetOrRegisterMeter(name(string(bidType)+".nurl_bids_received"), registry),
		}
	}
	return am
}

func (me *Metrics) adapterMetrics(adapter openrtb_ext.BidderName) (*AdapterMetrics, bool) {
	am, ok := me.AdapterMetrics[adapter]
	if !ok {
		glog.Errorf("Trying to run adapter metrics on %s: adapter metrics not found", string(adapter))
	}
	return am, ok
}

// RecordRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordRequest(labels Labels) {
	if meter, ok := me.RequestStatuses[labels.RequestStatus]; ok {
		meter.Mark(1)
	}
}

// RecordRequestTime implements a part of the MetricsEngine interface. The calling code is responsible
// for determining the call duration.
func (me *Metrics) RecordRequestTime(labels Labels, length time.Duration) {
	// Only record times for successful requests, as we don't have labels to screen out bad requests.
	if labels.RequestStatus == RequestStatusOK {
		me.RequestTimer.Update(length)
	}
}

func (me *Metrics) RecordAuctionTimeout() {
	me.AuctionTimeoutMeter.Mark(1)
}

// RecordAdapterRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordAdapterRequest(labels AdapterLabels) {
	am, ok := me.adapterMetrics(labels.Adapter)
	if !ok {
		return
	}

	am.RequestMeter.Mark(1)
	if labels.AdapterBids == AdapterBidNone {
		am.NoBidMeter.Mark(1)
	}
	for err := range labels.AdapterErrors {
		am.ErrorMeters[err].Mark(1)
	}
}

func (me *Metrics) RecordAdapterPanic(labels AdapterLabels) {
	if am, ok := me.adapterMetrics(labels.Adapter); ok {
		am.PanicMeter.Mark(1)
	}
}

// RecordAdapterBidReceived implements a part of the MetricsEngine interface.
// This tracks how many bids from each Bidder use `adm` vs. `nurl.
func (me *Metrics) RecordAdapterBidReceived(labels AdapterLabels, bidType openrtb_ext.BidType, hasAdm bool) {
	am, ok := me.adapterMetrics(labels.Adapter)
	if !ok {
		return
	}

	am.BidsReceivedMeter.Mark(1)
	if markup, ok := am.MarkupMetrics[bidType]; ok {
		if hasAdm {
			markup.AdmMeter.Mark(1)
		} else {
			markup.NurlMeter.Mark(1)
		}
	}
}

// RecordAdapterPrice implements a part of the MetricsEngine interface. Generates a histogram of winning bid prices
func (me *Metrics) RecordAdapterPrice(labels AdapterLabels, cpm float64) {
	if am, ok := me.adapterMetrics(labels.Adapter); ok {
		// Histograms only accept int64; prices are tracked in thousandths of a unit.
		am.PriceHistogram.Update(int64(cpm * 1000))
	}
}

// RecordAdapterTime implements a part of the MetricsEngine interface. Records the adapter response time
func (me *Metrics) RecordAdapterTime(labels AdapterLabels, length time.Duration) {
	if am, ok := me.adapterMetrics(labels.Adapter); ok && len(labels.AdapterErrors) == 0 {
		am.RequestTimer.Update(length)
	}
}

func (me *Metrics) RecordAdapterGDPRRequestBlocked(adapterName openrtb_ext.BidderName) {
	if am, ok := me.adapterMetrics(adapterName); ok {
		am.GDPRBlockedMeter.Mark(1)
	}
}

func (me *Metrics) RecordGDPRActionCacheResult(hit bool) {
	if hit {
		me.GDPRActionCacheHit.Mark(1)
	} else {
		me.GDPRActionCacheMiss.Mark(1)
	}
}
