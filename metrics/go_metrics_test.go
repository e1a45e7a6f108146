package metrics

import (
	"testing"
	"time"

	"github.com/prebid/prebid-mediation/openrtb_ext"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
)

func createMetricsForTesting() *Metrics {
	return NewMetrics(metrics.NewRegistry(), openrtb_ext.CoreBidderNames())
}

func ensureContains(t *testing.T, registry metrics.Registry, name string, metric interface{}) {
	t.Helper()
	if inRegistry := registry.Get(name); inRegistry == nil {
		t.Errorf("No metric in registry at %s.", name)
	} else if inRegistry != metric {
		t.Errorf("Bad value stored at metric %s.", name)
	}
}

func TestNewMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	m := NewMetrics(registry, []openrtb_ext.BidderName{openrtb_ext.BidderMobilefuse})

	ensureContains(t, registry, "request_time", m.RequestTimer)
	ensureContains(t, registry, "auction_timeouts", m.AuctionTimeoutMeter)
	ensureContains(t, registry, "requests.ok", m.RequestStatuses[RequestStatusOK])
	ensureContains(t, registry, "requests.badinput", m.RequestStatuses[RequestStatusBadInput])

	am := m.AdapterMetrics[openrtb_ext.BidderMobilefuse]
	ensureContains(t, registry, "adapter.mobilefuse.requests", am.RequestMeter)
	ensureContains(t, registry, "adapter.mobilefuse.no_bid_requests", am.NoBidMeter)
	ensureContains(t, registry, "adapter.mobilefuse.requests.timeout", am.ErrorMeters[AdapterErrorTimeout])
	ensureContains(t, registry, "adapter.mobilefuse.request_time", am.RequestTimer)
	ensureContains(t, registry, "adapter.mobilefuse.video.adm_bids_received", am.MarkupMetrics[openrtb_ext.BidTypeVideo].AdmMeter)
}

func TestRecordAdapterRequestGoMetrics(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordAdapterRequest(AdapterLabels{
		Adapter:       openrtb_ext.BidderRubicon,
		AdapterBids:   AdapterBidNone,
		AdapterErrors: map[AdapterError]struct{}{AdapterErrorBadServerResponse: {}},
	})
	m.RecordAdapterRequest(AdapterLabels{
		Adapter:     openrtb_ext.BidderRubicon,
		AdapterBids: AdapterBidPresent,
	})

	am := m.AdapterMetrics[openrtb_ext.BidderRubicon]
	assert.Equal(t, int64(2), am.RequestMeter.Count())
	assert.Equal(t, int64(1), am.NoBidMeter.Count())
	assert.Equal(t, int64(1), am.ErrorMeters[AdapterErrorBadServerResponse].Count())
	assert.Equal(t, int64(0), am.ErrorMeters[AdapterErrorTimeout].Count())
}

func TestRecordUnknownAdapterIsIgnored(t *testing.T) {
	m := createMetricsForTesting()

	assert.NotPanics(t, func() {
		m.RecordAdapterRequest(AdapterLabels{Adapter: "unknown"})
		m.RecordAdapterPanic(AdapterLabels{Adapter: "unknown"})
		m.RecordAdapterGDPRRequestBlocked("unknown")
	})
}

func TestRecordAdapterBidReceivedGoMetrics(t *testing.T) {
	m := createMetricsForTesting()
	labels := AdapterLabels{Adapter: openrtb_ext.BidderMobilefuse}

	m.RecordAdapterBidReceived(labels, openrtb_ext.BidTypeBanner, true)
	m.RecordAdapterBidReceived(labels, openrtb_ext.BidTypeBanner, false)
	m.RecordAdapterBidReceived(labels, openrtb_ext.BidTypeVideo, true)

	am := m.AdapterMetrics[openrtb_ext.BidderMobilefuse]
	assert.Equal(t, int64(3), am.BidsReceivedMeter.Count())
	assert.Equal(t, int64(1), am.MarkupMetrics[openrtb_ext.BidTypeBanner].AdmMeter.Count())
	assert.Equal(t, int64(1), am.MarkupMetrics[openrtb_ext.BidTypeBanner].NurlMeter.Count())
	assert.Equal(t, int64(1), am.MarkupMetrics[openrtb_ext.BidTypeVideo].AdmMeter.Count())
}

func TestRecordTimesGoMetrics(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordRequestTime(Labels{RequestStatus: RequestStatusOK}, 20*time.Millisecond)
	m.RecordRequestTime(Labels{RequestStatus: RequestStatusErr}, 20*time.Millisecond)
	m.RecordAdapterTime(AdapterLabels{Adapter: openrtb_ext.BidderRubicon}, 10*time.Millisecond)
	m.RecordAdapterTime(AdapterLabels{
		Adapter:       openrtb_ext.BidderRubicon,
		AdapterErrors: map[AdapterError]struct{}{AdapterErrorTimeout: {}},
	}, 10*time.Millisecond)

	assert.Equal(t, int64(1), m.RequestTimer.Count())
	assert.Equal(t, int64(1), m.AdapterMetrics[openrtb_ext.BidderRubicon].RequestTimer.Count())
}

func TestRecordMiscGoMetrics(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordRequest(Labels{RequestStatus: RequestStatusOK})
	m.RecordAuctionTimeout()
	m.RecordAdapterPanic(AdapterLabels{Adapter: openrtb_ext.BidderMobilefuse})
	m.RecordAdapterGDPRRequestBlocked(openrtb_ext.BidderMobilefuse)
	m.RecordAdapterPrice(AdapterLabels{Adapter: openrtb_ext.BidderMobilefuse}, 1.5)
	m.RecordGDPRActionCacheResult(true)
	m.RecordGDPRActionCacheResult(false)

	am := m.AdapterMetrics[openrtb_ext.BidderMobilefuse]
	assert.Equal(t, int64(1), m.RequestStatuses[RequestStatusOK].Count())
	assert.Equal(t, int64(1), m.AuctionTimeoutMeter.Count())
	assert.Equal(t, int64(1), am.PanicMeter.Count())
	assert.Equal(t, int64(1), am.GDPRBlockedMeter.Count())
	assert.Equal(t, int64(1500), am.PriceHistogram.Max())
	assert.Equal(t, int64(1), m.GDPRActionCacheHit.Count())
	assert.Equal(t, int64(1), m.GDPRActionCacheMiss.Count())
}
