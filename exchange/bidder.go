package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"golang.org/x/net/context/ctxhttp"
)

// AdaptedBidder defines the contract needed to participate in an auction dispatched by the Dispatcher.
//
// Any logic which can be done _within a single Seat_ goes inside one of these.
// Any logic which _requires responses from all Seats_ goes inside the Dispatcher.
//
// This interface differs from adapters.Bidder to keep transport and error classification out of
// the adapters.Bidder implementations.
type AdaptedBidder interface {
	// requestBid fetches bids for the given request. It never panics on a bad upstream; every
	// failure is returned in the seat's error list.
	requestBid(ctx context.Context, request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo) *SeatResult
}

// AdaptBidder converts an adapters.Bidder into an exchange.AdaptedBidder.
func AdaptBidder(bidder adapters.Bidder, client *http.Client, cfg *config.Configuration, me metrics.MetricsEngine, name openrtb_ext.BidderName, clk clock.Clock) AdaptedBidder {
	if clk == nil {
		clk = clock.New()
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	return &bidderAdapter{
		Bidder:      bidder,
		BidderName:  name,
		Client:      client,
		me:          me,
		callTimeout: cfg.Timeouts.BidderCallTimeout(),
		clock:       clk,
	}
}

type bidderAdapter struct {
	Bidder      adapters.Bidder
	BidderName  openrtb_ext.BidderName
	Client      *http.Client
	me          metrics.MetricsEngine
	callTimeout time.Duration
	clock       clock.Clock
}

type httpCallInfo struct {
	request  *adapters.RequestData
	response *adapters.ResponseData
	err      error
}

func (bidder *bidderAdapter) requestBid(ctx context.Context, request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo) *SeatResult {
	start := bidder.clock.Now()
	seat := bidder.makeSeat(ctx, request, reqInfo)
	seat.Elapsed = bidder.clock.Since(start)

	bidder.recordMetrics(seat)
	return seat
}

func (bidder *bidderAdapter) makeSeat(ctx context.Context, request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo) *SeatResult {
	seat := &SeatResult{
		Bidder:   bidder.BidderName,
		Currency: adapters.NormalizeCurrency("", reqInfo.CurrencyDefault),
	}

	reqData, errs := bidder.Bidder.MakeRequests(request, reqInfo)
	if len(reqData) == 0 {
		// If the adapter failed to generate both requests and errors, this is an error.
		if len(errs) == 0 {
			errs = append(errs, &errortypes.FailedToRequestBids{Message: "The adapter failed to generate any bid requests, but also failed to generate an error explaining why"})
		}
		seat.Result = adapters.NewResult[*Bid](nil, errs)
		return seat
	}

	// Make the HTTP requests in parallel. Each call writes its own slot so results keep call order.
	// If the bidder only needs to make one, save some cycles by just using the current goroutine.
	responses := make([]*httpCallInfo, len(reqData))
	if len(reqData) == 1 {
		responses[0] = bidder.doRequest(ctx, reqData[0])
	} else {
		var wg sync.WaitGroup
		for i, oneReqData := range reqData {
			wg.Add(1)
			go func(i int, data *adapters.RequestData) {
				defer wg.Done()
				responses[i] = bidder.doRequest(ctx, data)
			}(i, oneReqData)
		}
		wg.Wait()
	}

	var bids []*Bid
	currencySet := false
	timedOut := false
	for _, httpInfo := range responses {
		if httpInfo.err != nil {
			// A bidder reports at most one timeout no matter how many of its calls ran out of time.
			if _, isTimeout := httpInfo.err.(*errortypes.Timeout); isTimeout {
				if timedOut {
					continue
				}
				timedOut = true
			}
			errs = append(errs, httpInfo.err)
			continue
		}

		bidResponse, moreErrs := bidder.Bidder.MakeBids(request, httpInfo.request, httpInfo.response)
		errs = append(errs, moreErrs...)
		if bidResponse == nil {
			continue
		}

		currency := adapters.NormalizeCurrency(bidResponse.Currency, seat.Currency)
		if !currencySet {
			seat.Currency = currency
			currencySet = true
		}

		for _, typedBid := range bidResponse.Bids {
			if typedBid == nil || typedBid.Bid == nil {
				continue
			}
			bids = append(bids, &Bid{
				Bid:      typedBid.Bid,
				BidType:  typedBid.BidType,
				Currency: currency,
				Bidder:   bidder.BidderName,
			})
		}
	}

	seat.Result = adapters.NewResult(bids, errs)
	return seat
}

func (bidder *bidderAdapter) recordMetrics(seat *SeatResult) {
	labels := metrics.AdapterLabels{
		Adapter:       bidder.BidderName,
		AdapterBids:   bidsToMetric(seat.Result.Values),
		AdapterErrors: errorsToMetric(seat.Result.Errors),
	}
	bidder.me.RecordAdapterRequest(labels)
	bidder.me.RecordAdapterTime(labels, seat.Elapsed)

	for _, bid := range seat.Result.Values {
		bidder.me.RecordAdapterBidReceived(labels, bid.BidType, bid.Bid.AdM != "")
		bidder.me.RecordAdapterPrice(labels, bid.Bid.Price)
	}
}

func (bidder *bidderAdapter) doRequest(ctx context.Context, req *adapters.RequestData) *httpCallInfo {
	return bidder.doRequestImpl(ctx, req, glog.Warningf)
}

func (bidder *bidderAdapter) doRequestImpl(ctx context.Context, req *adapters.RequestData, logger func(format string, args ...interface{})) *httpCallInfo {
	httpReq, err := http.NewRequest(req.Method, req.Uri, bytes.NewBuffer(req.Body))
	if err != nil {
		return &httpCallInfo{
			request: req,
			err:     &errortypes.Generic{Message: err.Error()},
		}
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
	}

	if bidder.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bidder.callTimeout)
		defer cancel()
	}

	httpResp, err := ctxhttp.Do(ctx, bidder.Client, httpReq)
	if err != nil {
		if err == context.DeadlineExceeded {
			return &httpCallInfo{
				request: req,
				err:     &errortypes.Timeout{Message: err.Error()},
			}
		}
		logger("Error calling %s at %s: %v", bidder.BidderName, req.Uri, err)
		return &httpCallInfo{
			request: req,
			err:     &errortypes.Generic{Message: err.Error()},
		}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &httpCallInfo{
				request: req,
				err:     &errortypes.Timeout{Message: ctx.Err().Error()},
			}
		}
		return &httpCallInfo{
			request: req,
			err:     &errortypes.Generic{Message: fmt.Sprintf("Error reading response from %s: %v", bidder.BidderName, err)},
		}
	}

	return &httpCallInfo{
		request: req,
		response: &adapters.ResponseData{
			StatusCode: httpResp.StatusCode,
			Body:       respBody,
			Headers:    httpResp.Header,
		},
	}
}
