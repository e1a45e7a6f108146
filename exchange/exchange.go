package exchange

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/gdpr"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/prebid/prebid-mediation/privacy"
)

// Bid is one bid normalized out of a bidder's response. It always carries one media type and one currency.
type Bid struct {
	Bid      *openrtb2.Bid
	BidType  openrtb_ext.BidType
	Currency string
	Bidder   openrtb_ext.BidderName
}

// SeatResult is everything one bidder contributed to an auction.
type SeatResult struct {
	Bidder   openrtb_ext.BidderName
	Currency string
	Result   adapters.Result[*Bid]
	Elapsed  time.Duration
}

// AuctionRequest is the input to HoldAuction. BidRequest is never modified.
type AuctionRequest struct {
	BidRequest *openrtb2.BidRequest
	GDPRSignal gdpr.Signal
	Consent    string
}

// AuctionResult holds one SeatResult per dispatched bidder, in registration order.
type AuctionResult struct {
	Seats []*SeatResult
	// Errors are request level problems which could not be attributed to a bidder.
	Errors []error
	// Warnings are request level notices, such as an unreadable consent string.
	Warnings []error
}

// Merged concatenates every seat's bids and errors in registration order.
func (r *AuctionResult) Merged() adapters.Result[*Bid] {
	results := make([]adapters.Result[*Bid], 0, len(r.Seats))
	for _, seat := range r.Seats {
		results = append(results, seat.Result)
	}
	return adapters.MergeAll(results...)
}

// Exchange runs auctions. The Dispatcher is the only implementation outside of tests.
type Exchange interface {
	HoldAuction(ctx context.Context, r AuctionRequest) *AuctionResult
}

// Dispatcher fans an auction out to its bidders and merges what they return.
type Dispatcher struct {
	bidders            []registeredBidder
	me                 metrics.MetricsEngine
	permissionsBuilder gdpr.PermissionsBuilder
	scrubber           privacy.Scrubber
	timeouts           config.Timeouts
	currencyDefault    string
}

type registeredBidder struct {
	name   openrtb_ext.BidderName
	bidder AdaptedBidder
}

type seatOutcome struct {
	index int
	seat  *SeatResult
}

// NewDispatcher registers bidders in core bidder order. Bidders missing from the map are not called.
func NewDispatcher(bidders map[openrtb_ext.BidderName]AdaptedBidder, cfg *config.Configuration, me metrics.MetricsEngine, permissionsBuilder gdpr.PermissionsBuilder, scrubber privacy.Scrubber) *Dispatcher {
	registered := make([]registeredBidder, 0, len(bidders))
	for _, name := range openrtb_ext.CoreBidderNames() {
		if bidder, ok := bidders[name]; ok {
			registered = append(registered, registeredBidder{name: name, bidder: bidder})
		}
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	if scrubber == nil {
		scrubber = privacy.NewScrubber()
	}

	return &Dispatcher{
		bidders:            registered,
		me:                 me,
		permissionsBuilder: permissionsBuilder,
		scrubber:           scrubber,
		timeouts:           cfg.Timeouts,
		currencyDefault:    cfg.CurrencyDefault,
	}
}

// HoldAuction dispatches the request to every registered bidder named by at least one imp. It
// returns once every bidder has answered or the auction deadline passed, whichever comes first.
func (d *Dispatcher) HoldAuction(ctx context.Context, r AuctionRequest) *AuctionResult {
	result := &AuctionResult{}
	if r.BidRequest == nil {
		result.Errors = append(result.Errors, &errortypes.BadInput{Message: "request is empty"})
		return result
	}

	active := make(map[openrtb_ext.BidderName]struct{}, len(d.bidders))
	for _, b := range d.bidders {
		active[b.name] = struct{}{}
	}
	bidderImps, errs := splitImps(r.BidRequest.Imp, active)
	result.Errors = append(result.Errors, errs...)

	var permissions gdpr.Permissions = gdpr.AlwaysAllow{}
	if d.permissionsBuilder != nil {
		var warnings []error
		permissions, warnings = d.permissionsBuilder(r.GDPRSignal, r.Consent)
		result.Warnings = append(result.Warnings, warnings...)
	}

	type dispatch struct {
		bidder  registeredBidder
		request *openrtb2.BidRequest
	}
	var dispatches []dispatch
	for _, b := range d.bidders {
		imps, ok := bidderImps[b.name]
		if !ok {
			continue
		}

		action := permissions.EnforcementAction(b.name)
		if action.BlockBidderRequest {
			d.me.RecordAdapterGDPRRequestBlocked(b.name)
			continue
		}

		bidderRequest := *r.BidRequest
		bidderRequest.Imp = imps
		dispatches = append(dispatches, dispatch{
			bidder:  b,
			request: d.scrubber.Apply(action, &bidderRequest),
		})
	}

	auctionCtx, cancel := context.WithTimeout(ctx, d.timeouts.AuctionTimeout(r.BidRequest.TMax))
	defer cancel()

	reqInfo := adapters.NewExtraRequestInfo(d.currencyDefault)
	chSeats := make(chan seatOutcome, len(dispatches))
	for i, dp := range dispatches {
		go d.recoverSafely(i, dp.bidder.name, func() *SeatResult {
			return dp.bidder.bidder.requestBid(auctionCtx, dp.request, &reqInfo)
		}, chSeats)()
	}

	seats := make([]*SeatResult, len(dispatches))
	received := 0
	for received < len(dispatches) {
		select {
		case outcome := <-chSeats:
			seats[outcome.index] = outcome.seat
			received++
		case <-auctionCtx.Done():
			// A cancelled parent means the caller went away, which is not a deadline miss.
			cancelled := errors.Is(auctionCtx.Err(), context.Canceled)
			if !cancelled {
				d.me.RecordAuctionTimeout()
			}
			for i, seat := range seats {
				if seat == nil {
					seats[i] = unfinishedSeat(dispatches[i].bidder.name, d.currencyDefault, cancelled)
				}
			}
			received = len(dispatches)
		}
	}

	result.Seats = seats
	return result
}

// recoverSafely runs inner and delivers its seat on chSeats. A panic is turned into a seat with one
// Generic error, so the auction never waits for a bidder which crashed.
func (d *Dispatcher) recoverSafely(index int, name openrtb_ext.BidderName, inner func() *SeatResult, chSeats chan<- seatOutcome) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				glog.Errorf("OpenRTB auction recovered panic from Bidder %s: %v. Stack trace is: %v", name, r, string(debug.Stack()))
				d.me.RecordAdapterPanic(metrics.AdapterLabels{Adapter: name})

				chSeats <- seatOutcome{
					index: index,
					seat: &SeatResult{
						Bidder:   name,
						Currency: adapters.NormalizeCurrency("", d.currencyDefault),
						Result:   adapters.EmptyWithError[*Bid](&errortypes.Generic{Message: fmt.Sprintf("bidder %s panicked: %v", name, r)}),
					},
				}
			}
		}()
		chSeats <- seatOutcome{index: index, seat: inner()}
	}
}

// unfinishedSeat explains the absence of a bidder which had not answered when the auction ended.
func unfinishedSeat(name openrtb_ext.BidderName, currencyDefault string, cancelled bool) *SeatResult {
	var err error = &errortypes.Timeout{Message: fmt.Sprintf("%s did not respond before the auction deadline", name)}
	if cancelled {
		err = &errortypes.Generic{Message: fmt.Sprintf("auction cancelled before %s responded", name)}
	}
	return &SeatResult{
		Bidder:   name,
		Currency: adapters.NormalizeCurrency("", currencyDefault),
		Result:   adapters.EmptyWithError[*Bid](err),
	}
}
