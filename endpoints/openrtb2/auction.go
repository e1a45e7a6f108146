package openrtb2

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/exchange"
	"github.com/prebid/prebid-mediation/gdpr"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/prebid/prebid-mediation/util/uuidutil"
)

// requestLevelKey holds errors in response.ext.errors which no single bidder caused.
const requestLevelKey openrtb_ext.BidderName = "prebid"

func NewEndpoint(uuidGenerator uuidutil.UUIDGenerator, ex exchange.Exchange, validator openrtb_ext.BidderParamValidator, cfg *config.Configuration, me metrics.MetricsEngine, clk clock.Clock) (httprouter.Handle, error) {
	if ex == nil || validator == nil || cfg == nil || me == nil {
		return nil, errors.New("NewEndpoint requires non-nil arguments.")
	}
	if uuidGenerator == nil {
		uuidGenerator = uuidutil.UUIDRandomGenerator{}
	}
	if clk == nil {
		clk = clock.New()
	}

	return httprouter.Handle((&endpointDeps{
		uuidGenerator:   uuidGenerator,
		ex:              ex,
		paramsValidator: validator,
		cfg:             cfg,
		metricsEngine:   me,
		clock:           clk,
	}).Auction), nil
}

type endpointDeps struct {
	uuidGenerator   uuidutil.UUIDGenerator
	ex              exchange.Exchange
	paramsValidator openrtb_ext.BidderParamValidator
	cfg             *config.Configuration
	metricsEngine   metrics.MetricsEngine
	clock           clock.Clock
}

// parsedRequest is everything the auction needs out of one inbound HTTP request.
type parsedRequest struct {
	bidRequest *openrtb2.BidRequest
	gdprSignal gdpr.Signal
	consent    string
}

func (deps *endpointDeps) Auction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := deps.clock.Now()
	labels := metrics.Labels{
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		deps.metricsEngine.RecordRequest(labels)
		deps.metricsEngine.RecordRequestTime(labels, deps.clock.Since(start))
	}()

	parsed, errL := deps.parseRequest(r)
	if len(errL) > 0 {
		labels.RequestStatus = metrics.RequestStatusBadInput
		w.WriteHeader(http.StatusBadRequest)
		for _, err := range errL {
			fmt.Fprintf(w, "Invalid request: %s\n", err.Error())
		}
		return
	}

	result := deps.ex.HoldAuction(r.Context(), exchange.AuctionRequest{
		BidRequest: parsed.bidRequest,
		GDPRSignal: parsed.gdprSignal,
		Consent:    parsed.consent,
	})

	response, err := buildResponse(parsed.bidRequest, result)
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusErr
		glog.Errorf("/openrtb2/auction failed to build a response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Critical error while running the auction: %v", err)
		return
	}

	responseBytes, err := json.Marshal(response)
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusErr
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Failed to marshal auction response: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(responseBytes)
}

// parseRequest turns the HTTP request into an OpenRTB request plus its privacy signals.
//
// If the errors list is empty, the returned request has an id, at least one imp, and bidder params
// which pass their JSON schema. If the errors list has at least one element, then no guarantees are
// made about the returned request.
func (deps *endpointDeps) parseRequest(httpRequest *http.Request) (parsedRequest, []error) {
	var parsed parsedRequest

	requestJson, err := deps.readBody(httpRequest)
	if err != nil {
		return parsed, []error{err}
	}

	bidRequest := &openrtb2.BidRequest{}
	if err := json.Unmarshal(requestJson, bidRequest); err != nil {
		return parsed, []error{&errortypes.BadInput{Message: err.Error()}}
	}

	if bidRequest.ID == "" {
		id, err := deps.uuidGenerator.Generate()
		if err != nil {
			return parsed, []error{fmt.Errorf("request.id is missing and a new one could not be generated: %v", err)}
		}
		bidRequest.ID = id
	}

	if err := deps.validateRequest(bidRequest); err != nil {
		return parsed, []error{err}
	}

	signal, err := readGDPRSignal(bidRequest)
	if err != nil {
		return parsed, []error{err}
	}

	parsed.bidRequest = bidRequest
	parsed.gdprSignal = signal
	parsed.consent = readConsent(bidRequest)
	return parsed, nil
}

func (deps *endpointDeps) readBody(httpRequest *http.Request) ([]byte, error) {
	if httpRequest.Body == nil {
		return nil, &errortypes.BadInput{Message: "request body is empty"}
	}
	defer httpRequest.Body.Close()

	if deps.cfg.MaxRequestSize <= 0 {
		return io.ReadAll(httpRequest.Body)
	}

	lr := &io.LimitedReader{
		R: httpRequest.Body,
		N: deps.cfg.MaxRequestSize + 1,
	}
	requestJson, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(requestJson)) > deps.cfg.MaxRequestSize {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("request size exceeded max size of %d bytes.", deps.cfg.MaxRequestSize)}
	}
	return requestJson, nil
}

func (deps *endpointDeps) validateRequest(req *openrtb2.BidRequest) error {
	if req.TMax < 0 {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.tmax must be nonnegative. Got %d", req.TMax)}
	}

	if len(req.Imp) < 1 {
		return &errortypes.BadInput{Message: "request.imp must contain at least one element."}
	}

	impIDs := make(map[string]int, len(req.Imp))
	for index := range req.Imp {
		imp := &req.Imp[index]
		if firstIndex, ok := impIDs[imp.ID]; ok && imp.ID != "" {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].id and request.imp[%d].id are both %q. Imp IDs must be unique.", firstIndex, index, imp.ID)}
		}
		impIDs[imp.ID] = index

		if err := deps.validateImp(imp, index); err != nil {
			return err
		}
	}
	return nil
}

func (deps *endpointDeps) validateImp(imp *openrtb2.Imp, index int) error {
	if imp.ID == "" {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d] missing required field: \"id\"", index)}
	}

	if imp.Banner == nil && imp.Video == nil && imp.Audio == nil && imp.Native == nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d] must contain at least one of \"banner\", \"video\", \"audio\", or \"native\"", index)}
	}

	if err := validateBanner(imp.Banner, index); err != nil {
		return err
	}

	if imp.Video != nil && len(imp.Video.MIMEs) < 1 {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].video.mimes must contain at least one supported MIME type", index)}
	}

	return deps.validateImpExt(imp.Ext, index)
}

func validateBanner(banner *openrtb2.Banner, impIndex int) error {
	if banner == nil {
		return nil
	}

	for formatIndex, format := range banner.Format {
		if format.W == 0 || format.H == 0 {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].banner.format[%d] must define non-zero \"h\" and \"w\" properties.", impIndex, formatIndex)}
		}
	}

	if len(banner.Format) == 0 && (banner.W == nil || banner.H == nil || *banner.W == 0 || *banner.H == 0) {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].banner has no sizes. Define \"w\" and \"h\", or include \"format\" elements.", impIndex)}
	}
	return nil
}

// validateImpExt checks the params of every bidder named by the imp. Params under
// imp.ext.prebid.bidder are checked the same way as params written directly under imp.ext.
// Keys which are not bidders are left alone.
func (deps *endpointDeps) validateImpExt(ext json.RawMessage, impIndex int) error {
	if len(ext) == 0 {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext is required", impIndex)}
	}

	bidderCount := 0
	validate := func(key []byte, value []byte, dataType jsonparser.ValueType, path string) error {
		bidderName, ok := openrtb_ext.NormalizeBidderName(string(key))
		if !ok {
			return nil
		}
		bidderCount++
		if err := deps.paramsValidator.Validate(bidderName, value); err != nil {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext.%s%s failed validation.\n%v", impIndex, path, key, err)}
		}
		return nil
	}

	err := jsonparser.ObjectEach(ext, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		if string(key) != "prebid" {
			return validate(key, value, dataType, "")
		}
		if dataType != jsonparser.Object {
			return nil
		}
		err := jsonparser.ObjectEach(value, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
			return validate(key, value, dataType, "prebid.bidder.")
		}, "bidder")
		if err == jsonparser.KeyPathNotFoundError {
			return nil
		}
		return err
	})
	if err != nil {
		var badInput *errortypes.BadInput
		if errors.As(err, &badInput) {
			return badInput
		}
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext is invalid: %v", impIndex, err)}
	}

	if bidderCount == 0 {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext must contain at least one bidder", impIndex)}
	}
	return nil
}

// readGDPRSignal prefers regs.gdpr and falls back to regs.ext.gdpr.
func readGDPRSignal(req *openrtb2.BidRequest) (gdpr.Signal, error) {
	if req.Regs == nil {
		return gdpr.SignalAmbiguous, nil
	}
	if req.Regs.GDPR != nil {
		return gdpr.SignalFromInt(req.Regs.GDPR)
	}

	value, dataType, _, err := jsonparser.Get(req.Regs.Ext, "gdpr")
	if err != nil || dataType == jsonparser.NotExist || dataType == jsonparser.Null {
		return gdpr.SignalAmbiguous, nil
	}
	if dataType != jsonparser.Number {
		return gdpr.SignalAmbiguous, &errortypes.BadInput{Message: "request.regs.ext.gdpr must be an integer"}
	}
	return gdpr.SignalParse(string(value))
}

// readConsent prefers user.consent and falls back to user.ext.consent.
func readConsent(req *openrtb2.BidRequest) string {
	if req.User == nil {
		return ""
	}
	if req.User.Consent != "" {
		return req.User.Consent
	}
	consent, err := jsonparser.GetString(req.User.Ext, "consent")
	if err != nil {
		return ""
	}
	return consent
}

// buildResponse lays the auction result out as an OpenRTB response. Seats keep the order of the
// auction result and bidders without bids get no seatbid.
func buildResponse(req *openrtb2.BidRequest, result *exchange.AuctionResult) (*openrtb2.BidResponse, error) {
	response := &openrtb2.BidResponse{
		ID: req.ID,
	}
	responseExt := openrtb_ext.ExtBidResponse{
		ResponseTimeMillis: make(map[openrtb_ext.BidderName]int, len(result.Seats)),
		Tmax:               req.TMax,
	}

	addMessages(&responseExt, requestLevelKey, result.Errors)
	addMessages(&responseExt, requestLevelKey, result.Warnings)

	for _, seat := range result.Seats {
		responseExt.ResponseTimeMillis[seat.Bidder] = int(seat.Elapsed.Milliseconds())
		addMessages(&responseExt, seat.Bidder, seat.Result.Errors)

		if len(seat.Result.Values) == 0 {
			continue
		}
		if response.Cur == "" {
			response.Cur = seat.Currency
		}

		seatBid := openrtb2.SeatBid{
			Seat: string(seat.Bidder),
			Bid:  make([]openrtb2.Bid, 0, len(seat.Result.Values)),
		}
		for _, bid := range seat.Result.Values {
			bidExt, err := json.Marshal(openrtb_ext.ExtBid{
				Prebid: &openrtb_ext.ExtBidPrebid{Type: bid.BidType},
				Bidder: bid.Bid.Ext,
			})
			if err != nil {
				return nil, fmt.Errorf("bid %s from %s: %v", bid.Bid.ID, seat.Bidder, err)
			}
			outBid := *bid.Bid
			outBid.Ext = bidExt
			seatBid.Bid = append(seatBid.Bid, outBid)
		}
		response.SeatBid = append(response.SeatBid, seatBid)
	}

	ext, err := json.Marshal(responseExt)
	if err != nil {
		return nil, err
	}
	response.Ext = ext
	return response, nil
}

// addMessages files errs under bidder, splitting warnings from errors by severity.
func addMessages(ext *openrtb_ext.ExtBidResponse, bidder openrtb_ext.BidderName, errs []error) {
	for _, err := range errs {
		message := openrtb_ext.ExtBidderMessage{
			Code:    errortypes.ReadCode(err),
			Message: err.Error(),
		}
		if errortypes.IsWarning(err) {
			if ext.Warnings == nil {
				ext.Warnings = make(map[openrtb_ext.BidderName][]openrtb_ext.ExtBidderMessage)
			}
			ext.Warnings[bidder] = append(ext.Warnings[bidder], message)
			continue
		}
		if ext.Errors == nil {
			ext.Errors = make(map[openrtb_ext.BidderName][]openrtb_ext.ExtBidderMessage)
		}
		ext.Errors[bidder] = append(ext.Errors[bidder], message)
	}
}
