package mobilefuse

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "http://mfx-us-east.mobilefuse.com/openrtb?pub_id={{.PublisherID}}"

func newTestBidder(t *testing.T) adapters.Bidder {
	bidder, err := Builder(openrtb_ext.BidderMobilefuse, config.Adapter{Endpoint: testEndpoint}, config.Server{})
	require.NoError(t, err)
	return bidder
}

func TestBuilderInvalidTemplate(t *testing.T) {
	_, err := Builder(openrtb_ext.BidderMobilefuse, config.Adapter{Endpoint: "{{Malformed}}"}, config.Server{})
	assert.Error(t, err)
}

func TestMakeRequests(t *testing.T) {
	bidder := newTestBidder(t)
	request := &openrtb2.BidRequest{
		ID: "request-id",
		Imp: []openrtb2.Imp{
			{
				ID:     "both",
				Banner: &openrtb2.Banner{Format: []openrtb2.Format{{W: 300, H: 250}}},
				Video:  &openrtb2.Video{MIMEs: []string{"video/mp4"}},
				Ext:    json.RawMessage(`{"bidder":{"placement_id":123456,"pub_id":1234}}`),
			},
			{
				ID:    "video",
				Video: &openrtb2.Video{MIMEs: []string{"video/mp4"}},
				Ext:   json.RawMessage(`{"bidder":{"placement_id":123456,"pub_id":1234}}`),
			},
			{
				ID:     "native",
				Native: &openrtb2.Native{Request: "{}"},
				Ext:    json.RawMessage(`{"bidder":{"placement_id":123456,"pub_id":1234}}`),
			},
		},
	}

	requests, errs := bidder.MakeRequests(request, &adapters.ExtraRequestInfo{})
	assert.Empty(t, errs)
	require.Len(t, requests, 1)

	call := requests[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "http://mfx-us-east.mobilefuse.com/openrtb?pub_id=1234", call.Uri)
	assert.Equal(t, "application/json;charset=utf-8", call.Headers.Get("Content-Type"))
	assert.Equal(t, "application/json", call.Headers.Get("Accept"))
	assert.Equal(t, []string{"both", "video"}, call.ImpIDs)

	require.NotNil(t, call.Payload)
	require.Len(t, call.Payload.Imp, 2)
	assert.NotNil(t, call.Payload.Imp[0].Banner)
	assert.Nil(t, call.Payload.Imp[0].Video, "video dropped when banner is present")
	assert.NotNil(t, call.Payload.Imp[1].Video)
	for _, imp := range call.Payload.Imp {
		assert.Equal(t, "123456", imp.TagID)
		assert.Nil(t, imp.Ext)
	}

	var sent openrtb2.BidRequest
	require.NoError(t, json.Unmarshal(call.Body, &sent))
	assert.Equal(t, *call.Payload, sent)

	assert.NotNil(t, request.Imp[0].Video, "inbound request untouched")
	assert.NotNil(t, request.Imp[0].Ext, "inbound request untouched")
}

func TestMakeRequestsTagidSrc(t *testing.T) {
	bidder := newTestBidder(t)
	request := &openrtb2.BidRequest{
		Imp: []openrtb2.Imp{{
			ID:     "imp",
			Banner: &openrtb2.Banner{},
			Ext:    json.RawMessage(`{"bidder":{"placement_id":1,"pub_id":2,"tagid_src":"ext"}}`),
		}},
	}

	requests, errs := bidder.MakeRequests(request, &adapters.ExtraRequestInfo{})
	assert.Empty(t, errs)
	require.Len(t, requests, 1)
	assert.Equal(t, "http://mfx-us-east.mobilefuse.com/openrtb?pub_id=2&tagid_src=ext", requests[0].Uri)
}

func TestMakeRequestsErrors(t *testing.T) {
	testCases := []struct {
		description string
		imps        []openrtb2.Imp
		expectedMsg string
	}{
		{
			description: "no-decodable-params",
			imps: []openrtb2.Imp{
				{ID: "a", Banner: &openrtb2.Banner{}, Ext: json.RawMessage(`{"bidder":{"placement_id":"abc"}}`)},
				{ID: "b", Banner: &openrtb2.Banner{}, Ext: json.RawMessage(`not json`)},
			},
			expectedMsg: "Invalid mobilefuse params",
		},
		{
			description: "missing-placement-id",
			imps: []openrtb2.Imp{
				{ID: "a", Banner: &openrtb2.Banner{}, Ext: json.RawMessage(`{"bidder":{}}`)},
			},
			expectedMsg: "Invalid mobilefuse params: missing required field placement_id",
		},
		{
			description: "missing-pub-id",
			imps: []openrtb2.Imp{
				{ID: "a", Banner: &openrtb2.Banner{}, Ext: json.RawMessage(`{"bidder":{"placement_id":1}}`)},
			},
			expectedMsg: "Invalid mobilefuse params: missing required field pub_id",
		},
		{
			description: "no-imps",
			imps:        nil,
			expectedMsg: "No imp carries mobilefuse params",
		},
		{
			description: "no-valid-imps",
			imps: []openrtb2.Imp{
				{ID: "a", Native: &openrtb2.Native{}, Ext: json.RawMessage(`{"bidder":{"placement_id":1,"pub_id":2}}`)},
			},
			expectedMsg: "No valid imps",
		},
	}

	bidder := newTestBidder(t)
	for _, test := range testCases {
		requests, errs := bidder.MakeRequests(&openrtb2.BidRequest{Imp: test.imps}, &adapters.ExtraRequestInfo{})

		assert.Empty(t, requests, test.description)
		require.Len(t, errs, 1, test.description)
		assert.IsType(t, &errortypes.BadInput{}, errs[0], test.description)
		assert.Contains(t, errs[0].Error(), test.expectedMsg, test.description)
	}
}

func TestMakeRequestsSkipsUndecodableImp(t *testing.T) {
	bidder := newTestBidder(t)
	request := &openrtb2.BidRequest{
		Imp: []openrtb2.Imp{
			{ID: "a", Banner: &openrtb2.Banner{}, Ext: json.RawMessage(`{"bidder":"bad"}`)},
			{ID: "b", Banner: &openrtb2.Banner{}, Ext: json.RawMessage(`{"bidder":{"placement_id":7,"pub_id":8}}`)},
		},
	}

	requests, errs := bidder.MakeRequests(request, &adapters.ExtraRequestInfo{})
	assert.Empty(t, errs)
	require.Len(t, requests, 1)
	assert.Equal(t, "http://mfx-us-east.mobilefuse.com/openrtb?pub_id=8", requests[0].Uri)
	assert.Equal(t, "7", requests[0].Payload.Imp[0].TagID)
}

func TestMakeBidsStatusCodes(t *testing.T) {
	testCases := []struct {
		description  string
		statusCode   int
		body         string
		expectedType error
		expectedMsg  string
	}{
		{description: "no-content", statusCode: http.StatusNoContent},
		{description: "bad-request", statusCode: http.StatusBadRequest, expectedType: &errortypes.BadInput{}, expectedMsg: "Invalid request."},
		{description: "server-error", statusCode: http.StatusInternalServerError, expectedType: &errortypes.BadServerResponse{}, expectedMsg: "500"},
		{description: "bad-body", statusCode: http.StatusOK, body: `{"seatbid":`, expectedType: &errortypes.BadServerResponse{}, expectedMsg: "unexpected end of JSON input"},
	}

	bidder := newTestBidder(t)
	for _, test := range testCases {
		response, errs := bidder.MakeBids(&openrtb2.BidRequest{}, &adapters.RequestData{}, &adapters.ResponseData{
			StatusCode: test.statusCode,
			Body:       []byte(test.body),
		})

		assert.Nil(t, response, test.description)
		if test.expectedType == nil {
			assert.Empty(t, errs, test.description)
			continue
		}
		require.Len(t, errs, 1, test.description)
		assert.IsType(t, test.expectedType, errs[0], test.description)
		assert.Contains(t, errs[0].Error(), test.expectedMsg, test.description)
	}
}

func TestBannerAndVideoImpYieldsBannerBid(t *testing.T) {
	bidder := newTestBidder(t)
	request := &openrtb2.BidRequest{
		Imp: []openrtb2.Imp{{
			ID:     "imp-1",
			Banner: &openrtb2.Banner{Format: []openrtb2.Format{{W: 320, H: 50}}},
			Video:  &openrtb2.Video{MIMEs: []string{"video/mp4"}},
			Ext:    json.RawMessage(`{"bidder":{"placement_id":1,"pub_id":2}}`),
		}},
	}

	requests, errs := bidder.MakeRequests(request, &adapters.ExtraRequestInfo{})
	require.Empty(t, errs)
	require.Len(t, requests, 1)

	body := `{"id":"response-id","seatbid":[{"seat":"mobilefuse","bid":[{"id":"bid-1","impid":"imp-1","price":1.25,"adm":"<div/>"}]}]}`
	response, errs := bidder.MakeBids(request, requests[0], &adapters.ResponseData{StatusCode: http.StatusOK, Body: []byte(body)})

	assert.Empty(t, errs)
	require.NotNil(t, response)
	require.Len(t, response.Bids, 1)
	assert.Equal(t, openrtb_ext.BidTypeBanner, response.Bids[0].BidType)
	assert.Equal(t, "bid-1", response.Bids[0].Bid.ID)
	assert.Equal(t, "imp-1", response.Bids[0].Bid.ImpID)
	assert.Equal(t, 1.25, response.Bids[0].Bid.Price)
	assert.Equal(t, "USD", response.Currency)
}

func TestMakeBidsVideoAndCurrency(t *testing.T) {
	bidder := newTestBidder(t)
	outbound := &openrtb2.BidRequest{Imp: []openrtb2.Imp{{ID: "imp-1", Video: &openrtb2.Video{}}}}

	body := `{"cur":"EUR","seatbid":[{"bid":[{"id":"a","impid":"imp-1","price":2},{"id":"b","impid":"unknown","price":3}]}]}`
	response, errs := bidder.MakeBids(outbound, &adapters.RequestData{Payload: outbound}, &adapters.ResponseData{StatusCode: http.StatusOK, Body: []byte(body)})

	assert.Empty(t, errs)
	require.Len(t, response.Bids, 2)
	assert.Equal(t, "EUR", response.Currency)
	assert.Equal(t, openrtb_ext.BidTypeVideo, response.Bids[0].BidType)
	assert.Equal(t, openrtb_ext.BidTypeBanner, response.Bids[1].BidType)
	assert.Equal(t, "a", response.Bids[0].Bid.ID)
	assert.Equal(t, "b", response.Bids[1].Bid.ID)
}
