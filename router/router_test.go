package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rubiconImpExt = `{"rubicon":{"accountId":1001,"siteId":113932,"zoneId":535510}}`

func testConfig(rubiconEndpoint string) *config.Configuration {
	cfg := &config.Configuration{
		Port:            8000,
		AdminPort:       6060,
		Timeouts:        config.Timeouts{AuctionMS: 1000, BidderCallMS: 500},
		CurrencyDefault: "USD",
		BidderParamsDir: "../static/bidder-params",
		MaxRequestSize:  1024 * 256,
		Adapters: map[string]config.Adapter{
			"rubicon":    {Endpoint: rubiconEndpoint},
			"mobilefuse": {Disabled: true},
		},
		CORS: config.CORS{AllowCredentials: true},
	}
	cfg.Metrics.Prometheus.Enabled = true
	return cfg
}

func testBidderInfos(t *testing.T) config.BidderInfos {
	infos, err := config.LoadBidderInfoFromDisk("../static/bidder-info", []string{"mobilefuse", "rubicon"})
	require.NoError(t, err)
	return infos
}

func newTestRouter(t *testing.T, rubiconEndpoint string) *Router {
	r, err := New(testConfig(rubiconEndpoint), testBidderInfos(t))
	require.NoError(t, err)
	return r
}

func TestStatus(t *testing.T) {
	r := newTestRouter(t, "http://rubicon.test")

	recorder := httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestBidderParams(t *testing.T) {
	r := newTestRouter(t, "http://rubicon.test")

	recorder := httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/bidders/params", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var schemas map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &schemas))
	assert.Contains(t, schemas, "mobilefuse")
	assert.Contains(t, schemas, "rubicon")
}

func TestInfoBidders(t *testing.T) {
	r := newTestRouter(t, "http://rubicon.test")

	recorder := httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/info/bidders", nil))
	assert.JSONEq(t, `["mobilefuse","rubicon"]`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/info/bidders/rubicon", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"gvlVendorID":52`)
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t, "http://rubicon.test")

	request := httptest.NewRequest(http.MethodOptions, "/openrtb2/auction", nil)
	request.Header.Set("Origin", "https://publisher.example")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, request)

	assert.Equal(t, "https://publisher.example", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAuctionRoute(t *testing.T) {
	var upstreamRequest openrtb2.BidRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		json.Unmarshal(body, &upstreamRequest)
		w.Write([]byte(`{"id":"upstream","cur":"USD","seatbid":[{"bid":[{"id":"bid-1","impid":"imp-1","price":1.25,"adm":"<div/>"}]}]}`))
	}))
	defer upstream.Close()

	r := newTestRouter(t, upstream.URL)
	body := `{"id":"req-1","site":{"page":"https://publisher.example"},"imp":[{"id":"imp-1","banner":{"format":[{"w":300,"h":250}]},"ext":` + rubiconImpExt + `}]}`

	recorder := httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/openrtb2/auction", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var response openrtb2.BidResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "req-1", response.ID)
	assert.Equal(t, "USD", response.Cur)
	require.Len(t, response.SeatBid, 1)
	assert.Equal(t, "rubicon", response.SeatBid[0].Seat)
	require.Len(t, response.SeatBid[0].Bid, 1)
	assert.Equal(t, 1.25, response.SeatBid[0].Bid[0].Price)

	require.Len(t, upstreamRequest.Imp, 1)
	assert.Equal(t, "imp-1", upstreamRequest.Imp[0].ID)
}

func TestAuctionRouteRejectsBadRequest(t *testing.T) {
	r := newTestRouter(t, "http://rubicon.test")

	recorder := httptest.NewRecorder()
	r.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/openrtb2/auction", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestNewRejectsMissingSchemas(t *testing.T) {
	cfg := testConfig("http://rubicon.test")
	cfg.BidderParamsDir = "does/not/exist"

	_, err := New(cfg, testBidderInfos(t))
	assert.Error(t, err)
}

func TestNewRejectsUnknownBidderInfo(t *testing.T) {
	infos := testBidderInfos(t)
	infos["unknown"] = config.BidderInfo{}

	_, err := New(testConfig("http://rubicon.test"), infos)
	assert.Error(t, err)
}
