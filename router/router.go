package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/endpoints/info"
	"github.com/prebid/prebid-mediation/endpoints/openrtb2"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/exchange"
	"github.com/prebid/prebid-mediation/gdpr"
	metricsConf "github.com/prebid/prebid-mediation/metrics/config"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/prebid/prebid-mediation/privacy"
	"github.com/prebid/prebid-mediation/util/uuidutil"
	"github.com/rs/cors"
)

// Router is the main HTTP handler. MetricsEngine is exposed so the admin server can publish it.
type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	cors          config.CORS
}

// New wires every auction dependency from cfg and registers the public routes.
func New(cfg *config.Configuration, bidderInfos config.BidderInfos) (*Router, error) {
	r := &Router{
		Router: httprouter.New(),
		cors:   cfg.CORS,
	}

	paramsValidator, err := openrtb_ext.NewBidderParamsValidator(cfg.BidderParamsDir)
	if err != nil {
		return nil, fmt.Errorf("Failed to create the bidder params validator: %v", err)
	}

	activeBidders := exchange.GetActiveBidders(bidderInfos)
	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg, activeBidders)

	bidders, errs := exchange.BuildAdapters(&http.Client{}, cfg, bidderInfos, r.MetricsEngine, clock.New())
	if len(errs) > 0 {
		return nil, errortypes.NewAggregateErrors("Failed to build bidders", errs)
	}

	actionCache := gdpr.NewActionCache(cfg.GDPR.ActionCacheSize)
	permissionsBuilder := gdpr.NewPermissionsBuilder(cfg.GDPR, bidderInfos.ToGVLVendorIDMap(), actionCache, r.MetricsEngine)
	dispatcher := exchange.NewDispatcher(bidders, cfg, r.MetricsEngine, permissionsBuilder, privacy.NewScrubber())

	auctionEndpoint, err := openrtb2.NewEndpoint(uuidutil.UUIDRandomGenerator{}, dispatcher, paramsValidator, cfg, r.MetricsEngine, clock.New())
	if err != nil {
		return nil, err
	}
	biddersEndpoint, err := info.NewBiddersEndpoint(activeBidders)
	if err != nil {
		return nil, err
	}
	bidderDetailsEndpoint, err := info.NewBidderDetailsEndpoint(bidderInfos, activeBidders)
	if err != nil {
		return nil, err
	}
	schemasEndpoint, err := newJsonSchemasServer(paramsValidator)
	if err != nil {
		return nil, err
	}

	r.POST("/openrtb2/auction", auctionEndpoint)
	r.GET("/status", serveStatus)
	r.GET("/bidders/params", schemasEndpoint)
	r.GET("/info/bidders", biddersEndpoint)
	r.GET("/info/bidders/:bidderName", bidderDetailsEndpoint)

	glog.Infof("Router ready with %d active bidders", len(activeBidders))
	return r, nil
}

// Handler returns the router wrapped for cross origin requests.
func (r *Router) Handler() http.Handler {
	return SupportCORS(r.Router, r.cors.AllowCredentials)
}

// newJsonSchemasServer serves every bidder's params schema as one JSON object keyed by bidder.
// The response is built once since schemas never change while running.
func newJsonSchemasServer(validator openrtb_ext.BidderParamValidator) (httprouter.Handle, error) {
	response, err := json.Marshal(openrtb_ext.Schemas(validator))
	if err != nil {
		return nil, fmt.Errorf("Failed to marshal bidder param JSON-schema: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Add("Content-Type", "application/json")
		w.Write(response)
	}, nil
}

func serveStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusNoContent)
}

// SupportCORS allows every origin. Callers send withCredentials when allowCredentials is set, so
// the origin is echoed back rather than answered with "*".
func SupportCORS(handler http.Handler, allowCredentials bool) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: allowCredentials,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
