package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/prebid/prebid-mediation/router"
	"github.com/prebid/prebid-mediation/server"
	"github.com/spf13/viper"
)

// Rev holds binary revision string
// Set manually at build time using:
//    go build -ldflags "-X main.Rev=`git rev-parse --short HEAD`"
var Rev string

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, bidderInfos, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	if err := serve(Rev, cfg, bidderInfos); err != nil {
		glog.Exitf("prebid-mediation failed: %v", err)
	}
}

const configFileName = "pbs"

func loadConfig() (*config.Configuration, config.BidderInfos, error) {
	v := viper.New()
	config.SetupViper(v, configFileName, nil)

	bidderInfos, err := config.LoadBidderInfoFromDisk(v.GetString("bidder_infos_dir"), coreBidderNames())
	if err != nil {
		return nil, nil, err
	}
	config.SetBidderDefaults(v, bidderInfos)

	cfg, err := config.New(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, bidderInfos, nil
}

func serve(revision string, cfg *config.Configuration, bidderInfos config.BidderInfos) error {
	r, err := router.New(cfg, bidderInfos)
	if err != nil {
		return err
	}

	glog.Infof("prebid-mediation %s starting", revision)
	return server.Listen(cfg, r.Handler(), r.MetricsEngine)
}

func coreBidderNames() []string {
	names := openrtb_ext.CoreBidderNames()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, string(name))
	}
	return out
}
