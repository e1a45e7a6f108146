package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

// Configuration specifies the static application config.
type Configuration struct {
	ExternalURL string `mapstructure:"external_url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AdminPort   int    `mapstructure:"admin_port"`
	EnableGzip  bool   `mapstructure:"enable_gzip"`

	Timeouts        Timeouts           `mapstructure:"timeouts"`
	Adapters        map[string]Adapter `mapstructure:"adapters"`
	GDPR            GDPR               `mapstructure:"gdpr"`
	Metrics         Metrics            `mapstructure:"metrics"`
	CORS            CORS               `mapstructure:"cors"`
	CurrencyDefault string             `mapstructure:"currency_default"`
	// BidderInfosDir holds one static/bidder-info/{bidder}.yaml file per bidder.
	BidderInfosDir string `mapstructure:"bidder_infos_dir"`
	// BidderParamsDir holds one static/bidder-params/{bidder}.json schema per bidder.
	BidderParamsDir string `mapstructure:"bidder_params_dir"`
	MaxRequestSize  int64  `mapstructure:"max_request_size"`
}

// Server carries host-level values which adapter builders may need.
type Server struct {
	ExternalUrl string
	GvlID       int
	DataCenter  string
}

// Timeouts bounds the auction as a whole and every individual call to a bidder.
type Timeouts struct {
	// AuctionMS is used when the inbound request carries no tmax, and caps it when it does.
	AuctionMS uint64 `mapstructure:"auction_ms"`
	// BidderCallMS bounds each outbound HTTP call independently.
	BidderCallMS uint64 `mapstructure:"bidder_call_ms"`
}

// AuctionTimeout returns the deadline budget for an auction whose request carries tmax.
func (t *Timeouts) AuctionTimeout(tmax int64) time.Duration {
	if tmax > 0 && uint64(tmax) < t.AuctionMS {
		return time.Duration(tmax) * time.Millisecond
	}
	return time.Duration(t.AuctionMS) * time.Millisecond
}

// BidderCallTimeout returns the per-call budget.
func (t *Timeouts) BidderCallTimeout() time.Duration {
	return time.Duration(t.BidderCallMS) * time.Millisecond
}

func (t *Timeouts) validate(errs []error) []error {
	if t.AuctionMS == 0 {
		errs = append(errs, errors.New("timeouts.auction_ms must be positive"))
	}
	if t.BidderCallMS == 0 {
		errs = append(errs, errors.New("timeouts.bidder_call_ms must be positive"))
	}
	if t.BidderCallMS > t.AuctionMS {
		errs = append(errs, fmt.Errorf("timeouts.bidder_call_ms (%d) cannot exceed timeouts.auction_ms (%d)", t.BidderCallMS, t.AuctionMS))
	}
	return errs
}

type CORS struct {
	AllowCredentials bool `mapstructure:"allow_credentials"`
}

type Metrics struct {
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
	GoMetrics  GoMetrics         `mapstructure:"go_metrics"`
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
}

type PrometheusMetrics struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

type GoMetrics struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfluxMetrics configures the InfluxDB sink for the go-metrics registry. It is off while Host is empty.
type InfluxMetrics struct {
	Host     string `mapstructure:"host"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Interval between flushes, in seconds.
	Interval int `mapstructure:"interval"`
}

func (cfg *InfluxMetrics) validate(errs []error) []error {
	if cfg.Host == "" {
		return errs
	}
	if cfg.Database == "" {
		errs = append(errs, errors.New("metrics.influxdb.database must be set when metrics.influxdb.host is"))
	}
	if cfg.Interval <= 0 {
		errs = append(errs, fmt.Errorf("metrics.influxdb.interval must be positive, got %d", cfg.Interval))
	}
	return errs
}

func (cfg *Configuration) validate() []error {
	var errs []error
	errs = cfg.Timeouts.validate(errs)
	errs = cfg.GDPR.validate(errs)
	errs = validateAdapters(cfg.Adapters, errs)
	errs = cfg.Metrics.Influxdb.validate(errs)
	if _, err := currency.ParseISO(cfg.CurrencyDefault); err != nil {
		errs = append(errs, fmt.Errorf("currency_default %q is not an ISO 4217 code: %v", cfg.CurrencyDefault, err))
	}
	if cfg.Port == cfg.AdminPort {
		errs = append(errs, fmt.Errorf("port and admin_port must differ, both are %d", cfg.Port))
	}
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}

	// Adapter keys are lower-cased by viper; normalize the ones set any other way.
	adapters := make(map[string]Adapter, len(c.Adapters))
	for name, adapter := range c.Adapters {
		adapters[strings.ToLower(name)] = adapter
	}
	c.Adapters = adapters

	glog.Infof("Auction timeout is %dms, bidder call timeout is %dms", c.Timeouts.AuctionMS, c.Timeouts.BidderCallMS)
	glog.Infof("GDPR enabled: %t, default value %q", c.GDPR.Enabled, c.GDPR.DefaultValue)

	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}

	return &c, nil
}

// SetupViper registers defaults, the config file location and PBS_ environment overrides.
// Every bidder in bidderInfos gets its endpoint defaulted from its bidder-info file.
func SetupViper(v *viper.Viper, filename string, bidderInfos BidderInfos) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", true)
	v.SetDefault("timeouts.auction_ms", 1000)
	v.SetDefault("timeouts.bidder_call_ms", 500)
	v.SetDefault("gdpr.enabled", true)
	v.SetDefault("gdpr.default_value", "1")
	v.SetDefault("gdpr.action_cache_size_bytes", 1024*1024)
	for i := 1; i <= 10; i++ {
		v.SetDefault(fmt.Sprintf("gdpr.tcf2.purpose%d.enforce_algo", i), TCF2EnforceAlgoFull)
	}
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.go_metrics.enabled", false)
	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.interval", 10)
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("currency_default", "USD")
	v.SetDefault("bidder_infos_dir", "static/bidder-info")
	v.SetDefault("bidder_params_dir", "static/bidder-params")
	v.SetDefault("max_request_size", 1024*256)

	SetBidderDefaults(v, bidderInfos)

	v.SetEnvPrefix("PBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("Viper failed to read config file %s: %v", filename, err)
		}
	}
}

// SetBidderDefaults defaults each bidder's adapter config from its bidder info. It may be called
// after SetupViper once the bidder info directory is known.
func SetBidderDefaults(v *viper.Viper, bidderInfos BidderInfos) {
	for bidderName, info := range bidderInfos {
		setBidderDefaults(v, strings.ToLower(bidderName), info)
	}
}

func setBidderDefaults(v *viper.Viper, bidder string, info BidderInfo) {
	adapterCfgPrefix := "adapters." + bidder
	v.SetDefault(adapterCfgPrefix+".endpoint", info.Endpoint)
	v.SetDefault(adapterCfgPrefix+".disabled", info.Disabled)
	v.SetDefault(adapterCfgPrefix+".xapi.username", "")
	v.SetDefault(adapterCfgPrefix+".xapi.password", "")
	v.SetDefault(adapterCfgPrefix+".xapi.tracker", "")
}
