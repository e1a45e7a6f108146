package server

import (
	"net/http"

	"github.com/golang/glog"
	metricsconfig "github.com/prebid/prebid-mediation/metrics/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newAdminHandler serves /metrics when the Prometheus engine is enabled. Other paths are 404.
func newAdminHandler(metrics *metricsconfig.DetailedMetricsEngine) http.Handler {
	mux := http.NewServeMux()
	if metrics == nil || metrics.PrometheusMetrics == nil {
		return mux
	}

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.PrometheusMetrics.Registry, promhttp.HandlerOpts{
		ErrorLog:            loggerForPrometheus{},
		MaxRequestsInFlight: 5,
	}))
	return mux
}

type loggerForPrometheus struct{}

func (loggerForPrometheus) Println(v ...interface{}) {
	glog.Warningln(v...)
}
