package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PrometheusRecorder struct {
	commandDuration  *prom.HistogramVec
	commandResults   *prom.CounterVec
	commandSkipped   *prom.CounterVec
	dispatchDuration prom.Histogram
	dispatchResults  *prom.CounterVec
	dispatchInFlight prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		commandDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "basecfg",
			Name:      "command_duration_seconds",
			Help:      "Duration of command actions",
			Buckets:   prom.DefBuckets,
		}, []string{"command"}),
		commandResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "basecfg",
			Name:      "command_results_total",
			Help:      "Command executions by outcome",
		}, []string{"command", "result"}),
		commandSkipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "basecfg",
			Name:      "command_skipped_total",
			Help:      "Invocations ignored because the command was disabled or already running",
		}, []string{"command"}),
		dispatchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "basecfg",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of outbound notification calls",
			Buckets:   prom.DefBuckets,
		}),
		dispatchResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "basecfg",
			Name:      "dispatch_results_total",
			Help:      "Notification dispatches by outcome",
		}, []string{"result"}),
		dispatchInFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: "basecfg",
			Name:      "dispatch_in_flight",
			Help:      "1 while a notification is being sent",
		}),
	}

	reg.MustRegister(pr.commandDuration, pr.commandResults, pr.commandSkipped,
		pr.dispatchDuration, pr.dispatchResults, pr.dispatchInFlight)
	return pr
}

func (p *PrometheusRecorder) ObserveCommand(name string, d time.Duration, err error) {
	if p == nil {
		return
	}
	res := ResultSuccess
	if err != nil {
		res = ResultFailed
	}
	p.commandDuration.WithLabelValues(name).Observe(d.Seconds())
	p.commandResults.WithLabelValues(name, string(res)).Inc()
}

func (p *PrometheusRecorder) IncCommandSkipped(name string) {
	if p == nil {
		return
	}
	p.commandSkipped.WithLabelValues(name).Inc()
}

func (p *PrometheusRecorder) ObserveDispatch(d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	if d > 0 {
		p.dispatchDuration.Observe(d.Seconds())
	}
	p.dispatchResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetDispatchInFlight(inFlight bool) {
	if p == nil {
		return
	}
	if inFlight {
		p.dispatchInFlight.Set(1)
		return
	}
	p.dispatchInFlight.Set(0)
}

// HTTPHandler serves the metrics registered on reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
