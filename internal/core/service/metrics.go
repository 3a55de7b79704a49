package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RESULT_OK        = "ok"
	RESULT_OFFLINE   = "offline"
	RESULT_REJECTED  = "rejected"
	RESULT_INVALID   = "invalid"
	RESULT_ERROR     = "error"
	METRIC_NAMESPACE = "axpert"
)

// Metrics is the bridge's Prometheus registry and collectors.
type Metrics struct {
	registry *prometheus.Registry

	PollCycles  *prometheus.CounterVec   // labels: result=ok|offline
	Exchanges   *prometheus.HistogramVec // labels: op
	Readings    *prometheus.GaugeVec     // labels: reading
	SetCommands *prometheus.CounterVec   // labels: name, result
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: METRIC_NAMESPACE,
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles by result.",
		}, []string{"result"}),
		Exchanges: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: METRIC_NAMESPACE,
			Name:      "exchange_duration_seconds",
			Help:      "Duration of device exchanges by operation.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		Readings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: METRIC_NAMESPACE,
			Name:      "reading",
			Help:      "Last numeric value of each device reading.",
		}, []string{"reading"}),
		SetCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: METRIC_NAMESPACE,
			Name:      "set_commands_total",
			Help:      "Set commands by parameter and result.",
		}, []string{"name", "result"}),
	}
	reg.MustRegister(m.PollCycles, m.Exchanges, m.Readings, m.SetCommands)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument feeds the exchange histogram from the device sessions.
func (m *Metrics) Instrument() axpert.Instrument {
	return axpert.Instrument{
		RecordTime: func(fnName string, elapsed time.Duration) {
			m.Exchanges.WithLabelValues(fnName).Observe(elapsed.Seconds())
		},
	}
}

// ObserveReadings counts the cycle and mirrors its numeric readings. An
// offline cycle drops every reading gauge.
func (m *Metrics) ObserveReadings(readings axpert.Readings) {
	if state, _ := readings.Text(axpert.READING_STATE); state == axpert.STATE_OFFLINE {
		m.PollCycles.WithLabelValues(RESULT_OFFLINE).Inc()
		m.Readings.Reset()
		return
	}
	m.PollCycles.WithLabelValues(RESULT_OK).Inc()
	for name := range readings {
		if v, ok := readings.Float(name); ok {
			m.Readings.WithLabelValues(name).Set(v)
		}
	}
}

func (m *Metrics) ObserveSet(name string, err error) {
	m.SetCommands.WithLabelValues(name, SetResult(err)).Inc()
}

func SetResult(err error) string {
	switch {
	case err == nil:
		return RESULT_OK
	case errors.Is(err, axpert.ErrTimeout), errors.Is(err, axpert.ErrTransport):
		return RESULT_ERROR
	case errors.Is(err, axpert.ErrUnknownCommand), errors.Is(err, axpert.ErrUnknownValue):
		return RESULT_INVALID
	case errors.Is(err, axpert.ErrSetFailed):
		return RESULT_REJECTED
	default:
		return RESULT_ERROR
	}
}
