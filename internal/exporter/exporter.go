// Package exporter publishes SEN5x measurements as prometheus metrics.
package exporter

import (
	"context"
	"math"
	"net/http"

	"github.com/go-sensors/sensironsen5x"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "sen5x"

// Exporter holds the collectors fed from a running sensor
type Exporter struct {
	particulateMatter *prometheus.GaugeVec
	relativeHumidity  prometheus.Gauge
	temperature       prometheus.Gauge
	vocIndex          prometheus.Gauge
	noxIndex          prometheus.Gauge
	measurements      prometheus.Counter
	sensorErrors      prometheus.Counter
	logger            logrus.FieldLogger
}

// New creates an Exporter and registers its collectors with registerer
func New(registerer prometheus.Registerer, logger logrus.FieldLogger) (*Exporter, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	e := &Exporter{
		particulateMatter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mass_concentration_micrograms_per_cubic_meter",
			Help:      "Particulate matter mass concentration",
		}, []string{"size"}),
		relativeHumidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relative_humidity_percent",
			Help:      "Compensated ambient relative humidity",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Compensated ambient temperature",
		}),
		vocIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voc_index",
			Help:      "VOC index (1 to 500)",
		}),
		noxIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nox_index",
			Help:      "NOx index (1 to 500)",
		}),
		measurements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_total",
			Help:      "Measurements read from the sensor",
		}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_errors_total",
			Help:      "Recoverable errors reported by the sensor run loop",
		}),
		logger: logger,
	}

	collectors := []prometheus.Collector{
		e.particulateMatter,
		e.relativeHumidity,
		e.temperature,
		e.vocIndex,
		e.noxIndex,
		e.measurements,
		e.sensorErrors,
	}
	for _, c := range collectors {
		err := registerer.Register(c)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}
	return e, nil
}

// set publishes value, or NaN when the sensor did not provide it
func set(gauge prometheus.Gauge, value float64, ok bool) {
	if !ok {
		value = math.NaN()
	}
	gauge.Set(value)
}

// Observe publishes every value of m
func (e *Exporter) Observe(m *sensironsen5x.Measurement) {
	e.measurements.Inc()

	value, ok := m.PM1p0()
	set(e.particulateMatter.WithLabelValues("pm1.0"), value, ok)
	value, ok = m.PM2p5()
	set(e.particulateMatter.WithLabelValues("pm2.5"), value, ok)
	value, ok = m.PM4p0()
	set(e.particulateMatter.WithLabelValues("pm4.0"), value, ok)
	value, ok = m.PM10p0()
	set(e.particulateMatter.WithLabelValues("pm10"), value, ok)

	value, ok = m.RelativeHumidity()
	set(e.relativeHumidity, value, ok)
	value, ok = m.Temperature()
	set(e.temperature, value, ok)
	value, ok = m.VOCIndex()
	set(e.vocIndex, value, ok)
	value, ok = m.NOxIndex()
	set(e.noxIndex, value, ok)
}

// HandleError counts a recoverable sensor error. It never asks the run loop to terminate.
func (e *Exporter) HandleError(err error) bool {
	e.sensorErrors.Inc()
	e.logger.WithError(err).Warn("recoverable sensor error")
	return false
}

// Consume drains the channels of sensor until they are closed or ctx is done
func (e *Exporter) Consume(ctx context.Context, sensor *sensironsen5x.Sensor) error {
	measurements := sensor.Measurements()
	temperatures := sensor.Temperatures()
	relativeHumidities := sensor.RelativeHumidities()
	for measurements != nil || temperatures != nil || relativeHumidities != nil {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-measurements:
			if !ok {
				measurements = nil
				continue
			}
			e.Observe(m)
			e.logger.Debug("observed measurement")
		case t, ok := <-temperatures:
			if !ok {
				temperatures = nil
				continue
			}
			e.logger.WithField("temperature", t.DegreesCelsius()).Trace("observed temperature")
		case rh, ok := <-relativeHumidities:
			if !ok {
				relativeHumidities = nil
				continue
			}
			e.logger.WithField("relative_humidity", rh.Percentage).Trace("observed relative humidity")
		}
	}
	return nil
}

// Handler serves the metrics collected by gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
