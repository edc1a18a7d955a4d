// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// # Request Metrics

// Metrics holds the request collectors exported on /metrics.
type Metrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with registerer.
// Collectors that are already registered are reused.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "messagely",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),

		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "messagely",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}

	if err := registerer.Register(metrics.requestTotal); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				metrics.requestTotal = existing
			}
		}
	}

	if err := registerer.Register(metrics.requestLatency); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				metrics.requestLatency = existing
			}
		}
	}

	return metrics
}

// Handler records one observation per request, labelled by the chi route
// pattern so that /messages/1 and /messages/2 share a series.
func (metrics *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		startTime := time.Now()
		wrappedWriter := wrapWriter(writer)

		next.ServeHTTP(wrappedWriter, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		labels := prometheus.Labels{
			"method": request.Method,
			"route":  route,
			"status": strconv.Itoa(wrappedWriter.status),
		}
		metrics.requestTotal.With(labels).Inc()
		metrics.requestLatency.With(labels).Observe(time.Since(startTime).Seconds())
	})
}
