// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VentasRegistradas = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lasmarias_ventas_registradas_total",
		Help: "Ventas confirmadas, por plan de pago.",
	}, []string{"plan"})

	ItemsRechazados = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lasmarias_items_rechazados_total",
		Help: "Unidades excluidas de una venta por falta de stock.",
	})

	PagosRegistrados = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lasmarias_pagos_registrados_total",
		Help: "Pagos registrados, por plan de pago.",
	}, []string{"plan"})

	VentasCompletadas = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lasmarias_ventas_completadas_total",
		Help: "Ventas que quedaron pagadas en su totalidad.",
	})

	HTTPDuracion = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lasmarias_http_request_duration_seconds",
		Help:    "Duración de las requests HTTP.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	JobsProcesados = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lasmarias_jobs_procesados_total",
		Help: "Jobs del worker pool, por tipo y resultado.",
	}, []string{"tipo", "resultado"})
)

// Plan labels a sale plan for the counters above.
func Plan(flexible bool) string {
	if flexible {
		return "flexible"
	}
	return "fijo"
}
