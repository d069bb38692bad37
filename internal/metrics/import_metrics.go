package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Варианты импорта для метки variant.
const (
	VariantSingle = "single"
	VariantStrict = "strict"
	VariantReport = "report"
)

// ImportMetrics содержит метрики сборки заказов и пакетного импорта.
// Все методы безопасны для nil-получателя.
type ImportMetrics struct {
	// Счётчики операций
	batches          *prometheus.CounterVec
	ordersComposed   prometheus.Counter
	failures         *prometheus.CounterVec
	customersCreated prometheus.Counter
	productsCreated  prometheus.Counter

	// Длительность этапов батча
	stageDuration *prometheus.HistogramVec

	activeImports prometheus.Gauge
}

// NewImportMetrics регистрирует метрики в DefaultRegisterer.
func NewImportMetrics() *ImportMetrics {
	return NewImportMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewImportMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewImportMetricsWithRegisterer(registerer prometheus.Registerer) *ImportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ImportMetrics{
		batches: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cms_import_batches_total",
			Help: "Total number of import requests by variant and result",
		}, []string{"variant", "result"}),
		ordersComposed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cms_orders_composed_total",
			Help: "Total number of orders composed and persisted",
		}),
		failures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cms_import_failures_total",
			Help: "Total number of business failures by error code",
		}, []string{"code"}),
		customersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cms_customers_created_total",
			Help: "Total number of customers materialised by imports",
		}),
		productsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cms_products_created_total",
			Help: "Total number of products materialised by imports",
		}),
		stageDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "cms_import_stage_duration_seconds",
			Help:    "Duration of batch import stages in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"stage"}),
		activeImports: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cms_active_imports",
			Help: "Number of import requests in progress",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ImportStarted увеличивает количество импортов в работе.
func (m *ImportMetrics) ImportStarted() {
	if m == nil {
		return
	}
	m.activeImports.Inc()
}

// ImportFinished фиксирует результат импорта и уменьшает количество импортов в работе.
func (m *ImportMetrics) ImportFinished(variant string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.batches.WithLabelValues(variant, result).Inc()
	m.activeImports.Dec()
}

// RecordOrderComposed увеличивает счётчик сохранённых заказов.
func (m *ImportMetrics) RecordOrderComposed() {
	if m == nil {
		return
	}
	m.ordersComposed.Inc()
}

// RecordFailure учитывает бизнес-ошибку по её коду.
func (m *ImportMetrics) RecordFailure(code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(code).Inc()
}

func (m *ImportMetrics) RecordCustomerCreated() {
	if m == nil {
		return
	}
	m.customersCreated.Inc()
}

func (m *ImportMetrics) RecordProductCreated() {
	if m == nil {
		return
	}
	m.productsCreated.Inc()
}

// RecordStageDuration записывает длительность этапа батча.
func (m *ImportMetrics) RecordStageDuration(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
