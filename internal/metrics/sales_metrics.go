package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SalesMetrics содержит метрики жизненного цикла продаж и движения склада.
type SalesMetrics struct {
	salesCreated  prometheus.Counter
	salesUpdated  prometheus.Counter
	salesDeleted  prometheus.Counter
	statusChanges *prometheus.CounterVec
	failures      *prometheus.CounterVec

	// Движение склада в единицах товара
	stockDebited  prometheus.Counter
	stockCredited prometheus.Counter

	operationDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewSalesMetrics создаёт метрики в DefaultRegisterer.
func NewSalesMetrics() *SalesMetrics {
	return NewSalesMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewSalesMetricsWithRegisterer создаёт метрики в заданном registerer (в тестах используется изолированный registry).
func NewSalesMetricsWithRegisterer(registerer prometheus.Registerer) *SalesMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SalesMetrics{
		salesCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_created_total",
			Help: "Total number of sales created",
		}),
		salesUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_updated_total",
			Help: "Total number of pending sales whose line items were replaced",
		}),
		salesDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_deleted_total",
			Help: "Total number of pending sales deleted",
		}),
		statusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_sale_status_changes_total",
			Help: "Total number of sale status transitions",
		}, []string{"from", "to"}),
		failures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_sale_operation_failures_total",
			Help: "Total number of rejected or failed sale operations grouped by error kind",
		}, []string{"operation", "kind"}),
		stockDebited: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_stock_units_debited_total",
			Help: "Total number of stock units debited by sales",
		}),
		stockCredited: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_stock_units_credited_total",
			Help: "Total number of stock units returned by updates, cancellations and deletions",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "pos_sale_operation_duration_seconds",
			Help:    "Duration of sale lifecycle operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"operation"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_timeline_events_total",
			Help: "Total number of sale timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_outbox_events_total",
			Help: "Total number of sale events enqueued to outbox",
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

func (m *SalesMetrics) RecordSaleCreated() {
	m.salesCreated.Inc()
}

func (m *SalesMetrics) RecordSaleUpdated() {
	m.salesUpdated.Inc()
}

func (m *SalesMetrics) RecordSaleDeleted() {
	m.salesDeleted.Inc()
}

// RecordStatusChange увеличивает счётчик перехода from → to.
func (m *SalesMetrics) RecordStatusChange(from, to string) {
	m.statusChanges.WithLabelValues(from, to).Inc()
}

// RecordFailure учитывает отклонённую операцию; kind задаёт категорию ошибки (not_found, validation, ...).
func (m *SalesMetrics) RecordFailure(operation, kind string) {
	m.failures.WithLabelValues(operation, kind).Inc()
}

// RecordStockMovement учитывает списанные и возвращённые на склад единицы.
func (m *SalesMetrics) RecordStockMovement(debited, credited int) {
	if debited > 0 {
		m.stockDebited.Add(float64(debited))
	}
	if credited > 0 {
		m.stockCredited.Add(float64(credited))
	}
}

// RecordOperationDuration записывает длительность операции.
func (m *SalesMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *SalesMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

func (m *SalesMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
