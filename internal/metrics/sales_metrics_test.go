package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	// Вектор отдаёт по метрике на серию, поэтому сбор идёт в отдельной горутине.
	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var total float64
	for m := range ch {
		var out dto.Metric
		if err := m.Write(&out); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		if out.Counter != nil {
			total += out.Counter.GetValue()
		}
	}
	return total
}

func TestNewSalesMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSalesMetricsWithRegisterer(reg)

	if m.salesCreated == nil || m.statusChanges == nil || m.failures == nil || m.operationDuration == nil {
		t.Fatal("expected all collectors to be initialized")
	}

	// Повторная регистрация возвращает уже зарегистрированные коллекторы.
	again := NewSalesMetricsWithRegisterer(reg)
	again.RecordSaleCreated()
	if got := counterValue(t, m.salesCreated); got != 1 {
		t.Fatalf("expected shared counter value 1, got %v", got)
	}
}

func TestSalesMetrics_Record(t *testing.T) {
	m := NewSalesMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordSaleCreated()
	m.RecordSaleUpdated()
	m.RecordSaleDeleted()
	m.RecordStatusChange("PENDING", "CONFIRMED")
	m.RecordStatusChange("CONFIRMED", "CANCELLED")
	m.RecordFailure("create", "insufficient_stock")
	m.RecordStockMovement(5, 2)
	m.RecordStockMovement(0, -1)
	m.RecordOperationDuration("create", 15*time.Millisecond)
	m.RecordTimelineEvent()
	m.RecordOutboxEvent()

	cases := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"created", m.salesCreated, 1},
		{"updated", m.salesUpdated, 1},
		{"deleted", m.salesDeleted, 1},
		{"status changes", m.statusChanges, 2},
		{"failures", m.failures, 1},
		{"debited", m.stockDebited, 5},
		{"credited", m.stockCredited, 2},
		{"timeline", m.timelineEvents, 1},
		{"outbox", m.outboxEvents, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := counterValue(t, tc.c); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSalesMetrics_StatusChangesAcrossSeries(t *testing.T) {
	m := NewSalesMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordStatusChange("PENDING", "CONFIRMED")
	m.RecordStatusChange("PENDING", "CONFIRMED")
	m.RecordStatusChange("PENDING", "CANCELLED")
	m.RecordStatusChange("CONFIRMED", "DELIVERED")

	if n := testutil.CollectAndCount(m.statusChanges); n != 3 {
		t.Fatalf("expected 3 series, got %d", n)
	}
	if got := testutil.ToFloat64(m.statusChanges.WithLabelValues("PENDING", "CONFIRMED")); got != 2 {
		t.Fatalf("expected 2 PENDING->CONFIRMED transitions, got %v", got)
	}
	if got := counterValue(t, m.statusChanges); got != 4 {
		t.Fatalf("expected 4 transitions in total, got %v", got)
	}
}

func TestRegisterCounter_TypeMismatchPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewHistogram(prometheus.HistogramOpts{Name: "pos_conflict", Help: "conflict"}))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on type mismatch")
		}
	}()
	registerCounter(reg, prometheus.CounterOpts{Name: "pos_conflict", Help: "conflict"})
}
