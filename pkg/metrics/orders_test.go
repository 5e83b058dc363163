package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.ObserveCreate(120*time.Millisecond, "")
	m.ObserveCreate(5*time.Millisecond, "INSUFFICIENT_STOCK")
	m.IncTransition("pending", "processing")
	m.IncPaymentTransition("pending", "paid")
	m.AddRestocked(3)
	m.AddRestocked(-1)
	m.IncNotification("order.created", false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"orders_created_total", nil, 1},
		{"order_create_failures_total", map[string]string{"code": "INSUFFICIENT_STOCK"}, 1},
		{"order_status_transitions_total", map[string]string{"from": "pending", "to": "processing"}, 1},
		{"order_payment_transitions_total", map[string]string{"from": "pending", "to": "paid"}, 1},
		{"stock_units_restored_total", nil, 3},
		{"order_notifications_total", map[string]string{"event": "order.created", "result": "failure"}, 1},
	}
	for _, tc := range checks {
		got, err := fetchCounterValue(mfs, tc.name, tc.labels)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}
}

func TestNilOrderMetricsIsSafe(t *testing.T) {
	var m *OrderMetrics
	m.ObserveCreate(time.Second, "")
	m.IncTransition("a", "b")
	m.AddRestocked(1)
	m.IncNotification("x", true)

	unregistered := NewOrderMetrics(nil)
	unregistered.ObserveCreate(time.Second, "CONFLICT")
	unregistered.IncPaymentTransition("pending", "failed")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok && value == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
