package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/regionstat/pkg/types"
	"github.com/obsidianstack/regionstat/server/internal/store"
)

// parse renders reg and parses the output back into metric families.
func parse(t *testing.T, reg *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	var buf bytes.Buffer
	if err := reg.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("parse exposition: %v\n%s", err, buf.String())
	}
	return mfs
}

// valueWith returns the value of the metric in mf carrying label name=value.
func valueWith(t *testing.T, mf *dto.MetricFamily, name, value string) float64 {
	t.Helper()
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				if m.Counter != nil {
					return m.Counter.GetValue()
				}
				return m.Gauge.GetValue()
			}
		}
	}
	t.Fatalf("%s: no metric with %s=%q", mf.GetName(), name, value)
	return 0
}

func TestRegistry_Counters(t *testing.T) {
	reg := New(nil)
	reg.ObserveQuery()
	reg.ObserveQuery()
	reg.ObserveRegion("emea", true)
	reg.ObserveRegion("mars", false)
	reg.ObserveRegion("mars", false)
	reg.ObserveRejected(ReasonBadRequest)
	reg.ObserveRejected("teapot")

	mfs := parse(t, reg)

	if got := mfs["regionstat_queries_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("queries_total = %v, want 2", got)
	}
	regions := mfs["regionstat_regions_summarized_total"]
	if got := valueWith(t, regions, "known", "true"); got != 1 {
		t.Errorf("regions{known=true} = %v, want 1", got)
	}
	if got := valueWith(t, regions, "known", "false"); got != 2 {
		t.Errorf("regions{known=false} = %v, want 2", got)
	}
	rejected := mfs["regionstat_requests_rejected_total"]
	if got := valueWith(t, rejected, "reason", ReasonBadRequest); got != 1 {
		t.Errorf("rejected{bad_request} = %v, want 1", got)
	}
	if got := valueWith(t, rejected, "reason", ReasonOther); got != 1 {
		t.Errorf("rejected{other} = %v, want 1", got)
	}
	if _, ok := mfs["regionstat_telemetry_records"]; ok {
		t.Error("telemetry_records present without a dataset")
	}
}

func TestRegistry_DatasetGauges(t *testing.T) {
	st := store.FromRecords([]types.TelemetryRecord{
		{Region: "emea", LatencyMs: 1, UptimePct: 99},
		{Region: "emea", LatencyMs: 2, UptimePct: 99},
		{Region: "apac", LatencyMs: 3, UptimePct: 99},
	})
	mfs := parse(t, New(st))

	records := mfs["regionstat_telemetry_records"]
	if records == nil {
		t.Fatal("regionstat_telemetry_records missing")
	}
	if records.GetType() != dto.MetricType_GAUGE {
		t.Errorf("type = %v, want GAUGE", records.GetType())
	}
	if got := valueWith(t, records, "region", "emea"); got != 2 {
		t.Errorf("records{emea} = %v, want 2", got)
	}
	if got := valueWith(t, records, "region", "apac"); got != 1 {
		t.Errorf("records{apac} = %v, want 1", got)
	}
}

func TestRegistry_EmptyDatasetSkipsGauge(t *testing.T) {
	var buf bytes.Buffer
	if err := New(store.FromRecords(nil)).Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "regionstat_telemetry_records") {
		t.Errorf("empty gauge family should be omitted:\n%s", buf.String())
	}
}

func TestRegistry_ServeHTTP(t *testing.T) {
	reg := New(nil)
	reg.ObserveQuery()

	rr := httptest.NewRecorder()
	reg.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	if !strings.Contains(rr.Body.String(), "regionstat_queries_total 1") {
		t.Errorf("body missing queries_total:\n%s", rr.Body.String())
	}
}

func TestRegistry_ConcurrentObserve(t *testing.T) {
	reg := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				reg.ObserveQuery()
				reg.ObserveRegion("emea", j%2 == 0)
				reg.ObserveRejected(ReasonRateLimited)
			}
		}()
	}
	wg.Wait()

	mfs := parse(t, reg)
	if got := mfs["regionstat_queries_total"].GetMetric()[0].GetCounter().GetValue(); got != 1000 {
		t.Errorf("queries_total = %v, want 1000", got)
	}
	if got := valueWith(t, mfs["regionstat_requests_rejected_total"], "reason", ReasonRateLimited); got != 1000 {
		t.Errorf("rejected{rate_limited} = %v, want 1000", got)
	}
}
