package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/regionstat/server/internal/store"
)

// Rejection reasons reported in regionstat_requests_rejected_total.
const (
	ReasonBadRequest       = "bad_request"
	ReasonMethodNotAllowed = "method_not_allowed"
	ReasonTooLarge         = "too_large"
	ReasonRateLimited      = "rate_limited"
	ReasonOther            = "other"
)

var reasons = []string{ReasonBadRequest, ReasonMethodNotAllowed, ReasonTooLarge, ReasonRateLimited, ReasonOther}

// Dataset reports the loaded regions and their record counts.
type Dataset interface {
	Regions() []store.RegionCount
}

// Registry holds the counters for one server process.
// All methods are safe for concurrent use.
type Registry struct {
	dataset Dataset

	queries        atomic.Uint64
	knownRegions   atomic.Uint64
	unknownRegions atomic.Uint64
	rejected       map[string]*atomic.Uint64 // fixed key set, never written after New
}

// New returns a Registry reporting gauges for ds. ds may be nil.
func New(ds Dataset) *Registry {
	r := &Registry{
		dataset:  ds,
		rejected: make(map[string]*atomic.Uint64, len(reasons)),
	}
	for _, reason := range reasons {
		r.rejected[reason] = new(atomic.Uint64)
	}
	return r
}

// ObserveQuery counts one answered query.
func (r *Registry) ObserveQuery() { r.queries.Add(1) }

// ObserveRegion counts one summarised region.
func (r *Registry) ObserveRegion(_ string, known bool) {
	if known {
		r.knownRegions.Add(1)
		return
	}
	r.unknownRegions.Add(1)
}

// ObserveRejected counts one refused request. Unknown reasons count as "other".
func (r *Registry) ObserveRejected(reason string) {
	c, ok := r.rejected[reason]
	if !ok {
		c = r.rejected[ReasonOther]
	}
	c.Add(1)
}

// Families returns the current metric families sorted by name.
func (r *Registry) Families() []*dto.MetricFamily {
	fams := []*dto.MetricFamily{
		counterFamily("regionstat_queries_total",
			"Number of region queries answered.",
			counter(float64(r.queries.Load()))),
		counterFamily("regionstat_regions_summarized_total",
			"Number of region summaries computed, by whether the region had records.",
			counter(float64(r.knownRegions.Load()), label("known", "true")),
			counter(float64(r.unknownRegions.Load()), label("known", "false"))),
	}

	rejected := make([]*dto.Metric, 0, len(reasons))
	for _, reason := range reasons {
		rejected = append(rejected, counter(float64(r.rejected[reason].Load()), label("reason", reason)))
	}
	fams = append(fams, counterFamily("regionstat_requests_rejected_total",
		"Number of requests rejected before aggregation, by reason.", rejected...))

	if r.dataset != nil {
		regions := r.dataset.Regions()
		gauges := make([]*dto.Metric, 0, len(regions))
		for _, rc := range regions {
			gauges = append(gauges, &dto.Metric{
				Label: []*dto.LabelPair{label("region", rc.Region)},
				Gauge: &dto.Gauge{Value: ptr(float64(rc.Records))},
			})
		}
		fams = append(fams, &dto.MetricFamily{
			Name:   ptr("regionstat_telemetry_records"),
			Help:   ptr("Number of telemetry records loaded per region."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: gauges,
		})
	}

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// Write renders all families to w in the text exposition format.
func (r *Registry) Write(w io.Writer) error {
	for _, mf := range r.Families() {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP serves GET /metrics.
func (r *Registry) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	_ = r.Write(w)
}

// --- helpers ----------------------------------------------------------------

func counterFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: ptr(v)}}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: ptr(name), Value: ptr(value)}
}

func ptr[T any](v T) *T { return &v }
