package encoder

import (
	"fmt"
	"io"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// Decode parses a text exposition payload back into samples. It is the
// receiving side of Encode, used by tests and by the fake ingest endpoint in
// remote/remotetest. Families are returned in name order; within a family
// the payload order is kept.
func Decode(r io.Reader) ([]types.Sample, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	names := make([]string, 0, len(mfs))
	for name := range mfs {
		names = append(names, name)
	}
	sort.Strings(names)

	var samples []types.Sample
	for _, name := range names {
		for _, m := range mfs[name].GetMetric() {
			s := types.Sample{Name: types.MetricName(name), Value: metricValue(m)}
			for _, lp := range m.GetLabel() {
				s.Labels = append(s.Labels, types.Label{Name: lp.GetName(), Value: lp.GetValue()})
			}
			if m.TimestampMs != nil {
				s.Timestamp = time.UnixMilli(m.GetTimestampMs()).UTC()
			}
			samples = append(samples, s)
		}
	}
	return samples, nil
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
