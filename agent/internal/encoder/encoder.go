// Package encoder serializes metric samples into the Prometheus text
// exposition format accepted by the push endpoint.
//
// Samples are grouped into one gauge family per metric name, in the order of
// types.MetricNames; within a family the batch order is kept, so two samples
// of the same series (e.g. two earthquakes at one location) are both sent,
// each with its own timestamp. Label values are escaped by expfmt.
//
// Encode fails with *EncodeError only on an invariant violation such as a
// duplicate label key or a name outside the enumeration.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"google.golang.org/protobuf/proto"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// Format is the exposition format produced by Encode.
var Format = expfmt.NewFormat(expfmt.TypeTextPlain)

// ErrEmptyBatch is wrapped by the EncodeError returned for an empty batch.
var ErrEmptyBatch = errors.New("empty batch")

// Payload is an encoded batch ready to be pushed.
type Payload struct {
	Body        []byte
	ContentType string
	Samples     int
}

// EncodeError reports a sample that violates a batch invariant.
type EncodeError struct {
	Sample types.Sample
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Sample.Name == "" {
		return fmt.Sprintf("encode: %s", e.Reason)
	}
	return fmt.Sprintf("encode %s: %s", e.Sample.Name, e.Reason)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode serializes samples into one text exposition payload.
func Encode(samples []types.Sample) (Payload, error) {
	if len(samples) == 0 {
		return Payload{}, &EncodeError{Reason: ErrEmptyBatch.Error(), Err: ErrEmptyBatch}
	}

	families := make(map[types.MetricName]*dto.MetricFamily, len(types.MetricNames))
	for _, s := range samples {
		m, err := toMetric(s)
		if err != nil {
			return Payload{}, err
		}
		mf, ok := families[s.Name]
		if !ok {
			mf = &dto.MetricFamily{
				Name: proto.String(string(s.Name)),
				Help: proto.String(s.Name.Help()),
				Type: dto.MetricType_GAUGE.Enum(),
			}
			families[s.Name] = mf
		}
		mf.Metric = append(mf.Metric, m)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, Format)
	for _, name := range types.MetricNames {
		mf, ok := families[name]
		if !ok {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return Payload{}, &EncodeError{Reason: "write family " + string(name), Err: err}
		}
	}

	return Payload{
		Body:        buf.Bytes(),
		ContentType: string(Format),
		Samples:     len(samples),
	}, nil
}

// toMetric validates s and converts it to a gauge metric with labels sorted
// by name.
func toMetric(s types.Sample) (*dto.Metric, error) {
	if !s.Name.Valid() {
		return nil, &EncodeError{Sample: s, Reason: "metric name outside the enumeration"}
	}

	seen := make(map[string]struct{}, len(s.Labels))
	pairs := make([]*dto.LabelPair, 0, len(s.Labels))
	for _, l := range s.Labels {
		if !model.LabelName(l.Name).IsValid() {
			return nil, &EncodeError{Sample: s, Reason: fmt.Sprintf("invalid label name %q", l.Name)}
		}
		if _, dup := seen[l.Name]; dup {
			return nil, &EncodeError{Sample: s, Reason: fmt.Sprintf("duplicate label %q", l.Name)}
		}
		seen[l.Name] = struct{}{}
		if l.Value == "" {
			return nil, &EncodeError{Sample: s, Reason: fmt.Sprintf("empty value for label %q", l.Name)}
		}
		if !model.LabelValue(l.Value).IsValid() {
			return nil, &EncodeError{Sample: s, Reason: fmt.Sprintf("label %q is not valid UTF-8", l.Name)}
		}
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(l.Name), Value: proto.String(l.Value)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].GetName() < pairs[j].GetName() })

	m := &dto.Metric{
		Label: pairs,
		Gauge: &dto.Gauge{Value: proto.Float64(s.Value)},
	}
	if !s.Timestamp.IsZero() {
		m.TimestampMs = proto.Int64(s.Timestamp.UnixMilli())
	}
	return m, nil
}
