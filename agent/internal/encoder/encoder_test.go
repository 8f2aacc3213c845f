package encoder

import (
	"bytes"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

var ts = time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC)

func sample(name types.MetricName, key, value string, v float64) types.Sample {
	return types.Sample{
		Name:      name,
		Labels:    []types.Label{{Name: key, Value: value}},
		Value:     v,
		Timestamp: ts,
	}
}

// triples renders samples as sorted "series value @ms" strings, independent
// of batch order.
func triples(samples []types.Sample) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.String()+" @"+s.Timestamp.Format(time.RFC3339Nano))
	}
	sort.Strings(out)
	return out
}

func TestEncode_RoundTrip(t *testing.T) {
	batch := []types.Sample{
		sample(types.MetricTemperature, types.LabelStation, "Santiago Centro", 21.5),
		sample(types.MetricHumidity, types.LabelStation, "Santiago Centro", 60),
		sample(types.MetricTemperature, types.LabelStation, `Estación "Quinta Normal"`, -0.25),
		sample(types.MetricQuakeMagnitude, types.LabelLocation, `25 km al S de Ovalle\Coquimbo`, 3.5),
		sample(types.MetricQuakeDepth, types.LabelLocation, "línea\nnueva", 35),
		sample(types.MetricCurrency, types.LabelCode, "UF", 36123.45),
		sample(types.MetricCurrency, types.LabelCode, "USD", 950.12),
	}
	batch[2].Timestamp = ts.Add(-90 * time.Second)

	shuffled := make([]types.Sample, len(batch))
	copy(shuffled, batch)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for name, in := range map[string][]types.Sample{"ordered": batch, "shuffled": shuffled} {
		t.Run(name, func(t *testing.T) {
			p, err := Encode(in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if p.Samples != len(in) {
				t.Errorf("Payload.Samples = %d, want %d", p.Samples, len(in))
			}
			out, err := Decode(bytes.NewReader(p.Body))
			if err != nil {
				t.Fatalf("Decode() error = %v\n%s", err, p.Body)
			}
			got, want := triples(out), triples(batch)
			if strings.Join(got, "\n") != strings.Join(want, "\n") {
				t.Errorf("round trip mismatch:\ngot:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
			}
		})
	}
}

func TestEncode_TextLines(t *testing.T) {
	p, err := Encode([]types.Sample{
		sample(types.MetricTemperature, types.LabelStation, "Santiago Centro", 21.5),
		sample(types.MetricHumidity, types.LabelStation, "Santiago Centro", 60),
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	body := string(p.Body)

	for _, want := range []string{
		"# TYPE chile_temperature_celsius gauge",
		`chile_temperature_celsius{station="Santiago Centro"} 21.5 1792429200000`,
		`chile_humidity_percent{station="Santiago Centro"} 60 1792429200000`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q:\n%s", want, body)
		}
	}
	if p.ContentType != string(Format) || !strings.HasPrefix(p.ContentType, "text/plain") {
		t.Errorf("ContentType = %q", p.ContentType)
	}
}

func TestEncode_EscapesLabelValues(t *testing.T) {
	p, err := Encode([]types.Sample{
		sample(types.MetricQuakeMagnitude, types.LabelLocation, "a\"b\\c\nd", 4),
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `chile_earthquake_magnitude{location="a\"b\\c\nd"} 4`
	if !strings.Contains(string(p.Body), want) {
		t.Errorf("payload missing %q:\n%s", want, p.Body)
	}
	if n := strings.Count(string(p.Body), "\n"); n != 3 {
		t.Errorf("payload has %d lines, want 3 (HELP, TYPE, sample)", n)
	}
}

func TestEncode_SameSeriesTwice(t *testing.T) {
	first := sample(types.MetricQuakeMagnitude, types.LabelLocation, "Ovalle", 3.5)
	second := sample(types.MetricQuakeMagnitude, types.LabelLocation, "Ovalle", 4.1)
	second.Timestamp = ts.Add(time.Hour)

	p, err := Encode([]types.Sample{first, second})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(bytes.NewReader(p.Body))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("decoded %d samples, want 2", len(out))
	}
	if out[0].Value != 3.5 || out[1].Value != 4.1 {
		t.Errorf("values = %v, %v; want 3.5, 4.1", out[0].Value, out[1].Value)
	}
}

func TestEncode_FamilyOrder(t *testing.T) {
	p, err := Encode([]types.Sample{
		sample(types.MetricCurrency, types.LabelCode, "USD", 950),
		sample(types.MetricTemperature, types.LabelStation, "Arica", 20),
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	body := string(p.Body)
	if strings.Index(body, "chile_temperature_celsius") > strings.Index(body, "chile_currency_clp") {
		t.Errorf("families not in enumeration order:\n%s", body)
	}
}

func TestEncode_ZeroTimestampOmitted(t *testing.T) {
	s := sample(types.MetricCurrency, types.LabelCode, "UF", 36000)
	s.Timestamp = time.Time{}

	p, err := Encode([]types.Sample{s})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(p.Body), "chile_currency_clp{code=\"UF\"} 36000\n") {
		t.Errorf("expected sample line without timestamp:\n%s", p.Body)
	}
}

func TestEncode_RejectsInvalidSamples(t *testing.T) {
	dup := sample(types.MetricCurrency, types.LabelCode, "USD", 950)
	dup.Labels = append(dup.Labels, types.Label{Name: types.LabelCode, Value: "EUR"})

	badName := sample("chile_unknown_metric", types.LabelCode, "USD", 1)
	badLabel := sample(types.MetricCurrency, "1code", "USD", 1)
	emptyValue := sample(types.MetricCurrency, types.LabelCode, "", 1)
	badUTF8 := sample(types.MetricCurrency, types.LabelCode, "\xff", 1)

	tests := []struct {
		name  string
		batch []types.Sample
	}{
		{"duplicate_label", []types.Sample{dup}},
		{"unknown_name", []types.Sample{badName}},
		{"invalid_label_name", []types.Sample{badLabel}},
		{"empty_label_value", []types.Sample{emptyValue}},
		{"invalid_utf8", []types.Sample{badUTF8}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.batch)
			var ee *EncodeError
			if !errors.As(err, &ee) {
				t.Fatalf("Encode() error = %v, want *EncodeError", err)
			}
		})
	}
}

func TestEncode_EmptyBatch(t *testing.T) {
	_, err := Encode(nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("Encode(nil) error = %v, want ErrEmptyBatch", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode(strings.NewReader("chile_currency_clp{code=\"USD\" 1\n")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
