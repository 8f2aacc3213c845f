package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chilemetrics/chilemetrics/agent/internal/config"
)

// serveBody starts a server that answers every request with status and body.
func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// wantFetchError asserts err is a *FetchError of the given kind.
func wantFetchError(t *testing.T, err error, kind ErrorKind) *FetchError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a *FetchError", err)
	}
	if fe.Kind != kind {
		t.Fatalf("Kind = %s, want %s (err: %v)", fe.Kind, kind, err)
	}
	return fe
}

func TestFetch_HTTPStatus(t *testing.T) {
	srv := serveBody(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	c := &weatherClient{url: srv.URL, client: srv.Client(), now: time.Now}

	_, err := c.Fetch(context.Background())
	fe := wantFetchError(t, err, KindHTTPStatus)
	if fe.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", fe.Status)
	}
	if fe.Source != NameWeather {
		t.Errorf("Source = %q, want %q", fe.Source, NameWeather)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := &seismicClient{url: srv.URL, client: &http.Client{Timeout: 50 * time.Millisecond}, maxEvents: 10}
	_, err := c.Fetch(context.Background())
	wantFetchError(t, err, KindTimeout)
}

func TestFetch_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := &currencyClient{url: srv.URL, client: srv.Client(), codes: codeSet([]string{"USD"}), now: time.Now}
	_, err := c.Fetch(ctx)
	wantFetchError(t, err, KindTimeout)
}

func TestFetch_ConnectFailure(t *testing.T) {
	c := &weatherClient{url: "http://127.0.0.1:1", client: &http.Client{}, now: time.Now}
	_, err := c.Fetch(context.Background())
	wantFetchError(t, err, KindTransport)
}

func TestFetch_MalformedJSON(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `[{"Estacion": "Santiago"`)
	c := &weatherClient{url: srv.URL, client: srv.Client(), now: time.Now}

	_, err := c.Fetch(context.Background())
	wantFetchError(t, err, KindParse)
}

func TestNew_EnabledSources(t *testing.T) {
	cfg := config.SourcesConfig{
		Timeout:  5 * time.Second,
		Weather:  config.SourceConfig{URL: "http://w"},
		Seismic:  config.SeismicConfig{SourceConfig: config.SourceConfig{URL: "http://s", Disabled: true}, MaxEvents: 10},
		Currency: config.CurrencyConfig{SourceConfig: config.SourceConfig{URL: "http://c"}, Codes: []string{"usd"}},
	}

	clients := New(cfg)
	if len(clients) != 2 {
		t.Fatalf("New() returned %d clients, want 2", len(clients))
	}
	if clients[0].Name() != NameWeather || clients[1].Name() != NameCurrency {
		t.Errorf("order = [%s %s], want [weather currency]", clients[0].Name(), clients[1].Name())
	}
	cc := clients[1].(*currencyClient)
	if _, ok := cc.codes["USD"]; !ok {
		t.Errorf("codes should be normalised to upper case, got %v", cc.codes)
	}
	wc := clients[0].(*weatherClient)
	if wc.client.Timeout != 5*time.Second {
		t.Errorf("client timeout = %v, want 5s", wc.client.Timeout)
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"21.5", 21.5, true},
		{" 60 ", 60, true},
		{"3.5 Ml", 3.5, true},
		{"12 km", 12, true},
		{"-2,5", -2.5, true},
		{"1.234,5", 1234.5, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseDecimal(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parseDecimal(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseCLP(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"36.123,45", 36123.45, true},
		{"950,12", 950.12, true},
		{"65.443", 65443, true},
		{"1.234.567", 1234567, true},
		{"950.12", 950.12, true},
		{"1.5", 1.5, true},
		{"0.8", 0.8, true},
		{"$ 1.020,5", 0, false},
		{"$1.020,5", 1020.5, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseCLP(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parseCLP(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestItemLookup_ExactCaseWins(t *testing.T) {
	items, err := decodeItems([]byte(`[{"temp":"20","Temp":"10","HUMEDAD":"55"}]`))
	if err != nil {
		t.Fatalf("decodeItems() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		temp, err := items[0].num(parseDecimal, "Temp", "temperature")
		if err != nil || temp != 10 {
			t.Fatalf("Temp = %v, %v; want 10", temp, err)
		}
		lower, _ := items[0].num(parseDecimal, "temp")
		if lower != 20 {
			t.Fatalf("temp = %v, want 20", lower)
		}
	}
	hum, _ := items[0].num(parseDecimal, "Humedad")
	if hum != 55 {
		t.Errorf("Humedad (case-insensitive) = %v, want 55", hum)
	}
}

func TestItemLookup_CaseInsensitiveIsDeterministic(t *testing.T) {
	items, err := decodeItems([]byte(`[{"TEMP":"30","temp":"20"}]`))
	if err != nil {
		t.Fatalf("decodeItems() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		// "TEMP" sorts before "temp".
		if v, _ := items[0].num(parseDecimal, "Temp"); v != 30 {
			t.Fatalf("Temp = %v on iteration %d, want 30", v, i)
		}
	}
}

func TestDecodeItems(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"array", `[{"a":1},{"a":2}]`, 2, false},
		{"single_object", `{"a":1}`, 1, false},
		{"empty_array", `[]`, 0, false},
		{"empty_body", ``, 0, true},
		{"scalar", `42`, 0, true},
		{"array_of_scalars", `[1,2]`, 0, true},
		{"null_element", `[{"a":1},null]`, 0, true},
		{"truncated", `[{"a":1}`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items, err := decodeItems([]byte(tc.body))
			if (err != nil) != tc.wantErr {
				t.Fatalf("decodeItems() err = %v, wantErr %v", err, tc.wantErr)
			}
			if len(items) != tc.want {
				t.Errorf("len = %d, want %d", len(items), tc.want)
			}
		})
	}
}
