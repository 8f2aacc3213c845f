package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

var (
	currencyCode  = []string{"Codigo", "code"}
	currencyName  = []string{"Nombre", "name"}
	currencyValue = []string{"Valor", "value"}
)

type currencyClient struct {
	url    string
	client *http.Client
	codes  map[string]struct{}
	now    func() time.Time
}

func (c *currencyClient) Name() string { return NameCurrency }

// Fetch returns one CurrencyRate per tracked code present in the response.
// Codes outside the tracked set are skipped.
func (c *currencyClient) Fetch(ctx context.Context) ([]types.Record, error) {
	body, err := fetchBody(ctx, c.client, NameCurrency, c.url)
	if err != nil {
		return nil, err
	}
	records, err := parseCurrency(body, c.codes, c.now().UTC())
	if err != nil {
		return nil, parseError(NameCurrency, err)
	}
	slog.Debug("source: currency fetched", "rates", len(records))
	return records, nil
}

func parseCurrency(body []byte, codes map[string]struct{}, fetchedAt time.Time) ([]types.Record, error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(codes))
	coded := 0
	for i, it := range items {
		code, err := it.str(currencyCode...)
		if err != nil {
			return nil, fmt.Errorf("rate %d: %w", i, err)
		}
		if code == "" {
			continue
		}
		coded++
		code = strings.ToUpper(code)
		if _, ok := codes[code]; !ok {
			slog.Debug("source: skipping untracked currency", "code", code)
			continue
		}

		name, err := it.str(currencyName...)
		if err != nil {
			return nil, fmt.Errorf("rate %d: %w", i, err)
		}
		value, err := it.num(parseCLP, currencyValue...)
		if err != nil {
			return nil, fmt.Errorf("rate %d: %w", i, err)
		}
		records = append(records, types.CurrencyRate{
			Code: code,
			Name: name,
			CLP:  value,
			AsOf: fetchedAt,
		})
	}

	if len(items) > 0 && coded == 0 {
		return nil, fmt.Errorf("no element carries a currency code")
	}
	return records, nil
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}
