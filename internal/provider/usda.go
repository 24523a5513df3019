// internal/provider/usda.go
package provider

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"mcp-prenatal-log/internal/normalizer"
)

const DefaultUSDAURL = "https://api.nal.usda.gov/fdc"

// USDA queries FoodData Central. Barcodes are matched against the gtinUpc
// field of branded foods.
type USDA struct {
	httpClient *resty.Client
	apiKey     string
}

func NewUSDA(opts ClientOptions, apiKey string) *USDA {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultUSDAURL
	}
	if apiKey == "" {
		apiKey = "DEMO_KEY"
	}
	return &USDA{httpClient: newHTTPClient(opts), apiKey: apiKey}
}

func (u *USDA) Name() string                 { return string(normalizer.USDA) }
func (u *USDA) Schema() normalizer.SchemaTag { return normalizer.USDA }

func (u *USDA) search(ctx context.Context, query string, pageSize string) (gjson.Result, error) {
	resp, err := u.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"pageSize": pageSize,
			"api_key":  u.apiKey,
		}).
		Get("/v1/foods/search")
	body, err := checkResponse(u.Name(), resp, err)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(body, "foods"), nil
}

func (u *USDA) LookupBarcode(ctx context.Context, code string) (Record, error) {
	foods, err := u.search(ctx, code, "10")
	if err != nil {
		return Record{}, err
	}
	want := strings.TrimLeft(code, "0")
	for _, rec := range records(foods, "fdcId") {
		gtin := strings.TrimLeft(gjson.GetBytes(rec.Document, "gtinUpc").String(), "0")
		if gtin != "" && gtin == want {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (u *USDA) SearchName(ctx context.Context, text string) ([]Record, error) {
	foods, err := u.search(ctx, text, "5")
	if err != nil {
		return nil, err
	}
	return records(foods, "fdcId"), nil
}
