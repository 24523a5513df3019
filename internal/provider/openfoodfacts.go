// internal/provider/openfoodfacts.go
package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"mcp-prenatal-log/internal/normalizer"
)

const DefaultOpenFoodFactsURL = "https://world.openfoodfacts.org"

type OpenFoodFacts struct {
	httpClient *resty.Client
}

func NewOpenFoodFacts(opts ClientOptions) *OpenFoodFacts {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenFoodFactsURL
	}
	return &OpenFoodFacts{httpClient: newHTTPClient(opts)}
}

func (o *OpenFoodFacts) Name() string                 { return string(normalizer.OpenFoodFacts) }
func (o *OpenFoodFacts) Schema() normalizer.SchemaTag { return normalizer.OpenFoodFacts }

func (o *OpenFoodFacts) LookupBarcode(ctx context.Context, code string) (Record, error) {
	resp, err := o.httpClient.R().
		SetContext(ctx).
		SetPathParam("code", code).
		Get("/api/v2/product/{code}.json")
	body, err := checkResponse(o.Name(), resp, err)
	if err != nil {
		return Record{}, err
	}

	if gjson.GetBytes(body, "status").Int() != 1 {
		return Record{}, ErrNotFound
	}
	product := gjson.GetBytes(body, "product")
	if !product.IsObject() {
		return Record{}, fmt.Errorf("%s: product is not an object: %w", o.Name(), normalizer.ErrMalformedSourceRecord)
	}
	return Record{ID: code, Document: []byte(product.Raw)}, nil
}

func (o *OpenFoodFacts) SearchName(ctx context.Context, text string) ([]Record, error) {
	resp, err := o.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  text,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     "5",
		}).
		Get("/cgi/search.pl")
	body, err := checkResponse(o.Name(), resp, err)
	if err != nil {
		return nil, err
	}
	return records(gjson.GetBytes(body, "products"), "code"), nil
}
