// internal/provider/edamam.go
package provider

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"mcp-prenatal-log/internal/normalizer"
)

const DefaultEdamamURL = "https://api.edamam.com"

// Edamam uses the food database parser, which answers both free text (ingr)
// and barcodes (upc) with a list of hints.
type Edamam struct {
	httpClient *resty.Client
	appID      string
	appKey     string
}

func NewEdamam(opts ClientOptions, appID, appKey string) *Edamam {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultEdamamURL
	}
	return &Edamam{httpClient: newHTTPClient(opts), appID: appID, appKey: appKey}
}

func (e *Edamam) Name() string                 { return string(normalizer.Edamam) }
func (e *Edamam) Schema() normalizer.SchemaTag { return normalizer.Edamam }

func (e *Edamam) parse(ctx context.Context, param, value string) ([]Record, error) {
	resp, err := e.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			param:     value,
			"app_id":  e.appID,
			"app_key": e.appKey,
		}).
		Get("/api/food-database/v2/parser")
	body, err := checkResponse(e.Name(), resp, err)
	if err != nil {
		return nil, err
	}
	return records(gjson.GetBytes(body, "hints"), "food.foodId"), nil
}

func (e *Edamam) LookupBarcode(ctx context.Context, code string) (Record, error) {
	recs, err := e.parse(ctx, "upc", code)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

func (e *Edamam) SearchName(ctx context.Context, text string) ([]Record, error) {
	return e.parse(ctx, "ingr", text)
}
