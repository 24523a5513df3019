// internal/provider/provider.go
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"mcp-prenatal-log/internal/normalizer"
)

var (
	// ErrNotFound means the source answered and does not know the food.
	ErrNotFound = errors.New("food not found at source")
	// ErrUnsupported means the source cannot answer this kind of lookup.
	ErrUnsupported = errors.New("lookup not supported by source")
)

// Record is one raw food document as returned by a source, before
// normalization. Document is interpreted according to the source's schema.
type Record struct {
	ID       string
	Document []byte
}

// Source is an external nutrient provider.
type Source interface {
	Name() string
	Schema() normalizer.SchemaTag
	LookupBarcode(ctx context.Context, code string) (Record, error)
	SearchName(ctx context.Context, text string) ([]Record, error)
}

type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

const userAgent = "mcp-prenatal-log/1.0 (nutrition tracking)"

func newHTTPClient(opts ClientOptions) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
}

// checkResponse turns transport failures and non-2xx statuses into errors.
// A 404 is reported as ErrNotFound.
func checkResponse(source string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", source, err)
	}
	switch code := resp.StatusCode(); {
	case code == 404:
		return nil, ErrNotFound
	case code < 200 || code > 299:
		return nil, fmt.Errorf("%s returned status %d", source, code)
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: %w", source, normalizer.ErrMalformedSourceRecord)
	}
	return body, nil
}

// records converts a JSON array of documents into records, reading each id
// from idPath.
func records(arr gjson.Result, idPath string) []Record {
	var out []Record
	arr.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, Record{ID: v.Get(idPath).String(), Document: []byte(v.Raw)})
		}
		return true
	})
	return out
}
