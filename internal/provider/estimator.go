// internal/provider/estimator.go
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/normalizer"
)

// Estimator asks an LLM completion gateway to estimate nutrient content for a
// free-text food. It answers name lookups only and is meant to sit last in the
// source chain.
type Estimator struct {
	httpClient *resty.Client
	apiKey     string
	model      string
}

func NewEstimator(opts ClientOptions, apiKey, model string) *Estimator {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	return &Estimator{
		httpClient: newHTTPClient(opts).SetHeader("Content-Type", "application/json"),
		apiKey:     apiKey,
		model:      model,
	}
}

func (s *Estimator) Name() string                 { return string(normalizer.Estimate) }
func (s *Estimator) Schema() normalizer.SchemaTag { return normalizer.Estimate }

func (s *Estimator) LookupBarcode(ctx context.Context, code string) (Record, error) {
	return Record{}, ErrUnsupported
}

func (s *Estimator) SearchName(ctx context.Context, text string) ([]Record, error) {
	completionRequest := map[string]interface{}{
		"model":         s.model,
		"system_prompt": estimatorPrompt(),
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": fmt.Sprintf("Estimate the nutrient content of one typical serving of: %q", text),
			},
		},
		"max_tokens":  1500,
		"temperature": 0.1,
	}

	content, err := s.callGateway(ctx, "create_completion", completionRequest)
	if err != nil {
		return nil, err
	}

	doc, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}
	if gjson.Get(doc, "found").Exists() && !gjson.Get(doc, "found").Bool() {
		return nil, nil
	}
	return []Record{{ID: "estimate:" + text, Document: []byte(doc)}}, nil
}

func estimatorPrompt() string {
	var b strings.Builder
	b.WriteString(`You are a nutrition expert estimating nutrient content for prenatal nutrition tracking.

Always respond with valid JSON in this exact format:
{
  "found": true,
  "name": "specific food name",
  "reference_quantity": [number],
  "reference_unit": "g|ml|cup|serving|piece",
  "nutrients": {
`)
	for i, n := range models.TrackedNutrients {
		fmt.Fprintf(&b, `    "%s": {"amount": [number or null], "unit": "%s"}`, n, n.CanonicalUnit())
		if i < len(models.TrackedNutrients)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(`  }
}

Use null for any nutrient you cannot estimate with reasonable confidence. Never use 0 to mean unknown.
If the text does not describe a food, respond with {"found": false}.`)
	return b.String()
}

// callGateway sends a JSON-RPC tools/call through the MCP proxy and returns
// the completion text.
func (s *Estimator) callGateway(ctx context.Context, toolName string, args interface{}) (string, error) {
	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(requestData).
		Post("/openrouter-gateway")
	if err == nil && resp.StatusCode() == 404 {
		// a missing gateway route says nothing about the food
		return "", fmt.Errorf("%s: gateway route not found (status 404)", s.Name())
	}
	body, err := checkResponse(s.Name(), resp, err)
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(body, "result.content.0.text")
	if text.Type != gjson.String {
		return "", fmt.Errorf("%s: unexpected gateway response: %w", s.Name(), normalizer.ErrMalformedSourceRecord)
	}

	// The completion tool wraps the model output in {"content": "..."}.
	if inner := gjson.Get(text.Str, "content"); inner.Type == gjson.String {
		return inner.Str, nil
	}
	return text.Str, nil
}

// extractJSONObject returns the outermost {...} in the model output.
func extractJSONObject(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("estimate: no JSON object in completion: %w", normalizer.ErrMalformedSourceRecord)
	}
	doc := content[start : end+1]
	if !gjson.Valid(doc) {
		return "", fmt.Errorf("estimate: invalid JSON in completion: %w", normalizer.ErrMalformedSourceRecord)
	}
	return doc, nil
}
