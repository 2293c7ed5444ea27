package callable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lucerna-run/workflow-go/token"
)

// HTTPWorkFnOptions configures NewHTTPWorkFn.
type HTTPWorkFnOptions struct {
	// Client is the HTTP client used to send requests. Defaults to
	// http.DefaultClient.
	Client *http.Client

	// URLField, MethodField, HeadersField, and BodyField name the token.Data
	// keys read for the request. Unset fields fall back to "url", "method",
	// "headers", and "body".
	URLField     string
	MethodField  string
	HeadersField string
	BodyField    string

	// ResultField is the token.Data key the response is written under, as a
	// map with status_code, headers, and body entries. Defaults to
	// "http_response".
	ResultField string
}

// NewHTTPWorkFn adapts an HTTP call into a WorkFn for a service activity,
// grounded on the teacher's tool.HTTPTool. It reads method/url/headers/body
// from the token's data, performs the request, and merges the response back
// in under ResultField.
func NewHTTPWorkFn(opts HTTPWorkFnOptions) WorkFn {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	urlField := orDefault(opts.URLField, "url")
	methodField := orDefault(opts.MethodField, "method")
	headersField := orDefault(opts.HeadersField, "headers")
	bodyField := orDefault(opts.BodyField, "body")
	resultField := orDefault(opts.ResultField, "http_response")

	return func(ctx context.Context, data token.Data) (token.Data, error) {
		urlStr, ok := data[urlField].(string)
		if !ok || urlStr == "" {
			return nil, fmt.Errorf("callable: token data missing string field %q", urlField)
		}

		method := "GET"
		if m, ok := data[methodField].(string); ok && m != "" {
			method = strings.ToUpper(m)
		}
		if method != http.MethodGet && method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			return nil, fmt.Errorf("callable: unsupported http method %q", method)
		}

		var body io.Reader
		if bodyStr, ok := data[bodyField].(string); ok && bodyStr != "" {
			body = bytes.NewBufferString(bodyStr)
		}

		req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
		if err != nil {
			return nil, fmt.Errorf("callable: building http request: %w", err)
		}
		if headers, ok := data[headersField].(map[string]interface{}); ok {
			for key, value := range headers {
				if valueStr, ok := value.(string); ok {
					req.Header.Set(key, valueStr)
				}
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("callable: http request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("callable: reading http response body: %w", err)
		}

		respHeaders := make(map[string]interface{}, len(resp.Header))
		for key, values := range resp.Header {
			if len(values) == 1 {
				respHeaders[key] = values[0]
			} else {
				respHeaders[key] = values
			}
		}

		return token.Data{
			resultField: map[string]interface{}{
				"status_code": resp.StatusCode,
				"headers":     respHeaders,
				"body":        string(respBody),
			},
		}, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
