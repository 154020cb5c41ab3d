package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/apiflow/apiflow/engine/core"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/pkg/dotpath"
	"github.com/apiflow/apiflow/pkg/tplengine"
)

// DefaultTimeout bounds every HTTP call unless a tool overrides it.
const DefaultTimeout = 30 * time.Second

const maxErrorBodyLen = 512

var pathPlaceholderRE = regexp.MustCompile(`\{(\w+)\}`)

// Dispatcher issues the configured HTTP request for a step. Two call
// paths coexist: the flat legacy path and the structured-config path,
// selected by the presence of the tool's request block. The shared resty
// client pools connections; request-specific headers are set per request
// only.
type Dispatcher struct {
	client  *resty.Client
	timeout time.Duration
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{client: resty.New(), timeout: timeout}
}

// Call resolves the tool's call path and executes it. toolCfg carries the
// per-tool runtime secrets (auth_token, auth_username, ...).
func (d *Dispatcher) Call(
	ctx context.Context,
	t *tool.Config,
	resolved core.Input,
	toolCfg map[string]string,
) (core.Output, error) {
	if t.HasStructuredRequest() {
		return d.callStructured(ctx, t, resolved, toolCfg)
	}
	return d.callLegacy(ctx, t, resolved, toolCfg)
}

// -----------------------------------------------------------------------------
// Structured path
// -----------------------------------------------------------------------------

func (d *Dispatcher) callStructured(
	ctx context.Context,
	t *tool.Config,
	resolved core.Input,
	toolCfg map[string]string,
) (core.Output, error) {
	req := t.Request
	inputs := resolved.AsMap()

	// 1. Partition: pop path values, then query values; the rest are
	// body values.
	path := t.Path
	for _, param := range req.PathParams {
		value, ok := inputs[param]
		if !ok {
			return nil, &StepError{
				Kind:   KindDispatch,
				ToolID: t.ID,
				Reason: fmt.Sprintf("missing value for path param %q", param),
			}
		}
		delete(inputs, param)
		path = strings.ReplaceAll(path, "{"+param+"}", url.PathEscape(tplengine.Stringify(value)))
	}
	callURL := joinURL(t.BaseURL, path)

	query := url.Values{}
	for _, param := range req.QueryParams {
		value, ok := inputs[param]
		if !ok {
			continue
		}
		delete(inputs, param)
		addQueryValue(query, param, value)
	}

	// The full resolved map stays available to header and body templates;
	// names popped into path or query are never consumed from it.
	scope := resolved.AsMap()

	// 2. Headers: auth first, then custom headers rendered non-strict;
	// entries that still contain an unresolved placeholder are dropped.
	headers := authHeaders(t.GetAuth(), toolCfg)
	for _, name := range sortedHeaderNames(req.Headers) {
		rendered, err := tplengine.Render(req.Headers[name], scope, false)
		if err != nil {
			return nil, &StepError{Kind: KindTemplate, ToolID: t.ID, Reason: "header rendering failed", Err: err}
		}
		value := tplengine.Stringify(rendered)
		if strings.Contains(value, "{{") {
			continue
		}
		headers[name] = value
	}

	// 3. Body: strict render so a missing key fails the step.
	var body any
	if req.Body != nil {
		rendered, err := tplengine.Render(req.Body, scope, true)
		if err != nil {
			return nil, &StepError{Kind: KindTemplate, ToolID: t.ID, URL: callURL, Reason: "body rendering failed", Err: err}
		}
		body = rendered
	}

	resp, err := d.do(ctx, t, t.EffectiveMethod(), callURL, headers, query, body, req.ContentType)
	if err != nil {
		return nil, err
	}

	data, err := parseResponse(t, callURL, resp)
	if err != nil {
		return nil, err
	}

	if t.ResponseExtract != nil && len(t.ResponseExtract.Fields) > 0 {
		return extractFields(t, callURL, data, resp.StatusCode())
	}
	return shapeOutput(data), nil
}

// -----------------------------------------------------------------------------
// Legacy path
// -----------------------------------------------------------------------------

func (d *Dispatcher) callLegacy(
	ctx context.Context,
	t *tool.Config,
	resolved core.Input,
	toolCfg map[string]string,
) (core.Output, error) {
	inputs := resolved.AsMap()

	// Substitute {name} placeholders present in the path; matched inputs
	// are consumed.
	path := t.Path
	for _, match := range pathPlaceholderRE.FindAllStringSubmatch(t.Path, -1) {
		name := match[1]
		value, ok := inputs[name]
		if !ok {
			continue
		}
		delete(inputs, name)
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(tplengine.Stringify(value)))
	}
	callURL := joinURL(t.BaseURL, path)
	headers := authHeaders(t.GetAuth(), toolCfg)
	method := t.EffectiveMethod()

	var body any
	query := url.Values{}
	switch method {
	case core.MethodGet, core.MethodDelete:
		for _, name := range sortedInputNames(inputs) {
			addQueryValue(query, name, inputs[name])
		}
	default:
		body = inputs
	}

	resp, err := d.do(ctx, t, method, callURL, headers, query, body, "")
	if err != nil {
		return nil, err
	}
	data, err := parseResponse(t, callURL, resp)
	if err != nil {
		return nil, err
	}
	return shapeOutput(data), nil
}

// -----------------------------------------------------------------------------
// Shared primitives
// -----------------------------------------------------------------------------

func (d *Dispatcher) do(
	ctx context.Context,
	t *tool.Config,
	method string,
	callURL string,
	headers map[string]string,
	query url.Values,
	body any,
	contentType string,
) (*resty.Response, error) {
	timeout := d.timeout
	if secs := t.Timeout(); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := d.client.R().SetContext(callCtx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		if contentType == tool.ContentTypeForm {
			req.SetFormData(formEncode(body))
		} else {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(body)
		}
	}

	resp, err := req.Execute(method, callURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &StepError{Kind: KindCancelled, ToolID: t.ID, URL: callURL, Reason: "cancelled"}
		}
		return nil, &StepError{Kind: KindDispatch, ToolID: t.ID, URL: callURL, Reason: "request failed", Err: err}
	}
	if resp.IsError() {
		return nil, &StepError{
			Kind:       KindDispatch,
			ToolID:     t.ID,
			URL:        callURL,
			HTTPStatus: resp.StatusCode(),
			Reason:     truncateBody(resp.String()),
		}
	}
	return resp, nil
}

func parseResponse(t *tool.Config, callURL string, resp *resty.Response) (any, error) {
	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return map[string]any{"text": string(resp.Body())}, nil
	}
	var data any
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, &StepError{
			Kind:       KindDispatch,
			ToolID:     t.ID,
			URL:        callURL,
			HTTPStatus: resp.StatusCode(),
			Reason:     "failed to parse JSON response",
			Err:        err,
		}
	}
	return data, nil
}

func extractFields(t *tool.Config, callURL string, data any, status int) (core.Output, error) {
	extract := t.ResponseExtract
	keys := make([]string, 0, len(extract.Fields))
	for key := range extract.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := core.Output{}
	for _, key := range keys {
		fieldPath := extract.Fields[key]
		value, err := dotpath.Traverse(data, fieldPath)
		if err != nil {
			if extract.Strict {
				return nil, &StepError{
					Kind:       KindExtraction,
					ToolID:     t.ID,
					URL:        callURL,
					HTTPStatus: status,
					Reason:     fmt.Sprintf("response extraction failed: field %q not found", fieldPath),
					Err:        err,
				}
			}
			out[key] = nil
			continue
		}
		out[key] = value
	}
	return out, nil
}

// shapeOutput normalizes a parsed response body into an Output mapping:
// sequences wrap as {items, count}, mappings pass through, scalars nest
// under "value".
func shapeOutput(data any) core.Output {
	switch v := data.(type) {
	case map[string]any:
		return core.Output(v)
	case []any:
		return core.Output{"items": v, "count": len(v)}
	case nil:
		return core.Output{}
	default:
		return core.Output{"value": v}
	}
}

func authHeaders(auth tool.AuthConfig, toolCfg map[string]string) map[string]string {
	headers := map[string]string{}
	token := toolCfg["auth_token"]
	switch auth.Type {
	case tool.AuthAPIKey:
		// An empty secret skips the header so unauthenticated dev runs work.
		if token != "" {
			name := auth.Header
			if name == "" {
				name = "X-API-Key"
			}
			headers[name] = token
		}
	case tool.AuthBearer:
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	case tool.AuthBasic:
		usernameKey := auth.UsernameKey
		if usernameKey == "" {
			usernameKey = "auth_username"
		}
		username := toolCfg[usernameKey]
		if username != "" || token != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + token))
			headers["Authorization"] = "Basic " + credentials
		}
	}
	return headers
}

func joinURL(baseURL, path string) string {
	if path == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// addQueryValue encodes one query entry; sequences expand to repeated
// keys and nulls are omitted.
func addQueryValue(query url.Values, name string, value any) {
	switch v := value.(type) {
	case nil:
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			query.Add(name, tplengine.Stringify(item))
		}
	default:
		query.Add(name, tplengine.Stringify(value))
	}
}

// formEncode flattens a rendered body into form fields.
func formEncode(body any) map[string]string {
	fields := map[string]string{}
	if m, ok := body.(map[string]any); ok {
		for name, value := range m {
			if value == nil {
				continue
			}
			fields[name] = tplengine.Stringify(value)
		}
	}
	return fields
}

func sortedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedInputNames(inputs map[string]any) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBodyLen {
		return body[:maxErrorBodyLen] + "..."
	}
	if body == "" {
		return "request failed"
	}
	return body
}
