package tool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/apiflow/apiflow/engine/core"
)

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
)

// AuthConfig describes how call-time credentials are applied. Secrets are
// never part of the definition; they are injected from per-tool runtime
// config when the call is made.
type AuthConfig struct {
	Type AuthType `json:"type"                   yaml:"type"`
	// Header names the header used for api_key auth (default X-API-Key).
	Header string `json:"header,omitempty"       yaml:"header,omitempty"`
	// UsernameKey names the runtime-config key holding the basic-auth
	// username (default auth_username).
	UsernameKey string `json:"username_key,omitempty" yaml:"username_key,omitempty"`
}

// -----------------------------------------------------------------------------
// Request / response config
// -----------------------------------------------------------------------------

// RequestConfig partitions resolved inputs into URL path values, query
// values, and body values. Its presence on a tool selects the structured
// call path.
type RequestConfig struct {
	PathParams  []string          `json:"path_params,omitempty"  yaml:"path_params,omitempty"`
	QueryParams []string          `json:"query_params,omitempty" yaml:"query_params,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"      yaml:"headers,omitempty"`
	Body        any               `json:"body,omitempty"         yaml:"body,omitempty"`
	// ContentType selects body encoding; JSON unless set to
	// application/x-www-form-urlencoded.
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
}

const ContentTypeForm = "application/x-www-form-urlencoded"

// ResponseExtract projects the raw response onto a flat output mapping of
// output key to dotted path.
type ResponseExtract struct {
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Strict bool              `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// -----------------------------------------------------------------------------
// Tool definition
// -----------------------------------------------------------------------------

// Config is an immutable description of one HTTP endpoint. Legacy fields
// (auth_type, auth_header, parameters) and the structured blocks coexist;
// the presence of Request switches the dispatcher to the structured path.
type Config struct {
	ID          string `json:"id"                 yaml:"id"          validate:"required"`
	Name        string `json:"name"               yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	BaseURL     string `json:"base_url"           yaml:"base_url"    validate:"required"`
	Method      string `json:"method"             yaml:"method"      validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Path        string `json:"path,omitempty"     yaml:"path,omitempty"`

	// Legacy call path
	AuthType   AuthType `json:"auth_type,omitempty"  yaml:"auth_type,omitempty"  validate:"omitempty,oneof=none api_key bearer"`
	AuthHeader string   `json:"auth_header,omitempty" yaml:"auth_header,omitempty"`
	Parameters []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Structured call path
	Auth            *AuthConfig      `json:"auth,omitempty"             yaml:"auth,omitempty"`
	Request         *RequestConfig   `json:"request,omitempty"          yaml:"request,omitempty"`
	ResponseExtract *ResponseExtract `json:"response_extract,omitempty" yaml:"response_extract,omitempty"`

	// TimeoutSeconds overrides the process-wide HTTP timeout for this tool.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

var structValidator = validator.New()

// HasStructuredRequest reports whether the structured call path applies.
func (t *Config) HasStructuredRequest() bool {
	return t.Request != nil
}

// GetAuth resolves the effective auth configuration, falling back to the
// legacy fields when no structured auth block is present.
func (t *Config) GetAuth() AuthConfig {
	if t.Auth != nil {
		auth := *t.Auth
		if auth.Type == "" {
			auth.Type = AuthNone
		}
		return auth
	}
	authType := t.AuthType
	if authType == "" {
		authType = AuthNone
	}
	return AuthConfig{Type: authType, Header: t.AuthHeader}
}

// Validate checks field constraints plus the structural invariants of the
// request block: path_params and query_params must be disjoint, and every
// path param must appear as a {name} placeholder in the path.
func (t *Config) Validate() error {
	if err := structValidator.Struct(t); err != nil {
		return fmt.Errorf("tool %q: invalid definition: %w", t.ID, err)
	}
	if t.Auth != nil {
		switch t.Auth.Type {
		case "", AuthNone, AuthAPIKey, AuthBearer, AuthBasic:
		default:
			return fmt.Errorf("tool %q: unsupported auth type %q", t.ID, t.Auth.Type)
		}
	}
	if t.Request == nil {
		return nil
	}
	for _, param := range t.Request.PathParams {
		if slices.Contains(t.Request.QueryParams, param) {
			return fmt.Errorf("tool %q: param %q is listed as both path and query param", t.ID, param)
		}
		if !strings.Contains(t.Path, "{"+param+"}") {
			return fmt.Errorf("tool %q: path param %q has no {%s} placeholder in path %q", t.ID, param, param, t.Path)
		}
	}
	if t.Request.ContentType != "" &&
		t.Request.ContentType != ContentTypeForm &&
		!strings.Contains(t.Request.ContentType, "json") {
		return fmt.Errorf("tool %q: unsupported content type %q", t.ID, t.Request.ContentType)
	}
	return nil
}

// Timeout returns the per-tool timeout override in seconds, zero when the
// process default applies.
func (t *Config) Timeout() int {
	return t.TimeoutSeconds
}

// EffectiveMethod normalizes the HTTP method.
func (t *Config) EffectiveMethod() string {
	method := strings.ToUpper(t.Method)
	if method == "" {
		return core.MethodGet
	}
	return method
}
