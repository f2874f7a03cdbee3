package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/model"
)

// genericErrorMessage is used when a failed response carries no usable
// {error} body.
const genericErrorMessage = "Request failed"

// APIError is the single error kind returned for failed API calls. Status is
// zero when the request never produced an HTTP response.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// RequestOptions describes one API call.
type RequestOptions struct {
	Query   url.Values
	Headers map[string]string
	Body    any
}

// Binary is a raw response body such as a report PDF.
type Binary struct {
	Data        []byte
	FileName    string
	ContentType string
}

// APIClient is the single chokepoint for calls to the dashboard API. All
// requests share a cookie jar, so session credentials travel with every call.
type APIClient struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// ClientOption customises an APIClient.
type ClientOption func(*APIClient)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is kept when set.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *APIClient) {
		if hc.Jar == nil {
			hc.Jar = c.httpClient.Jar
		}
		c.httpClient = hc
	}
}

func NewAPIClient(cfg *config.APIConfig, opts ...ClientOption) (*APIClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &APIClient{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root every endpoint is resolved against.
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

func (c *APIClient) newRequest(ctx context.Context, method, endpoint string, opts RequestOptions) (*http.Request, error) {
	u := c.baseURL.String() + "/" + strings.TrimLeft(endpoint, "/")
	if len(opts.Query) > 0 {
		u += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		switch b := opts.Body.(type) {
		case []byte:
			body = bytes.NewReader(b)
		case io.Reader:
			body = b
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", err)
			}
			body = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (c *APIClient) send(ctx context.Context, method, endpoint string, opts RequestOptions) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, endpoint, opts)
	if err != nil {
		return nil, nil, &APIError{Message: genericErrorMessage, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &APIError{Message: genericErrorMessage, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &APIError{Status: resp.StatusCode, Message: genericErrorMessage, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, body, errorFromBody(resp.StatusCode, body)
	}
	return resp, body, nil
}

// errorFromBody builds the APIError for a non-2xx response, reading the
// {error} field when the body is JSON.
func errorFromBody(status int, body []byte) *APIError {
	var payload model.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &APIError{Status: status, Message: payload.Error}
	}
	return &APIError{Status: status, Message: genericErrorMessage}
}

// Do performs a JSON request and decodes a successful response into out.
// out may be nil.
func (c *APIClient) Do(ctx context.Context, method, endpoint string, opts RequestOptions, out any) error {
	_, body, err := c.send(ctx, method, endpoint, opts)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Status: http.StatusOK, Message: genericErrorMessage, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// Get is shorthand for Do with GET.
func (c *APIClient) Get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, RequestOptions{Query: query}, out)
}

// Post is shorthand for Do with POST and a JSON body.
func (c *APIClient) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, RequestOptions{Body: body}, out)
}

// Delete is shorthand for Do with DELETE and an optional JSON body.
func (c *APIClient) Delete(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodDelete, endpoint, RequestOptions{Body: body}, out)
}

// Fetch downloads a binary resource, bypassing JSON decoding. The file name
// comes from Content-Disposition when the server sends one.
func (c *APIClient) Fetch(ctx context.Context, endpoint string) (*Binary, error) {
	resp, body, err := c.send(ctx, http.MethodGet, endpoint, RequestOptions{
		Headers: map[string]string{"Accept": "*/*"},
	})
	if err != nil {
		return nil, err
	}
	return &Binary{
		Data:        body,
		FileName:    FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

var dispositionFilename = regexp.MustCompile(`filename="([^"]*)"|filename=([^;\s]+)`)

// FilenameFromDisposition extracts the file name from a Content-Disposition
// header. The first filename= parameter wins; quotes are optional.
func FilenameFromDisposition(header string) string {
	m := dispositionFilename.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies writes the session cookies for the API host to path.
func (c *APIClient) SaveCookies(path string) error {
	cookies := c.httpClient.Jar.Cookies(c.baseURL)
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadCookies restores cookies saved by SaveCookies. A missing file is not an
// error.
func (c *APIClient) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}

	root := *c.baseURL
	root.Path = "/"
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(&root, cookies)
	return nil
}

// ClearCookies forgets every cookie held for the API host.
func (c *APIClient) ClearCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c.httpClient.Jar = jar
	return nil
}
