// Package webfetch provides the fetch_page tool: it downloads a web page and returns it as
// Markdown so the model can read it as an observation.
package webfetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
)

const (
	Name        = "fetch_page"
	Description = "Fetches a web page and returns its content as Markdown. Input is the URL of the page"

	DefaultTimeout         = 30 * time.Second
	DefaultUserAgent       = "reagent-webfetch/0.1"
	DefaultMaxBodySize     = 5 * 1024 * 1024
	DefaultMaxOutputLength = 8000

	truncatedMarker = "\n...(truncated)"
)

// Tool is the fetch_page tool.
type Tool struct {
	httpClient      *http.Client
	timeout         time.Duration
	userAgent       string
	maxBodySize     int64
	maxOutputLength int
}

// Option configures Tool.
type Option func(*Tool)

// WithHTTPClient replaces the HTTP client. Default is a client following up to 10 redirects.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// WithTimeout sets the timeout of one fetch. Default: [DefaultTimeout].
func WithTimeout(timeout time.Duration) Option {
	return func(t *Tool) {
		t.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header. Default: [DefaultUserAgent].
func WithUserAgent(userAgent string) Option {
	return func(t *Tool) {
		t.userAgent = userAgent
	}
}

// WithMaxBodySize sets the largest response body accepted, in bytes. Default: [DefaultMaxBodySize].
func WithMaxBodySize(size int64) Option {
	return func(t *Tool) {
		t.maxBodySize = size
	}
}

// WithMaxOutputLength caps the observation in characters since it goes into every following
// prompt. 0 disables the cap. Default: [DefaultMaxOutputLength].
func WithMaxOutputLength(n int) Option {
	return func(t *Tool) {
		t.maxOutputLength = n
	}
}

// New creates the fetch_page tool.
func New(options ...Option) *Tool {
	t := &Tool{
		timeout:         DefaultTimeout,
		userAgent:       DefaultUserAgent,
		maxBodySize:     DefaultMaxBodySize,
		maxOutputLength: DefaultMaxOutputLength,
	}
	for _, opt := range options {
		opt(t)
	}

	if t.httpClient == nil {
		t.httpClient = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return goerr.New("too many redirects", goerr.V("url", req.URL.String()))
				}
				return nil
			},
		}
	}
	return t
}

func (t *Tool) Spec() reagent.ToolSpec {
	return reagent.ToolSpec{Name: Name, Description: Description}
}

// Run fetches the URL given as input. A URL without scheme is fetched with https.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	url := normalizeURL(input)
	if url == "" {
		return "", goerr.New("URL is empty")
	}

	logger := reagent.LoggerFromContext(ctx)
	logger.Debug("fetching page", "url", url)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to fetch page", goerr.V("url", url))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("unexpected status code",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return "", goerr.Wrap(err, "failed to read response body", goerr.V("url", url))
	}
	if int64(len(body)) > t.maxBodySize {
		return "", goerr.New("response body is too large",
			goerr.V("url", url),
			goerr.V("max_body_size", t.maxBodySize),
		)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to convert HTML to Markdown", goerr.V("url", url))
	}

	return truncate(strings.TrimSpace(markdown), t.maxOutputLength), nil
}

// normalizeURL trims spaces and quotes the model may add, and defaults the scheme to https.
func normalizeURL(input string) string {
	url := strings.Trim(strings.TrimSpace(input), "\"'`")
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return url
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + truncatedMarker
}
