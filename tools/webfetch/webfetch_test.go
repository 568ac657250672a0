package webfetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent"
	"github.com/m-mizutani/reagent/internal/testlog"
	"github.com/m-mizutani/reagent/tools/webfetch"
)

const page = `<html><head><title>Dogs</title></head><body>
<h1>About dogs</h1>
<p>The word <strong>DOG</strong> has three letters.</p>
<ul><li>Shiba</li><li>Akita</li></ul>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/dogs", func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Header.Get("User-Agent"), webfetch.DefaultUserAgent)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("a", 2048) + "</p>"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dogs", http.StatusFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	srv := newServer(t)
	tool := webfetch.New()

	gt.Equal(t, tool.Spec().Name, "fetch_page")

	t.Run("converts HTML to Markdown", func(t *testing.T) {
		out, err := tool.Run(t.Context(), srv.URL+"/dogs")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("# About dogs")
		gt.S(t, out).Contains("**DOG**")
		gt.S(t, out).Contains("- Shiba")
	})

	t.Run("quoted URL", func(t *testing.T) {
		out, err := tool.Run(t.Context(), `"`+srv.URL+`/dogs"`)
		gt.NoError(t, err)
		gt.S(t, out).Contains("About dogs")
	})

	t.Run("follows redirects", func(t *testing.T) {
		out, err := tool.Run(t.Context(), srv.URL+"/redirect")
		gt.NoError(t, err)
		gt.S(t, out).Contains("About dogs")
	})

	t.Run("status error", func(t *testing.T) {
		_, err := tool.Run(t.Context(), srv.URL+"/missing")
		gt.Error(t, err)
	})

	t.Run("empty URL", func(t *testing.T) {
		_, err := tool.Run(t.Context(), "  ")
		gt.Error(t, err)
	})
}

func TestLimits(t *testing.T) {
	srv := newServer(t)

	t.Run("body size", func(t *testing.T) {
		_, err := webfetch.New(webfetch.WithMaxBodySize(1024)).Run(t.Context(), srv.URL+"/large")
		gt.Error(t, err)
	})

	t.Run("output length", func(t *testing.T) {
		out, err := webfetch.New(webfetch.WithMaxOutputLength(100)).Run(t.Context(), srv.URL+"/large")
		gt.NoError(t, err).Required()
		gt.True(t, strings.HasSuffix(out, "...(truncated)"))
		gt.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := webfetch.New(webfetch.WithTimeout(50*time.Millisecond)).Run(t.Context(), srv.URL+"/slow")
		gt.Error(t, err)
	})
}

func TestNormalizeURL(t *testing.T) {
	gt.Equal(t, webfetch.NormalizeURL("example.com"), "https://example.com")
	gt.Equal(t, webfetch.NormalizeURL(" 'http://example.com/a' "), "http://example.com/a")
	gt.Equal(t, webfetch.NormalizeURL("``"), "")
}

func TestTruncate(t *testing.T) {
	gt.Equal(t, webfetch.Truncate("abc", 0), "abc")
	gt.Equal(t, webfetch.Truncate("abc", 3), "abc")
	gt.Equal(t, webfetch.Truncate("日本語です", 3), "日本語\n...(truncated)")
}

func TestWithAgent(t *testing.T) {
	srv := newServer(t)

	registry, err := reagent.NewRegistry(webfetch.New())
	gt.NoError(t, err).Required()

	texts := []string{
		"Action: fetch_page\nAction Input: " + srv.URL + "/dogs",
		"Final Answer: DOG has three letters",
	}
	var idx int
	completer := reagent.CompleterFunc(func(ctx context.Context, req *reagent.CompletionRequest) (*reagent.CompletionResponse, error) {
		text := texts[idx]
		idx++
		return &reagent.CompletionResponse{Text: text}, nil
	})

	result, err := reagent.New(completer, registry, reagent.WithLogger(testlog.Logger())).Run(t.Context(), "How many letters does DOG have?")
	gt.NoError(t, err).Required()
	gt.S(t, result.Scratchpad[0].Observation).Contains("About dogs")
}
