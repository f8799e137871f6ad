package enrich

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/lead-harvest/internal/resilience"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; LeadHarvest/1.0)"
	defaultMaxBody   = 2 << 20
)

// Page is a fetched website: its final URL, the decoded HTML, and the
// absolute targets of every anchor.
type Page struct {
	URL     string
	Content string
	Links   []string
}

// Fetcher is the website collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages over plain HTTP and parses them with goquery.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodyBytes bounds how much of each response is read.
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = hc
	}
}

// NewHTTPFetcher creates an HTTPFetcher. The enricher bounds each fetch with
// its own timeout; the client timeout is a backstop.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBody,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs target and returns its content and links.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: get")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		err := eris.Errorf("fetch: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}
	body, err = decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse html")
	}

	base := resp.Request.URL
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if abs := resolveLink(base, href); abs != "" {
			links = append(links, abs)
		}
	})

	return &Page{URL: base.String(), Content: string(body), Links: links}, nil
}

// decodeBody converts a non-UTF-8 body named in the Content-Type charset.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	cs := strings.ToLower(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return body, nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: unsupported charset %q", cs)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: decode %s", cs)
	}
	return out, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
