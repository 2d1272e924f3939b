package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"

	"pricescout/internal/config"
	"pricescout/internal/types"
)

// HTTPFetcher implements Fetcher using net/http. The transport (and its
// connection pool) is shared across calls and safe for concurrent use;
// the cookie jar is created per call so session state never leaks between
// extraction requests.
type HTTPFetcher struct {
	transport  *http.Transport
	cfg        *config.FetcherConfig
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.FetcherConfig, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		// HTTP_PROXY/HTTPS_PROXY are honored transparently; the fetcher
		// does not manage proxies itself.
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	return &HTTPFetcher{
		transport:  transport,
		cfg:        cfg,
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.UserAgents,
	}
}

// Fetch retrieves url and parses the body into a document. The context
// deadline (or the configured timeout when the context has none) bounds
// only the fetch phase.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	client, err := f.newClient()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.FailOther, Err: err}
	}
	defer client.CloseIdleConnections()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.FailOther, Err: err}
	}
	f.setBrowserHeaders(httpReq)

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: classifyNetError(err), Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		// Drain a little for connection reuse before reporting.
		io.Copy(io.Discard, io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        rawURL,
			Kind:       types.FailHTTP,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", httpResp.StatusCode),
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.FailOther, Err: err}
	}

	// goquery's parse is lenient: malformed markup yields a best-effort
	// tree rather than an error. A body that cannot be parsed at all is
	// an "other" failure.
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: classifyNetError(err), Err: err}
	}

	page := &types.Page{
		URL:           rawURL,
		FinalURL:      httpResp.Request.URL.String(),
		StatusCode:    httpResp.StatusCode,
		Doc:           doc,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"status", page.StatusCode,
		"duration", duration,
	)

	return page, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}

// newClient builds a request-scoped client with a fresh cookie jar, so
// pages that set a session cookie on a redirect still resolve.
func (f *HTTPFetcher) newClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !f.cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= f.cfg.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", f.cfg.MaxRedirects)
		}
		return nil
	}

	return &http.Client{
		Transport:     f.transport,
		Jar:           jar,
		CheckRedirect: redirectPolicy,
	}, nil
}

// setBrowserHeaders attaches a realistic browser header set to reduce
// trivial bot-blocking.
func (f *HTTPFetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "pricescout/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// classifyNetError maps a transport-level error onto a failure category.
func classifyNetError(err error) types.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.FailTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.FailTimeout
	}
	return types.FailOther
}
