package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/validation"
)

// Fetch defaults.
const (
	DefaultFetchTimeout = 15 * time.Second
	DefaultMaxFetchSize = 2 << 20
	userAgent           = "Mozilla/5.0 (compatible; JobTracker/1.0)"
)

// ErrResponseTooLarge is returned when a page exceeds the fetch size limit.
var ErrResponseTooLarge = errors.New("response too large")

// FetchError describes a failed job-description fetch.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Fetcher downloads job postings and reduces them to text.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	// validateURL rejects URLs the server must not request.
	validateURL func(string) (bool, string)
	// dialControl vets each address the transport connects to.
	dialControl func(network, address string, c syscall.RawConn) error
}

// NewFetcher creates a fetcher with the given timeout and body size limit.
// Zero values select the defaults.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchSize
	}

	f := &Fetcher{
		maxBytes:    maxBytes,
		validateURL: validation.ValidateURLForFetch,
		dialControl: validation.DialControl,
	}

	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, c syscall.RawConn) error {
			if f.dialControl == nil {
				return nil
			}
			return f.dialControl(network, address, c)
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// A proxy would be the dialed address, hiding the real target.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	f.client = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			if ok, msg := f.validateURL(req.URL.String()); !ok {
				return errors.New(msg)
			}
			return nil
		},
	}
	return f
}

// FetchJobDescription downloads rawURL and returns its readable text. HTML
// pages are stripped of scripts, styles and navigation.
func (f *Fetcher) FetchJobDescription(ctx context.Context, rawURL string) (string, error) {
	if ok, msg := f.validateURL(rawURL); !ok {
		return "", &FetchError{URL: rawURL, Message: msg}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "invalid request", Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "failed to read body", Cause: err}
	}
	if int64(len(body)) > f.maxBytes {
		return "", &FetchError{URL: rawURL, Message: "page exceeds size limit", Cause: ErrResponseTooLarge}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		return CleanText(string(body)), nil
	}
	return HTMLToText(string(body)), nil
}

// HTMLToText extracts readable text blocks from an HTML document.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanText(html)
	}

	doc.Find("script, style, nav, header, footer, iframe, noscript, svg, form").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, td, dt, dd").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n")
	}

	return CleanText(doc.Find("body").Text())
}
