package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	crerr "github.com/cockroachdb/errors"
)

const (
	// DefaultHTTPTimeout bounds a plain GET
	DefaultHTTPTimeout = 15 * time.Second

	maxBodyBytes = 8 << 20
)

// HTTP fetches pages with a plain GET and a browser user agent. It is the
// fallback strategy and the only one used for server-rendered pages.
type HTTP struct {
	client    *http.Client
	userAgent string
}

// NewHTTP creates a plain HTTP strategy
func NewHTTP(timeout time.Duration, userAgent string) *HTTP {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if userAgent == "" {
		userAgent = UserAgent
	}
	return &HTTP{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Fetch(ctx context.Context, target Target) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return "", crerr.Wrapf(err, "build request for %s", target.URL)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", transient(err, "get %s", target.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", crerr.Mark(fmt.Errorf("get %s: unexpected status %d", target.URL, resp.StatusCode), ErrTransient)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", transient(err, "read %s", target.URL)
	}

	return string(body), nil
}
