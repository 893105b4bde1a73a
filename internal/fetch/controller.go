package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/metrics"
)

const (
	// DefaultMaxAttempts is the number of primary-strategy attempts
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the flat pause between primary attempts
	DefaultRetryDelay = 3 * time.Second
)

// Target is one page to fetch. WaitFor is a CSS selector that marks the
// content as rendered; strategies that cannot wait ignore it.
type Target struct {
	URL     string
	WaitFor string
}

// Strategy fetches the raw markup of a target.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target Target) (string, error)
}

// Document is parsed markup plus where it came from.
type Document struct {
	*goquery.Document
	URL      string
	Strategy string
}

// Options configures a Controller
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *logging.Logger
}

// Controller runs the primary strategy with flat-backoff retries and falls
// back to the secondary strategy once they are exhausted.
type Controller struct {
	primary     Strategy
	fallback    Strategy
	maxAttempts int
	retryDelay  time.Duration
	logger      *logging.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a controller. primary may be nil, in which case
// every fetch goes straight to the fallback.
func NewController(primary, fallback Strategy, opts Options) *Controller {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Controller{
		primary:     primary,
		fallback:    fallback,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		logger:      opts.Logger.With("component", "fetch"),
		sleep:       Sleep,
	}
}

// Fetch returns the parsed document or a *Failure. It never panics past
// this boundary and never returns any other error type.
func (c *Controller) Fetch(ctx context.Context, target Target) (*Document, error) {
	failure := &Failure{URL: target.URL}

	if c.primary != nil {
		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			failure.Attempts++
			doc, err := c.try(ctx, c.primary, target)
			if err == nil {
				return doc, nil
			}
			failure.Primary = err
			c.logger.WarnContext(ctx, "fetch attempt failed",
				"strategy", c.primary.Name(), "url", target.URL,
				"attempt", attempt, "max_attempts", c.maxAttempts, "err", err)

			if ctx.Err() != nil {
				metrics.FetchFailed()
				return nil, failure
			}
			if attempt < c.maxAttempts {
				if err := c.sleep(ctx, c.retryDelay); err != nil {
					metrics.FetchFailed()
					return nil, failure
				}
			}
		}
		c.logger.WarnContext(ctx, "primary strategy exhausted, falling back",
			"url", target.URL, "fallback", c.fallback.Name())
	}

	return c.fallbackOnce(ctx, target, failure)
}

// FetchPlain skips the primary strategy and performs a single fallback
// request. Used for pages that render server side.
func (c *Controller) FetchPlain(ctx context.Context, target Target) (*Document, error) {
	return c.fallbackOnce(ctx, target, &Failure{URL: target.URL})
}

func (c *Controller) fallbackOnce(ctx context.Context, target Target, failure *Failure) (*Document, error) {
	failure.Attempts++
	doc, err := c.try(ctx, c.fallback, target)
	if err == nil {
		return doc, nil
	}
	failure.Fallback = err
	metrics.FetchFailed()
	c.logger.ErrorContext(ctx, "fetch failed on every strategy",
		"url", target.URL, "attempts", failure.Attempts, "err", err)
	return nil, failure
}

// try runs one strategy attempt. A panicking strategy is converted into an
// error so that browser crashes stay inside the controller.
func (c *Controller) try(ctx context.Context, s Strategy, target Target) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = crerr.Newf("strategy %s panicked: %v", s.Name(), r)
		}
		metrics.FetchAttempt(s.Name(), err == nil)
	}()

	html, err := s.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(html) == "" {
		return nil, crerr.Mark(crerr.Newf("%s returned empty markup", s.Name()), ErrTransient)
	}

	parsed, err := ParseHTML(html)
	if err != nil {
		return nil, err
	}
	return &Document{Document: parsed, URL: target.URL, Strategy: s.Name()}, nil
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, crerr.Wrap(err, "parse html")
	}
	return doc, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
