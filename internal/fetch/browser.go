package fetch

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	crerr "github.com/cockroachdb/errors"
)

const (
	// UserAgent presented by both strategies
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// DefaultRenderTimeout bounds the wait for the content marker
	DefaultRenderTimeout = 15 * time.Second

	// DefaultLoadTimeout bounds browser start plus navigation
	DefaultLoadTimeout = 30 * time.Second
)

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// BrowserOptions configures the headless rendering strategy
type BrowserOptions struct {
	UserAgent     string
	RenderTimeout time.Duration
	LoadTimeout   time.Duration
	ExecPath      string
}

// Browser renders pages in headless Chrome. Each Fetch starts its own
// browser process and tears it down before returning, on every path.
type Browser struct {
	opts BrowserOptions
}

// NewBrowser creates a headless rendering strategy
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = DefaultRenderTimeout
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	return &Browser{opts: opts}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(1280, 720),
		chromedp.UserAgent(b.opts.UserAgent),
	)
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	return opts
}

// Fetch navigates to the target, waits for its content marker and returns
// the rendered markup.
func (b *Browser) Fetch(ctx context.Context, target Target) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, b.opts.LoadTimeout+b.opts.RenderTimeout)
	defer cancelTimeout()

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
		chromedp.Navigate(target.URL),
	}
	if target.WaitFor != "" {
		tasks = append(tasks, waitWithin(b.opts.RenderTimeout, chromedp.WaitReady(target.WaitFor, chromedp.ByQuery)))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	var htmlContent string
	tasks = append(tasks, chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return "", transient(err, "render %s", target.URL)
	}
	if htmlContent == "" {
		return "", crerr.Mark(crerr.Newf("render %s: empty document", target.URL), ErrTransient)
	}

	return htmlContent, nil
}

// waitWithin bounds a single action without cancelling the browser context.
func waitWithin(d time.Duration, action chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		if err := action.Do(waitCtx); err != nil {
			return crerr.Wrapf(err, "wait for content marker (%s)", d)
		}
		return nil
	})
}
