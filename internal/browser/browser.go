// Package browser manages a single headless-Chrome instance shared across
// adapters that need rendered HTML (client-side-rendered listing pages and
// infinite-scroll result grids). Concurrency into that instance is bounded
// by a semaphore so no adapter run can starve the others of Chrome tabs.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// blockedResourceTypes mirrors the original scraper's route interceptor:
// images, fonts, media and stylesheets never affect scraped text content
// and cost the most bandwidth/time to fetch headless.
var blockedResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeImage:      true,
	network.ResourceTypeFont:       true,
	network.ResourceTypeMedia:      true,
	network.ResourceTypeStylesheet: true,
}

// Pool owns one browser allocator context and hands out page contexts bound
// by a semaphore, the Go analogue of the original's asyncio.Semaphore.
type Pool struct {
	allocCtx   context.Context
	allocStop  context.CancelFunc
	browserCtx context.Context
	browserStop context.CancelFunc

	sem chan struct{}

	blockResources bool
	timeout        time.Duration

	mu      sync.Mutex
	started bool

	log zerolog.Logger
}

// Config controls pool sizing and browser behavior.
type Config struct {
	MaxConcurrentContexts int
	BlockResources        bool
	Timeout               time.Duration
	Headless              bool
}

// DefaultConfig matches the original manager's defaults: 8 concurrent
// contexts, resource blocking on, 30s page timeout, headless.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentContexts: 8,
		BlockResources:        true,
		Timeout:               30 * time.Second,
		Headless:              true,
	}
}

// New constructs a Pool. The browser process itself is not launched until
// Start is called, so constructing a Pool an adapter run never needs is
// free.
func New(cfg Config, log zerolog.Logger) *Pool {
	if cfg.MaxConcurrentContexts <= 0 {
		cfg.MaxConcurrentContexts = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Pool{
		sem:            make(chan struct{}, cfg.MaxConcurrentContexts),
		blockResources: cfg.BlockResources,
		timeout:        cfg.Timeout,
		log:            log.With().Str("component", "browser").Logger(),
	}
}

// Start launches the browser process. Calling it twice is a no-op.
func (p *Pool) Start(ctx context.Context, headless bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	)

	allocCtx, allocStop := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocStop()
		return fmt.Errorf("start browser: %w", err)
	}

	p.allocCtx, p.allocStop = allocCtx, allocStop
	p.browserCtx, p.browserStop = browserCtx, browserStop
	p.started = true
	p.log.Info().Bool("headless", headless).Msg("browser started")
	return nil
}

// Close shuts down the browser. Safe to call on a never-started Pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	if p.browserStop != nil {
		p.browserStop()
	}
	if p.allocStop != nil {
		p.allocStop()
	}
	p.started = false
	p.log.Info().Msg("browser closed")
}

// FetchPage renders url in a fresh tab and returns the resulting HTML.
// scrollToBottom repeatedly scrolls and waits for the page to stop growing,
// for infinite-scroll result grids; waitForSelector, when non-empty, blocks
// until that CSS selector is present before reading content.
func (p *Pool) FetchPage(ctx context.Context, url string, waitForSelector string, scrollToBottom bool) (string, error) {
	p.mu.Lock()
	started := p.started
	browserCtx := p.browserCtx
	p.mu.Unlock()
	if !started {
		return "", fmt.Errorf("browser pool not started")
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-p.sem }()

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, p.timeout)
	defer timeoutCancel()

	if p.blockResources {
		if err := chromedp.Run(tabCtx, enableResourceBlocking()); err != nil {
			return "", fmt.Errorf("enable resource blocking: %w", err)
		}
	}

	tasks := chromedp.Tasks{chromedp.Navigate(url)}
	if waitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(waitForSelector, chromedp.ByQuery))
	}
	if scrollToBottom {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			return scrollToPageBottom(ctx)
		}))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	p.log.Debug().Str("url", url).Int("bytes", len(html)).Msg("fetched page")
	return html, nil
}

func enableResourceBlocking() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := fetch.Enable().Do(ctx); err != nil {
			return err
		}
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			ev, ok := ev.(*fetch.EventRequestPaused)
			if !ok {
				return
			}
			go func() {
				c := chromedp.FromContext(ctx)
				rc := context.Background()
				if blockedResourceTypes[ev.ResourceType] {
					_ = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(chromedp.WithExecutor(rc, c.Target))
					return
				}
				_ = fetch.ContinueRequest(ev.RequestID).Do(chromedp.WithExecutor(rc, c.Target))
			}()
		})
		return nil
	}
}

// scrollToPageBottom mirrors the original's scroll loop: wheel-scroll in
// 5000px increments, waiting 500ms between attempts, stopping once the
// document height stops growing or after 10 attempts.
func scrollToPageBottom(ctx context.Context) error {
	const maxAttempts = 10
	var previousHeight int64 = -1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var height int64
		if err := chromedp.Evaluate(`document.body.scrollHeight`, &height).Do(ctx); err != nil {
			return err
		}
		if height == previousHeight {
			break
		}
		previousHeight = height

		if err := chromedp.Evaluate(`window.scrollBy(0, 5000)`, nil).Do(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil
}
