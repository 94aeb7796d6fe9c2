// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/models"
)

// ChromeConfig shapes the headless Chrome fleet.
type ChromeConfig struct {
	Browsers          int
	Headless          bool
	NavigationTimeout time.Duration
}

// ChromeDriver runs one Chrome process per pooled browser instance.
// Each Open spawns an isolated tab context on the target process, so
// concurrent verifications never share page state.
type ChromeDriver struct {
	allocs  []context.Context
	cancels []context.CancelFunc
	navTo   time.Duration
}

// NewChromeDriver launches cfg.Browsers Chrome allocators. The processes
// themselves start lazily on first tab.
func NewChromeDriver(cfg ChromeConfig) (*ChromeDriver, error) {
	if cfg.Browsers < 1 {
		return nil, fmt.Errorf("need at least one browser, got %d", cfg.Browsers)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)

	d := &ChromeDriver{navTo: cfg.NavigationTimeout}
	for i := 0; i < cfg.Browsers; i++ {
		alloc, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
		d.allocs = append(d.allocs, alloc)
		d.cancels = append(d.cancels, cancel)
	}

	chromeLogger := logging.WithComponent("browser")
	chromeLogger.Info().
		Int("browsers", cfg.Browsers).
		Bool("headless", cfg.Headless).
		Msg("Chrome driver initialized")
	return d, nil
}

// Open implements Driver.
func (d *ChromeDriver) Open(ctx context.Context, idx int, url string) (Session, error) {
	if idx < 0 || idx >= len(d.allocs) {
		return nil, fmt.Errorf("browser index %d out of range", idx)
	}

	tabCtx, cancel := chromedp.NewContext(d.allocs[idx])

	navCtx, navCancel := context.WithTimeout(tabCtx, d.navTo)
	defer navCancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		cancel()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	// Caller ctx cancellation tears the tab down too.
	stop := context.AfterFunc(ctx, cancel)

	return &chromeSession{tab: tabCtx, cancel: func() { stop(); cancel() }}, nil
}

// Close implements Driver.
func (d *ChromeDriver) Close() error {
	for _, cancel := range d.cancels {
		cancel()
	}
	return nil
}

type chromeSession struct {
	tab    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab bounded by the caller's context.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.tab, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// SelectVariant implements Session. It clicks the first enabled option
// whose visible text matches the requested size/color.
func (s *chromeSession) SelectVariant(ctx context.Context, size, color string) (bool, error) {
	if size == "" && color == "" {
		return true, nil
	}

	var selected bool
	js := fmt.Sprintf(variantSelectJS, jsString(size), jsString(color))
	if err := s.run(ctx, chromedp.Evaluate(js, &selected)); err != nil {
		return false, fmt.Errorf("select variant: %w", err)
	}
	return selected, nil
}

// HasPurchaseAffordance implements Session.
func (s *chromeSession) HasPurchaseAffordance(ctx context.Context) (bool, error) {
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(purchaseAffordanceJS, &found)); err != nil {
		return false, fmt.Errorf("purchase affordance: %w", err)
	}
	return found, nil
}

// IsOutOfStock implements Session.
func (s *chromeSession) IsOutOfStock(ctx context.Context) (bool, error) {
	var out bool
	if err := s.run(ctx, chromedp.Evaluate(outOfStockJS, &out)); err != nil {
		return false, fmt.Errorf("stock check: %w", err)
	}
	return out, nil
}

// ReadPrice implements Session.
func (s *chromeSession) ReadPrice(ctx context.Context) (float64, bool, error) {
	var raw string
	if err := s.run(ctx, chromedp.Evaluate(priceExtractJS, &raw)); err != nil {
		return 0, false, fmt.Errorf("read price: %w", err)
	}
	price, ok := models.ParsePrice(raw)
	return price, ok, nil
}

// Close implements Session.
func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

// jsString escapes a value for embedding in a JS string literal.
func jsString(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return v
}

const variantSelectJS = `(() => {
  const size = '%s'.toLowerCase();
  const color = '%s'.toLowerCase();
  const matches = (el, want) => want && el.textContent.trim().toLowerCase() === want;

  let ok = !size && !color;
  for (const sel of document.querySelectorAll('select')) {
    for (const opt of sel.options) {
      if ((matches(opt, size) || matches(opt, color)) && !opt.disabled) {
        sel.value = opt.value;
        sel.dispatchEvent(new Event('change', {bubbles: true}));
        ok = true;
      }
    }
  }
  const clickable = document.querySelectorAll('button, [role="radio"], [role="option"], label');
  for (const el of clickable) {
    if ((matches(el, size) || matches(el, color)) &&
        !el.disabled && el.getAttribute('aria-disabled') !== 'true') {
      el.click();
      ok = true;
    }
  }
  return ok;
})()`

const purchaseAffordanceJS = `(() => {
  const re = /add to (cart|bag|basket)|buy now|purchase|checkout/i;
  for (const el of document.querySelectorAll('button, input[type="submit"], a[role="button"]')) {
    const text = (el.textContent || el.value || '') + ' ' + (el.getAttribute('aria-label') || '');
    if (re.test(text) && !el.disabled && el.getAttribute('aria-disabled') !== 'true') {
      return true;
    }
  }
  return false;
})()`

const outOfStockJS = `(() => {
  const re = /out of stock|sold out|currently unavailable|no longer available|notify me when/i;
  const body = document.body ? document.body.innerText : '';
  return re.test(body);
})()`

const priceExtractJS = `(() => {
  const meta = document.querySelector(
    'meta[property="product:price:amount"], meta[property="og:price:amount"], meta[itemprop="price"]');
  if (meta && meta.content) return meta.content;
  const itemprop = document.querySelector('[itemprop="price"]');
  if (itemprop) return itemprop.getAttribute('content') || itemprop.textContent;
  for (const script of document.querySelectorAll('script[type="application/ld+json"]')) {
    try {
      const data = JSON.parse(script.textContent);
      const nodes = Array.isArray(data) ? data : [data];
      for (const node of nodes) {
        const offers = node && node.offers;
        if (!offers) continue;
        const offer = Array.isArray(offers) ? offers[0] : offers;
        if (offer && offer.price != null) return String(offer.price);
      }
    } catch (e) {}
  }
  const el = document.querySelector('[class*="price" i], [data-testid*="price" i]');
  return el ? el.textContent.trim() : '';
})()`
