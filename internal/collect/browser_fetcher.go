package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"github.com/traindata-collector/internal/common/config"
	"github.com/traindata-collector/internal/common/logger"
)

// BrowserFetcher drives a headless Chrome through the source's
// interactive download flow: navigate, optionally log in, click the
// download trigger, capture the file.
//
// All selector strings come from configuration; the target site's
// markup changes over time and the lookup expressions change with it.
type BrowserFetcher struct {
	cfg    config.Browser
	creds  Credentials
	logger logger.Logger
}

func NewBrowserFetcher(cfg config.Browser, creds Credentials, logger logger.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    cfg,
		creds:  creds,
		logger: logger,
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL, destDir, fallbackName string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	// Chrome saves the file under its download GUID; the completion
	// event tells us when it is safe to rename.
	done := make(chan string, 1)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if p, ok := ev.(*browser.EventDownloadProgress); ok {
			if p.State == browser.DownloadProgressStateCompleted {
				select {
				case done <- p.GUID:
				default:
				}
			}
		}
	})

	navCtx, cancelNav := context.WithTimeout(taskCtx, f.cfg.NavTimeout)
	defer cancelNav()

	f.logger.Info("Navigating", "url", rawURL)
	err := chromedp.Run(navCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(destDir).
			WithEventsEnabled(true),
		chromedp.Navigate(rawURL),
	)
	if err != nil {
		return "", f.fail(taskCtx, rawURL, destDir, fallbackName,
			fmt.Sprintf("navigation failed: %v", err))
	}

	if f.creds.Set() {
		f.login(taskCtx)
	}

	if !f.clickDownloadTrigger(taskCtx) {
		return "", f.fail(taskCtx, rawURL, destDir, fallbackName,
			"no download trigger matched any configured selector")
	}

	select {
	case guid := <-done:
		destPath := filepath.Join(destDir, fallbackName)
		if err := os.Rename(filepath.Join(destDir, guid), destPath); err != nil {
			return "", fmt.Errorf("moving downloaded file: %w", err)
		}
		f.logger.Info("Download captured", "path", destPath)
		return destPath, nil
	case <-time.After(f.cfg.DownloadTimeout):
		return "", f.fail(taskCtx, rawURL, destDir, fallbackName,
			"download did not complete before deadline")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// login fills the form when its elements are present. A missing login
// form is non-fatal: some exports are public and the page simply has
// no form to fill.
func (f *BrowserFetcher) login(taskCtx context.Context) {
	sel := f.cfg.Selectors

	fill := func(selector, value string) bool {
		ctx, cancel := context.WithTimeout(taskCtx, 5*time.Second)
		defer cancel()
		return chromedp.Run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery)) == nil
	}

	if !fill(sel.UsernameField, f.creds.Username) {
		f.logger.Warn("Username field not found, proceeding without login",
			"selector", sel.UsernameField)
		return
	}
	if f.creds.Password != "" && !fill(sel.PasswordField, f.creds.Password) {
		f.logger.Warn("Password field not found", "selector", sel.PasswordField)
	}

	ctx, cancel := context.WithTimeout(taskCtx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Click(sel.LoginButton, chromedp.ByQuery)); err != nil {
		f.logger.Warn("Login button not found, proceeding without login",
			"selector", sel.LoginButton, "error", err)
	}
}

// clickDownloadTrigger walks the ordered fallback list and reports
// whether any selector produced a click.
func (f *BrowserFetcher) clickDownloadTrigger(taskCtx context.Context) bool {
	for _, selector := range f.cfg.Selectors.DownloadTriggers {
		ctx, cancel := context.WithTimeout(taskCtx, 15*time.Second)
		err := chromedp.Run(ctx,
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.Click(selector, chromedp.ByQuery),
		)
		cancel()
		if err == nil {
			f.logger.Debug("Download trigger clicked", "selector", selector)
			return true
		}
		f.logger.Warn("Download trigger selector failed, trying next",
			"selector", selector, "error", err)
	}
	return false
}

// fail saves diagnostic artifacts for later selector maintenance and
// returns the fatal error for this date.
func (f *BrowserFetcher) fail(taskCtx context.Context, rawURL, destDir, fallbackName, reason string) error {
	prefix := "debug_" + strings.TrimSuffix(strings.TrimPrefix(fallbackName, "data_"), ".csv")

	ctx, cancel := context.WithTimeout(taskCtx, 10*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err == nil {
		htmlPath := filepath.Join(destDir, prefix+".html")
		if err := os.WriteFile(htmlPath, []byte(html), 0644); err == nil {
			f.logger.Info("Saved page snapshot", "path", htmlPath)
		}
	}

	var shot []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&shot, 90)); err == nil {
		pngPath := filepath.Join(destDir, prefix+".png")
		if err := os.WriteFile(pngPath, shot, 0644); err == nil {
			f.logger.Info("Saved screenshot", "path", pngPath)
		}
	}

	return &DownloadInitiationError{URL: rawURL, Reason: reason}
}
