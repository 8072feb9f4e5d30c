package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"pansave/internal"
)

// browserSelectors describes the page controls of one provider's share
// page. XPath selectors match buttons by their visible label since the
// providers do not ship stable ids for them.
type browserSelectors struct {
	passcodeInput  string
	passcodeSubmit string
	selectAll      string
	saveButton     string
	confirmButton  string
}

var platformSelectors = map[internal.Platform]browserSelectors{
	internal.PlatformQuark: {
		passcodeInput:  `input[placeholder*="提取码"]`,
		passcodeSubmit: `//button[contains(., "确定")]`,
		selectAll:      `[class*="select-all"]`,
		saveButton:     `//button[contains(., "保存")]`,
		confirmButton:  `//button[contains(., "确定")]`,
	},
	internal.PlatformBaidu: {
		passcodeInput:  `input#accessCode`,
		passcodeSubmit: `//a[contains(., "提取文件")]`,
		selectAll:      `[class*="select-all"]`,
		saveButton:     `//a[contains(., "保存到网盘")] | //button[contains(., "保存到网盘")]`,
		confirmButton:  `//a[contains(., "确定")] | //button[contains(., "确定")]`,
	},
}

// shareURLTemplates rebuilds a canonical share page URL from the share
// identifier
var shareURLTemplates = map[internal.Platform]string{
	internal.PlatformQuark: "https://pan.quark.cn/s/%s",
	internal.PlatformBaidu: "https://pan.baidu.com/s/%s",
}

// BrowserAdapterConfig tunes the automation behavior
type BrowserAdapterConfig struct {
	Headless    bool
	StepTimeout time.Duration
	SettleWait  time.Duration
}

// DefaultBrowserAdapterConfig returns conservative defaults for shared
// hosting environments
func DefaultBrowserAdapterConfig() BrowserAdapterConfig {
	return BrowserAdapterConfig{
		Headless:    true,
		StepTimeout: 15 * time.Second,
		SettleWait:  2 * time.Second,
	}
}

// BrowserAdapter drives a real browser through a provider's share page
// for platforms without a usable token protocol. It holds one open tab
// per item; items are processed sequentially so there is no tab pooling.
type BrowserAdapter struct {
	platform  internal.Platform
	session   *Session
	selectors browserSelectors
	template  string
	config    BrowserAdapterConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewBrowserAdapter creates a UI-automation adapter for the platform.
// Returns an error for platforms without a selector table.
func NewBrowserAdapter(platform internal.Platform, session *Session, config BrowserAdapterConfig) (*BrowserAdapter, error) {
	selectors, ok := platformSelectors[platform]
	if !ok {
		return nil, fmt.Errorf("no page automation support for platform %s", platform)
	}
	template, ok := shareURLTemplates[platform]
	if !ok {
		return nil, fmt.Errorf("no share URL template for platform %s", platform)
	}

	return &BrowserAdapter{
		platform:  platform,
		session:   session,
		selectors: selectors,
		template:  template,
		config:    config,
	}, nil
}

// Platform returns the platform tag this adapter serves
func (b *BrowserAdapter) Platform() internal.Platform {
	return b.platform
}

// ResolveShare verifies the account session, opens a fresh tab on the
// share page and completes the passcode gate when the page presents one
func (b *BrowserAdapter) ResolveShare(ctx context.Context, pwdID, passcode string) (*internal.ShareSession, error) {
	if b.session.Expired() {
		return nil, internal.NewAuthError(fmt.Sprintf("account session expired at %v", b.session.ExpiresAt))
	}

	if err := b.ensureBrowser(ctx); err != nil {
		return nil, err
	}
	b.openTab()

	shareURL := fmt.Sprintf(b.template, pwdID)
	if err := b.runStep("open share page", chromedp.Navigate(shareURL)); err != nil {
		return nil, err
	}
	if err := b.runStep("settle", chromedp.Sleep(b.config.SettleWait)); err != nil {
		return nil, err
	}

	gated, err := b.elementVisible(b.selectors.passcodeInput)
	if err != nil {
		return nil, err
	}
	if gated {
		if passcode == "" {
			return nil, internal.NewAuthError(fmt.Sprintf("share %s requires a passcode but none was extracted", pwdID))
		}
		if err := b.runStep("submit passcode",
			chromedp.SendKeys(b.selectors.passcodeInput, passcode, chromedp.ByQuery),
			chromedp.Click(b.selectors.passcodeSubmit, chromedp.BySearch),
			chromedp.Sleep(b.config.SettleWait),
		); err != nil {
			return nil, err
		}
		// A still-visible passcode input means the provider rejected it
		stillGated, err := b.elementVisible(b.selectors.passcodeInput)
		if err != nil {
			return nil, err
		}
		if stillGated {
			return nil, internal.NewAuthError(fmt.Sprintf("share %s rejected passcode", pwdID))
		}
	}

	return &internal.ShareSession{PwdID: pwdID, Passcode: passcode}, nil
}

// ListContents reads the share title from the opened page. The UI flow
// saves the share wholesale, so no per-file descriptors are enumerated.
func (b *BrowserAdapter) ListContents(ctx context.Context, session *internal.ShareSession) (*internal.ShareListing, error) {
	if b.tabCtx == nil {
		return nil, fmt.Errorf("no open share page for %s", session.PwdID)
	}

	var title string
	if err := b.runStep("read share title", chromedp.Title(&title)); err != nil {
		return nil, err
	}

	return &internal.ShareListing{Title: strings.TrimSpace(title)}, nil
}

// CopyToAccount clicks through select-all, save and confirm on the open
// share page. destDirID is ignored; the UI flow saves into the account's
// default transfer directory.
func (b *BrowserAdapter) CopyToAccount(ctx context.Context, session *internal.ShareSession, files []internal.FileDescriptor, destDirID string) error {
	if b.tabCtx == nil {
		return fmt.Errorf("no open share page for %s", session.PwdID)
	}
	defer b.closeTab()

	if b.selectors.selectAll != "" {
		// Some layouts preselect everything and omit the control
		if visible, err := b.elementVisible(b.selectors.selectAll); err == nil && visible {
			if err := b.runStep("select all entries", chromedp.Click(b.selectors.selectAll, chromedp.BySearch)); err != nil {
				return err
			}
		}
	}

	if err := b.runStep("click save",
		chromedp.Click(b.selectors.saveButton, chromedp.BySearch),
		chromedp.Sleep(b.config.SettleWait),
	); err != nil {
		return err
	}

	if err := b.runStep("confirm save",
		chromedp.Click(b.selectors.confirmButton, chromedp.BySearch),
		chromedp.Sleep(b.config.SettleWait),
	); err != nil {
		return err
	}

	internal.LogDebug("Save sequence completed for share %s", session.PwdID)
	return nil
}

// Close shuts the browser down
func (b *BrowserAdapter) Close() {
	b.closeTab()
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCtx = nil
		b.allocCancel = nil
	}
}

// ensureBrowser lazily starts the browser and injects the account cookies
func (b *BrowserAdapter) ensureBrowser(ctx context.Context) error {
	if b.allocCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1280, 900),
	)
	if b.session.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.session.UserAgent))
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)

	// Inject cookies once in a bootstrap tab; they persist for the
	// browser's lifetime
	bootCtx, bootCancel := chromedp.NewContext(b.allocCtx)
	defer bootCancel()

	stepCtx, cancel := context.WithTimeout(bootCtx, b.config.StepTimeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, b.setCookiesAction()); err != nil {
		b.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return internal.NewAutomationTimeoutError("browser startup")
		}
		return fmt.Errorf("failed to start browser: %w", err)
	}
	return nil
}

// setCookiesAction installs the session cookies into the browser
func (b *BrowserAdapter) setCookiesAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, cookie := range b.session.Cookies {
			param := network.SetCookie(cookie.Name, cookie.Value).
				WithDomain(cookie.Domain).
				WithPath(cookie.Path).
				WithSecure(cookie.Secure).
				WithHTTPOnly(cookie.HttpOnly)
			if !cookie.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(cookie.Expires)
				param = param.WithExpires(&expires)
			}
			if err := param.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
			}
		}
		return nil
	})
}

// openTab replaces the current tab with a fresh one
func (b *BrowserAdapter) openTab() {
	b.closeTab()
	b.tabCtx, b.tabCancel = chromedp.NewContext(b.allocCtx)
}

func (b *BrowserAdapter) closeTab() {
	if b.tabCancel != nil {
		b.tabCancel()
		b.tabCtx = nil
		b.tabCancel = nil
	}
}

// runStep executes actions against the open tab under the per-step wait
// bound; a deadline hit surfaces as an automation timeout naming the step
func (b *BrowserAdapter) runStep(step string, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(b.tabCtx, b.config.StepTimeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return internal.NewAutomationTimeoutError(step)
		}
		return fmt.Errorf("automation step %q failed: %w", step, err)
	}
	return nil
}

// elementVisible reports whether a selector currently matches a visible
// element, without waiting for it to appear
func (b *BrowserAdapter) elementVisible(selector string) (bool, error) {
	stepCtx, cancel := context.WithTimeout(b.tabCtx, b.config.StepTimeout)
	defer cancel()

	var visible bool
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	})()`, selector)

	if err := chromedp.Run(stepCtx, chromedp.Evaluate(script, &visible)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, internal.NewAutomationTimeoutError("probe " + selector)
		}
		return false, fmt.Errorf("visibility probe failed: %w", err)
	}
	return visible, nil
}
