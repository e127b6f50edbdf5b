package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"bridle/internal/config"
	"bridle/internal/protocol"
	"bridle/internal/ref"
)

// Default budget for one command against the browser. The wait action
// substitutes its own timeout_ms.
const defaultActionTimeout = 30 * time.Second

type chromeHandler func(ctx context.Context, cmd *protocol.Command, target *ref.Entry) (map[string]any, error)

// chromeBackend drives a desktop browser over CDP.
type chromeBackend struct {
	cfg         Config
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	handlers    map[string]chromeHandler
	casting     bool
}

func newChrome(parent context.Context, cfg Config) (*chromeBackend, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.AllowFileAccess {
		opts = append(opts, chromedp.Flag("allow-file-access-from-files", true))
	}
	if cfg.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.BrowserPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Force the browser to actually start so creation fails here, not
	// on the first command.
	startCtx, startCancel := context.WithTimeout(browserCtx, defaultActionTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := &chromeBackend{
		cfg:         cfg,
		logger:      cfg.Logger,
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
	b.handlers = map[string]chromeHandler{
		protocol.ActionNavigate:   b.navigate,
		protocol.ActionBack:       b.back,
		protocol.ActionForward:    b.forward,
		protocol.ActionReload:     b.reload,
		protocol.ActionClick:      b.click,
		protocol.ActionHover:      b.hover,
		protocol.ActionType:       b.typeText,
		protocol.ActionPress:      b.press,
		protocol.ActionScroll:     b.scroll,
		protocol.ActionWait:       b.wait,
		protocol.ActionGet:        b.get,
		protocol.ActionScreenshot: b.screenshot,
	}
	return b, nil
}

func (b *chromeBackend) Name() string { return config.ProviderChrome }

func (b *chromeBackend) Supports(action string) bool {
	_, ok := b.handlers[action]
	return ok
}

func (b *chromeBackend) Dispatch(ctx context.Context, cmd *protocol.Command, target *ref.Entry) (map[string]any, error) {
	handler, ok := b.handlers[cmd.Action]
	if !ok {
		return nil, Unsupported(b.Name(), cmd.Action)
	}
	data, err := handler(ctx, cmd, target)
	if err != nil {
		return nil, b.normalize(err)
	}
	return data, nil
}

func (b *chromeBackend) Close(ctx context.Context) error {
	b.cancel()
	b.allocCancel()
	return nil
}

// run executes CDP actions against the browser tab under the default
// command budget.
func (b *chromeBackend) run(timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	ctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// normalize maps raw chromedp/CDP failures onto the protocol error
// taxonomy.
func (b *chromeBackend) normalize(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"):
		return Errorf(protocol.KindTimeout, "browser did not respond in time: %v", err)
	case strings.Contains(msg, "could not find node"),
		strings.Contains(msg, "No node with given id"),
		strings.Contains(msg, "no node found"):
		return Errorf(protocol.KindNotFound, "element is gone from the page: %v", err)
	default:
		return Errorf(protocol.KindBackend, "%v", err)
	}
}

func (b *chromeBackend) navigate(_ context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	u, err := url.Parse(cmd.URL)
	if err != nil {
		return nil, Errorf(protocol.KindBackend, "invalid url %q: %v", cmd.URL, err)
	}
	switch u.Scheme {
	case "http", "https", "about", "data":
	case "file":
		if !b.cfg.AllowFileAccess {
			return nil, Errorf(protocol.KindBackend, "file:// navigation is disabled; set BRIDLE_ALLOW_FILE_ACCESS")
		}
	default:
		return nil, Errorf(protocol.KindBackend, "unsupported url scheme %q", u.Scheme)
	}

	var loc, title string
	err = b.run(0,
		chromedp.Navigate(cmd.URL),
		chromedp.Location(&loc),
		chromedp.Title(&title),
	)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": loc, "title": title}, nil
}

func (b *chromeBackend) back(context.Context, *protocol.Command, *ref.Entry) (map[string]any, error) {
	return b.afterHistory(chromedp.NavigateBack())
}

func (b *chromeBackend) forward(context.Context, *protocol.Command, *ref.Entry) (map[string]any, error) {
	return b.afterHistory(chromedp.NavigateForward())
}

func (b *chromeBackend) reload(context.Context, *protocol.Command, *ref.Entry) (map[string]any, error) {
	return b.afterHistory(chromedp.Reload())
}

func (b *chromeBackend) afterHistory(action chromedp.Action) (map[string]any, error) {
	var loc string
	if err := b.run(0, action, chromedp.Location(&loc)); err != nil {
		return nil, err
	}
	return map[string]any{"url": loc}, nil
}

// center finds the viewport center of the element a ref resolved to.
func center(ctx context.Context, target *ref.Entry) (x, y float64, err error) {
	box, err := dom.GetBoxModel().WithBackendNodeID(cdpBackendID(target)).Do(ctx)
	if err != nil {
		return 0, 0, err
	}
	content := box.Content
	if len(content) < 8 {
		return 0, 0, fmt.Errorf("element has no box")
	}
	x = (content[0] + content[2] + content[4] + content[6]) / 4
	y = (content[1] + content[3] + content[5] + content[7]) / 4
	return x, y, nil
}

func (b *chromeBackend) click(_ context.Context, _ *protocol.Command, target *ref.Entry) (map[string]any, error) {
	err := b.run(0, chromedp.ActionFunc(func(ctx context.Context) error {
		x, y, err := center(ctx, target)
		if err != nil {
			return err
		}
		return chromedp.MouseClickXY(x, y).Do(ctx)
	}))
	if err != nil {
		return nil, err
	}
	return map[string]any{"clicked": target.Ref}, nil
}

func (b *chromeBackend) hover(_ context.Context, _ *protocol.Command, target *ref.Entry) (map[string]any, error) {
	err := b.run(0, chromedp.ActionFunc(func(ctx context.Context) error {
		x, y, err := center(ctx, target)
		if err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return nil, err
	}
	return map[string]any{"hovered": target.Ref}, nil
}

func (b *chromeBackend) typeText(_ context.Context, cmd *protocol.Command, target *ref.Entry) (map[string]any, error) {
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.Focus().WithBackendNodeID(cdpBackendID(target)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.InsertText(cmd.Text).Do(ctx)
		}),
	}
	if cmd.Submit {
		actions = append(actions, chromedp.KeyEvent(kb.Enter))
	}
	if err := b.run(0, actions...); err != nil {
		return nil, err
	}
	return map[string]any{"typed": target.Ref}, nil
}

// keyNames maps human key names onto the codes chromedp expects.
var keyNames = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"Home":       kb.Home,
	"End":        kb.End,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
}

func (b *chromeBackend) press(_ context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	key := cmd.Key
	if mapped, ok := keyNames[key]; ok {
		key = mapped
	}
	if err := b.run(0, chromedp.KeyEvent(key)); err != nil {
		return nil, err
	}
	return map[string]any{"pressed": cmd.Key}, nil
}

func (b *chromeBackend) scroll(_ context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	amount := cmd.Amount
	if amount == 0 {
		amount = 600
	}
	var dx, dy int
	switch cmd.Direction {
	case "up":
		dy = -amount
	case "down":
		dy = amount
	case "left":
		dx = -amount
	case "right":
		dx = amount
	}
	js := fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy)
	if err := b.run(0, chromedp.Evaluate(js, nil)); err != nil {
		return nil, err
	}
	return map[string]any{"scrolled": cmd.Direction}, nil
}

func (b *chromeBackend) wait(_ context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	timeout := time.Duration(cmd.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}

	if cmd.Selector == "" {
		// Pure delay.
		if err := b.run(timeout+time.Second, chromedp.Sleep(timeout)); err != nil {
			return nil, err
		}
		return map[string]any{"waited_ms": cmd.TimeoutMS}, nil
	}

	if err := b.run(timeout, chromedp.WaitVisible(cmd.Selector, chromedp.ByQuery)); err != nil {
		return nil, Errorf(protocol.KindTimeout, "selector %q did not become visible: %v", cmd.Selector, err)
	}
	return map[string]any{"selector": cmd.Selector}, nil
}

func (b *chromeBackend) get(_ context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	var value string
	var action chromedp.Action
	switch cmd.What {
	case "url":
		action = chromedp.Location(&value)
	case "title":
		action = chromedp.Title(&value)
	case "text":
		action = chromedp.Evaluate("document.body ? document.body.innerText : ''", &value)
	}
	if err := b.run(0, action); err != nil {
		return nil, err
	}
	return map[string]any{cmd.What: value}, nil
}

func (b *chromeBackend) screenshot(_ context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	var buf []byte
	if err := b.run(0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}

	path := cmd.Path
	if path == "" {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("bridle-%d.png", time.Now().UnixMilli()))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return nil, Errorf(protocol.KindBackend, "write screenshot: %v", err)
	}
	return map[string]any{"path": path, "bytes": len(buf)}, nil
}

// StartFrames begins a screencast, publishing each frame.
func (b *chromeBackend) StartFrames(_ context.Context, publish func([]byte)) error {
	if b.casting {
		return nil
	}
	chromedp.ListenTarget(b.ctx, func(ev any) {
		frame, ok := ev.(*page.EventScreencastFrame)
		if !ok {
			return
		}
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			b.logger.Debug("screencast frame decode failed", "error", err)
			return
		}
		publish(data)
		go func() {
			ackCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
			defer cancel()
			if err := chromedp.Run(ackCtx, chromedp.ActionFunc(func(ctx context.Context) error {
				return page.ScreencastFrameAck(frame.SessionID).Do(ctx)
			})); err != nil {
				b.logger.Debug("screencast ack failed", "error", err)
			}
		}()
	})

	err := b.run(0, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.StartScreencast().
			WithFormat(page.ScreencastFormatJpeg).
			WithQuality(70).
			Do(ctx)
	}))
	if err != nil {
		return err
	}
	b.casting = true
	return nil
}

// StopFrames ends the screencast.
func (b *chromeBackend) StopFrames(context.Context) error {
	if !b.casting {
		return nil
	}
	b.casting = false
	return b.run(5*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.StopScreencast().Do(ctx)
	}))
}
