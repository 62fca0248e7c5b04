// Package browser implements the portal's browser collaborator on top of a
// single chromedp controlled tab.
package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"filingscraper/internal/scrapers/portal"
	"filingscraper/lib/telemetry"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	// requests must have settled for this long before the page counts as idle
	idleQuiet     = 500 * time.Millisecond
	idlePoll      = 100 * time.Millisecond
	maxFrameDepth = 4
)

var ErrNetworkBusy = errors.New("network did not become idle")

type Options struct {
	Headless  bool
	UserAgent string
	// ExecPath overrides the chrome binary, empty means chromedp's lookup.
	ExecPath string
}

// Session is a single browser tab, it implements portal.Browser.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	tel         telemetry.API

	mutex        sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

var _ portal.Browser = (*Session)(nil)

// New starts a browser and opens its first tab.
func New(ctx context.Context, opts Options, tel telemetry.API) (*Session, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// operations are bound to their caller's context in run, the browser
	// itself lives until Close
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:          browserCtx,
		cancel:       cancel,
		cancelAlloc:  cancelAlloc,
		tel:          tel,
		inflight:     map[network.RequestID]struct{}{},
		lastActivity: time.Now(),
	}
	chromedp.ListenTarget(browserCtx, s.onEvent)

	// the first action allocates the browser, it must run on the tab's own
	// context or the browser would die with the caller's
	err := chromedp.Run(browserCtx, network.Enable())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

func (s *Session) Close() error {
	s.cancel()
	s.cancelAlloc()
	return nil
}

func (s *Session) onEvent(ev any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		s.inflight[ev.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(s.inflight, ev.RequestID)
	case *network.EventLoadingFailed:
		delete(s.inflight, ev.RequestID)
	default:
		return
	}
	s.lastActivity = time.Now()
}

// run executes actions in the tab, bounded by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.tel.ReportDebug("navigate", url)
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Fill(ctx context.Context, selector, text string) error {
	return s.run(
		ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *Session) nodes(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts = append(opts, chromedp.ByQueryAll, chromedp.AtLeast(0))
	err := s.run(ctx, chromedp.Nodes(selector, &nodes, opts...))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	nodes, err := s.nodes(ctx, selector)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (s *Session) Text(ctx context.Context, selector string, timeout time.Duration) (*string, error) {
	textCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var text string
	err := s.run(textCtx, chromedp.Text(selector, &text, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &text, nil
}

func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) collectFrames(ctx context.Context, parent *cdp.Node, depth int, out *[]portal.Frame) error {
	if depth > maxFrameDepth {
		return nil
	}
	var opts []chromedp.QueryOption
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}
	iframes, err := s.nodes(ctx, "iframe", opts...)
	if err != nil {
		return err
	}
	for _, node := range iframes {
		*out = append(*out, frame{session: s, node: node})
		err = s.collectFrames(ctx, node, depth+1, out)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Frames(ctx context.Context) ([]portal.Frame, error) {
	var frames []portal.Frame
	err := s.collectFrames(ctx, nil, 0, &frames)
	if err != nil {
		return nil, err
	}
	return frames, nil
}

func (s *Session) PressKey(ctx context.Context, key string) error {
	if key == portal.KeyEscape {
		key = kb.Escape
	}
	return s.run(ctx, chromedp.KeyEvent(key))
}

const fetchScript = `(async () => {
	const res = await fetch(%s, { credentials: "include" });
	if (!res.ok) {
		throw new Error("unexpected status " + res.status);
	}
	const bytes = new Uint8Array(await res.arrayBuffer());
	let binary = "";
	for (let i = 0; i < bytes.length; i += 0x8000) {
		binary += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
	}
	return btoa(binary);
})()`

func (s *Session) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	quoted, err := json.Marshal(url)
	if err != nil {
		return nil, err
	}

	var encoded string
	err = s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(fetchScript, quoted),
		&encoded,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return content, nil
}

func (s *Session) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// idle reports whether nothing is in flight and the network has been quiet
// since both the last request event and the given time.
func (s *Session) idle(since time.Time) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	last := s.lastActivity
	if since.After(last) {
		last = since
	}
	return len(s.inflight) == 0 && time.Since(last) >= idleQuiet
}

// WaitNetworkIdle waits for the page's requests to settle. The quiet period
// counts from the call at the earliest, a request started by the action just
// before it is not announced by the browser yet.
func (s *Session) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	start := time.Now()
	deadline := start.Add(timeout)
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		if s.idle(start) {
			return nil
		}
		if time.Now().After(deadline) {
			s.mutex.Lock()
			n := len(s.inflight)
			s.mutex.Unlock()
			return fmt.Errorf("%w after %s, %d requests in flight", ErrNetworkBusy, timeout, n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type frame struct {
	session *Session
	node    *cdp.Node
}

func (f frame) Count(ctx context.Context, selector string) (int, error) {
	nodes, err := f.session.nodes(ctx, selector, chromedp.FromNode(f.node))
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (f frame) Attribute(ctx context.Context, selector, name string) (*string, error) {
	nodes, err := f.session.nodes(ctx, selector, chromedp.FromNode(f.node))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	value, ok := nodes[0].Attribute(name)
	if !ok {
		return nil, nil
	}
	return &value, nil
}
