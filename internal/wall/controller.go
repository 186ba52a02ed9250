package wall

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tokwall/internal/tiktok"
)

// DefaultFetchTimeout bounds each oEmbed fetch so a hung request degrades
// into the fallback fragment instead of stalling the pass.
const DefaultFetchTimeout = 10 * time.Second

// renderState is the latch that serializes render passes.
type renderState int

const (
	stateIdle renderState = iota
	stateRendering
	stateRenderingPending
)

// Controller owns one embed wall: the validated video list, the container
// it renders into, the render latch, and the auto-sync timer.
type Controller struct {
	doc     Document
	fetcher Fetcher
	log     *slog.Logger

	fetchTimeout time.Duration
	onUpdate     func()

	mu           sync.Mutex
	state        renderState
	videos       []string
	container    string
	interval     time.Duration
	trailingDone chan struct{} // closes when the coalesced trailing pass finishes
	scriptLoaded bool
	timerStop    chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger routes the controller's diagnostics through l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithFetchTimeout bounds each oEmbed fetch. Values <= 0 keep the default.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithUpdateFunc registers fn to run after every pass that wrote content,
// clearing passes included. Watch mode persists the page from it.
func WithUpdateFunc(fn func()) Option {
	return func(c *Controller) {
		c.onUpdate = fn
	}
}

// New creates a Controller that renders into doc with fragments from
// fetcher.
func New(doc Document, fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		doc:          doc,
		fetcher:      fetcher,
		log:          slog.Default(),
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize installs a wall definition: videos are trimmed, validated and
// de-duplicated, the container reference normalized, and a negative
// interval clamped to zero. It triggers an immediate render pass and then
// re-arms the auto-sync timer. The returned channel closes when the pass
// reflecting this definition has completed. Script bookkeeping survives
// re-initialization: the embed script is still injected at most once per
// document.
func (c *Controller) Initialize(videos []string, containerID string, interval time.Duration) <-chan struct{} {
	list := tiktok.NormalizeVideoURLs(videos)
	if dropped := len(videos) - len(list); dropped > 0 {
		c.log.Debug("wall: dropped invalid or duplicate video URLs", "dropped", dropped, "kept", len(list))
	}

	id, ok := NormalizeID(containerID)
	if !ok {
		c.log.Debug("wall: container reference is empty after normalization, passes will be no-ops")
	}
	if interval < 0 {
		interval = 0
	}

	c.mu.Lock()
	c.videos = list
	c.container = id
	c.interval = interval
	c.mu.Unlock()

	done := c.requestRender()
	c.startTimer()
	return done
}

// Refresh triggers a render pass on demand. The returned channel closes
// once the pass reflecting this request has completed; requests made while
// a pass is running share the single trailing pass and its channel.
func (c *Controller) Refresh() <-chan struct{} {
	return c.requestRender()
}

// Stop disarms the auto-sync timer. Rendered content stays in place and an
// in-flight pass is left to finish on its own.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

// requestRender is the only entry to the render latch. It never blocks:
// either a pass starts now, or the request coalesces into the one trailing
// pass that runs after the current one finishes.
func (c *Controller) requestRender() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateRendering:
		c.state = stateRenderingPending
		c.trailingDone = make(chan struct{})
		return c.trailingDone
	case stateRenderingPending:
		return c.trailingDone
	default:
		c.state = stateRendering
		done := make(chan struct{})
		go c.runPass(done)
		return done
	}
}

// runPass executes one render pass and resolves the latch afterwards: back
// to idle, or straight into the coalesced trailing pass.
func (c *Controller) runPass(done chan struct{}) {
	c.renderOnce()

	c.mu.Lock()
	if c.state == stateRenderingPending {
		next := c.trailingDone
		c.trailingDone = nil
		c.state = stateRendering
		go c.runPass(next)
	} else {
		c.state = stateIdle
	}
	c.mu.Unlock()

	close(done)
}

// renderOnce performs the body of a pass against a snapshot of the current
// definition. A snapshot taken just before Initialize swapped the list
// renders stale content that the trailing pass then overwrites.
func (c *Controller) renderOnce() {
	c.mu.Lock()
	videos := c.videos
	container := c.container
	c.mu.Unlock()

	pass := uuid.NewString()

	if container == "" || !c.doc.HasElement(container) {
		c.log.Debug("wall: container not found, skipping pass", "pass", pass, "container", container)
		return
	}

	if len(videos) == 0 {
		c.log.Debug("wall: empty video list, clearing container", "pass", pass, "container", container)
		c.doc.SetElementHTML(container, "")
		c.ensureEmbedScript()
		c.notifyUpdate()
		return
	}

	c.log.Debug("wall: render pass started", "pass", pass, "videos", len(videos))

	fragments := make([]string, len(videos))
	var wg sync.WaitGroup
	for i, videoURL := range videos {
		i, videoURL := i, videoURL
		wg.Add(1)
		go func() {
			defer wg.Done()
			fragments[i] = c.fragmentFor(videoURL)
		}()
	}
	wg.Wait()

	if !c.doc.SetElementHTML(container, strings.Join(fragments, "")) {
		c.log.Debug("wall: container disappeared mid-pass", "pass", pass, "container", container)
		return
	}
	c.ensureEmbedScript()
	c.notifyUpdate()

	c.log.Debug("wall: render pass finished", "pass", pass)
}

// fragmentFor fetches one embed fragment, degrading to the fallback so a
// single bad video never aborts its siblings.
func (c *Controller) fragmentFor(videoURL string) string {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	fragment, err := c.fetcher.FetchHTML(ctx, videoURL)
	if err != nil {
		c.log.Error("wall: fetching embed failed", "url", videoURL, "error", err)
		return fallbackFragment(videoURL)
	}
	return fragment
}

// ensureEmbedScript makes the embed script present exactly once: a tag
// already on the page (from an earlier pass or the host page itself) is
// reused, otherwise one is appended and marked loaded only when its load
// callback fires. The embed hook runs on either path.
func (c *Controller) ensureEmbedScript() {
	c.mu.Lock()
	loaded := c.scriptLoaded
	c.mu.Unlock()

	if loaded || c.doc.HasScript(tiktok.EmbedScriptURL) {
		c.mu.Lock()
		c.scriptLoaded = true
		c.mu.Unlock()
		c.doc.InvokeEmbedHook()
		return
	}

	c.doc.AppendScript(tiktok.EmbedScriptURL, func() {
		c.mu.Lock()
		c.scriptLoaded = true
		c.mu.Unlock()
		c.doc.InvokeEmbedHook()
	})
}

func (c *Controller) notifyUpdate() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

// startTimer re-arms the auto-sync timer, always clearing any previous one
// first so re-initialization cannot leak tickers.
func (c *Controller) startTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	if c.interval <= 0 {
		return
	}

	stop := make(chan struct{})
	c.timerStop = stop
	go func(interval time.Duration) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.requestRender()
			}
		}
	}(c.interval)
}

func (c *Controller) stopTimerLocked() {
	if c.timerStop != nil {
		close(c.timerStop)
		c.timerStop = nil
	}
}
