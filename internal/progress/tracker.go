// Package progress converts raw engine progress callbacks into rate-limited
// session events.
//
// A Tracker is owned by the goroutine running one batch and is not safe for
// concurrent use.
package progress

import (
	"math"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/engine"
	"github.com/ytget/yt-downloader-web/internal/model"
)

// DefaultInterval is the minimum gap between two downloading events
const DefaultInterval = 200 * time.Millisecond

// speed is not reported before this much of the item has elapsed
const speedWarmup = time.Second

// Emitter delivers an event to one session
type Emitter interface {
	Emit(sessionID string, event model.Event) error
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithYield replaces the hand-off performed after each rate-limited emission
func WithYield(yield func()) Option {
	return func(t *Tracker) { t.yield = yield }
}

// WithInterval widens the rate limit window. Values below DefaultInterval
// are raised to it.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = max(d, DefaultInterval) }
}

// WithLogger sets the logger used for dropped emissions
func WithLogger(l hclog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithNativeIndex lets playlist indices reported by the engine override the
// current index. Only valid when the batch is the unfiltered collection.
func WithNativeIndex() Option {
	return func(t *Tracker) { t.trustNative = true }
}

// Tracker holds the per-session progress state of one batch
type Tracker struct {
	sessionID string
	total     int
	emitter   Emitter

	now         func() time.Time
	yield       func()
	interval    time.Duration
	logger      hclog.Logger
	trustNative bool

	startedAt   time.Time // zero until the current item reports downloading
	lastEmitAt  time.Time
	lastPercent float64

	currentIndex int
	sourceIndex  int
	title        string
	thumbnail    string
}

// NewTracker creates a tracker for a batch of total items
func NewTracker(sessionID string, total int, emitter Emitter, opts ...Option) *Tracker {
	t := &Tracker{
		sessionID: sessionID,
		total:     total,
		emitter:   emitter,
		now:       time.Now,
		yield:     runtime.Gosched,
		interval:  DefaultInterval,
		logger:    hclog.NewNullLogger(),
	}
	if total > 1 {
		t.currentIndex = 1
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CurrentIndex returns the process index the tracker reports
func (t *Tracker) CurrentIndex() int {
	return t.currentIndex
}

// Advance moves the tracker to the next item and restarts its timer
func (t *Tracker) Advance(processIndex int, item model.Item) {
	t.currentIndex = processIndex
	t.sourceIndex = item.SourceIndex
	t.title = item.Title
	t.thumbnail = item.ThumbnailURL
	t.Reset()
}

// Reset clears the per-item timer
func (t *Tracker) Reset() {
	t.startedAt = time.Time{}
	t.lastPercent = 0
}

func (t *Tracker) isCollection() bool {
	return t.total > 1
}

// OnProgress consumes one raw engine callback. It never fails.
func (t *Tracker) OnProgress(raw engine.Progress) {
	if t.trustNative && raw.PlaylistIndex > 0 {
		t.currentIndex = raw.PlaylistIndex
	}
	if raw.Title != "" {
		t.title = raw.Title
	}
	if raw.Thumbnail != "" {
		t.thumbnail = raw.Thumbnail
	}

	switch raw.Status {
	case engine.StatusDownloading:
		t.onDownloading(raw)
	case engine.StatusFinished:
		t.onFinished()
	}
}

func (t *Tracker) onDownloading(raw engine.Progress) {
	now := t.now()
	if t.startedAt.IsZero() {
		t.startedAt = now
	}

	total := raw.Total()
	downloaded := float64(raw.DownloadedBytes)
	percent := 0.0
	if total > 0 {
		percent = math.Min(downloaded/total*100, 100)
	}
	percent = round1(math.Max(percent, t.lastPercent))
	t.lastPercent = percent

	speed := model.UnknownSpeed
	eta := model.UnknownETA
	if elapsed := now.Sub(t.startedAt); elapsed > speedWarmup && downloaded > 0 {
		rate := downloaded / elapsed.Seconds()
		speed = model.FormatSpeed(rate)
		if total > downloaded {
			eta = model.FormatSeconds((total - downloaded) / rate)
		}
	}

	if !t.lastEmitAt.IsZero() && now.Sub(t.lastEmitAt) < t.interval {
		return
	}

	ev := t.event(model.PhaseDownloading, percent)
	ev.Speed = speed
	ev.ETA = eta
	batch := percent
	if t.isCollection() {
		idx := max(t.currentIndex, 1)
		batch = (float64(idx-1)*100 + percent) / float64(t.total)
	}
	ev.BatchPercent = ptr(round1(math.Min(batch, 100)))

	if t.emit(ev) {
		t.lastEmitAt = now
		t.yield()
	}
}

func (t *Tracker) onFinished() {
	ev := t.event(model.PhaseProcessing, 100)
	batch := 100.0
	if t.isCollection() {
		batch = math.Min(float64(t.currentIndex)*100/float64(t.total), 100)
	}
	ev.BatchPercent = ptr(round1(batch))

	if t.emit(ev) {
		t.lastEmitAt = t.now()
		t.yield()
	}
	t.Reset()
}

func (t *Tracker) event(phase model.Phase, percent float64) model.ProgressEvent {
	return model.ProgressEvent{
		Phase:        phase,
		Title:        t.title,
		ThumbnailURL: t.thumbnail,
		Percent:      percent,
		IsCollection: t.isCollection(),
		ProcessIndex: t.currentIndex,
		SourceIndex:  t.sourceIndex,
		Total:        t.total,
	}
}

func (t *Tracker) emit(ev model.ProgressEvent) bool {
	if t.emitter == nil {
		return false
	}
	if err := t.emitter.Emit(t.sessionID, ev); err != nil {
		t.logger.Debug("progress event dropped", "session", t.sessionID, "error", err)
		return false
	}
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func ptr(v float64) *float64 {
	return &v
}
