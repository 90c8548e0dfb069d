package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/engine"
	"github.com/ytget/yt-downloader-web/internal/format"
	"github.com/ytget/yt-downloader-web/internal/model"
	"github.com/ytget/yt-downloader-web/internal/progress"
)

// DefaultMergeFormat is the container video and audio are merged into
const DefaultMergeFormat = "mp4"

const (
	titleTemplate = "%(title)s.%(ext)s"
	audioSelector = "+bestaudio/best"
)

// Options tunes an Orchestrator
type Options struct {
	MergeFormat  string
	EmitInterval time.Duration
}

// Result summarises one run. Everything in it has already been sent to the
// session as events.
type Result struct {
	Status    model.BatchStatus
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	// outcome per item, indexed by process index - 1; empty until processed
	Items     []model.ItemStatus
	Err       error
}

// Orchestrator runs download batches
type Orchestrator struct {
	engine   engine.Engine
	resolver *Resolver
	emitter  progress.Emitter
	logger   hclog.Logger
	opts     Options

	// appended to every tracker
	trackerOpts []progress.Option
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(eng engine.Engine, resolver *Resolver, emitter progress.Emitter, logger hclog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.MergeFormat == "" {
		opts.MergeFormat = DefaultMergeFormat
	}
	if opts.EmitInterval < progress.DefaultInterval {
		opts.EmitInterval = progress.DefaultInterval
	}
	return &Orchestrator{
		engine:   eng,
		resolver: resolver,
		emitter:  emitter,
		logger:   logger,
		opts:     opts,
	}
}

// Resolver returns the resolver used for the first phase of every run
func (o *Orchestrator) Resolver() *Resolver {
	return o.resolver
}

// Run processes req for the session and emits exactly one terminal event
func (o *Orchestrator) Run(ctx context.Context, sessionID string, req model.DownloadRequest) *Result {
	return o.run(ctx, sessionID, req, nil)
}

// run is Run with a hook called on every status change
func (o *Orchestrator) run(ctx context.Context, sessionID string, req model.DownloadRequest, observe func(Result)) *Result {
	logger := o.logger.With("session", sessionID, "url", req.URL)
	res := &Result{Status: model.BatchStatusResolving}
	notify := func() {
		if observe != nil {
			observe(*res)
		}
	}
	notify()

	meta, err := o.resolver.Resolve(ctx, req.URL)
	if err != nil {
		if ctx.Err() != nil {
			return o.cancelled(sessionID, res, logger)
		}
		logger.Error("resolution failed", "error", err)
		res.Status = model.BatchStatusFailed
		res.Err = err
		var resErr *ResolutionError
		msg := connectionErrorPrefix + err.Error()
		if errors.As(err, &resErr) {
			msg = resErr.ClientMessage()
		}
		o.emit(sessionID, model.ErrorEvent{Message: msg}, logger)
		notify()
		return res
	}

	batch, native := newBatch(meta, req.Indices)
	res.Total = batch.Total()
	res.Items = make([]model.ItemStatus, res.Total)
	res.Status = model.BatchStatusIterating
	notify()

	o.emit(sessionID, model.NewMetadataEvent(batch), logger)

	trackerOpts := []progress.Option{
		progress.WithInterval(o.opts.EmitInterval),
		progress.WithLogger(logger.Named("progress")),
	}
	if native {
		trackerOpts = append(trackerOpts, progress.WithNativeIndex())
	}
	trackerOpts = append(trackerOpts, o.trackerOpts...)
	tracker := progress.NewTracker(sessionID, batch.Total(), o.emitter, trackerOpts...)

	target := format.ParseTarget(req.Resolution)
	for _, item := range batch.Items {
		if ctx.Err() != nil {
			return o.cancelled(sessionID, res, logger)
		}

		tracker.Advance(item.ProcessIndex, item)

		err := o.downloadItem(ctx, batch, item, req.OutputFolder, target, tracker)
		var unreachable *ItemUnreachableError
		slot := &res.Items[item.ProcessIndex-1]
		switch {
		case err == nil:
			res.Succeeded++
			*slot = model.ItemStatusOK
		case ctx.Err() != nil:
			return o.cancelled(sessionID, res, logger)
		case errors.As(err, &unreachable):
			logger.Warn("skipping item", "index", item.ProcessIndex, "error", err)
			res.Skipped++
			*slot = model.ItemStatusSkipped
		default:
			logger.Warn("item failed", "index", item.ProcessIndex, "error", err)
			res.Failed++
			*slot = model.ItemStatusFailed
		}
		notify()
	}

	if res.Succeeded > 0 {
		res.Status = model.BatchStatusDone
		logger.Info("batch finished", "succeeded", res.Succeeded, "total", res.Total)
		o.emit(sessionID, model.NewDoneEvent(res.Succeeded, res.Total), logger)
	} else {
		exhausted := &BatchExhaustedError{Total: res.Total, Failed: res.Failed, Skipped: res.Skipped}
		res.Status = model.BatchStatusAllFailed
		res.Err = exhausted
		logger.Error("batch failed", "error", exhausted)
		o.emit(sessionID, model.ErrorEvent{Message: exhausted.ClientMessage()}, logger)
	}
	notify()
	return res
}

func (o *Orchestrator) downloadItem(ctx context.Context, batch *model.Batch, item model.Item, folder string, target int, tracker *progress.Tracker) error {
	url := directURL(item)
	if url == "" {
		return &ItemUnreachableError{ProcessIndex: item.ProcessIndex, Title: item.Title}
	}

	info, err := o.engine.ExtractFull(ctx, url)
	if err != nil {
		return &ItemDownloadError{ProcessIndex: item.ProcessIndex, Title: item.Title, Phase: model.ItemStatusFetchingVariants, Err: err}
	}

	formatID, ok := format.Select(info.Variants(), target)
	if !ok {
		formatID = format.FallbackVideo
	}

	opts := engine.DownloadOptions{
		OutputTemplate: outputTemplate(folder, batch, item),
		FormatSpec:     formatID + audioSelector,
		MergeFormat:    o.opts.MergeFormat,
		Progress:       tracker.OnProgress,
	}
	o.logger.Debug("downloading item", "index", item.ProcessIndex, "format", opts.FormatSpec, "output", opts.OutputTemplate)

	if err := o.engine.Download(ctx, url, opts); err != nil {
		tracker.Reset()
		return &ItemDownloadError{ProcessIndex: item.ProcessIndex, Title: item.Title, Phase: model.ItemStatusDownloading, Err: err}
	}
	return nil
}

func (o *Orchestrator) cancelled(sessionID string, res *Result, logger hclog.Logger) *Result {
	res.Status = model.BatchStatusCancelled
	res.Err = context.Canceled
	logger.Info("batch cancelled", "succeeded", res.Succeeded, "total", res.Total)
	msg := "Download cancelled."
	if res.Total > 0 {
		msg = fmt.Sprintf("Download cancelled. %d/%d items downloaded.", res.Succeeded, res.Total)
	}
	o.emit(sessionID, model.ErrorEvent{Message: msg}, logger)
	return res
}

func (o *Orchestrator) emit(sessionID string, ev model.Event, logger hclog.Logger) {
	if err := o.emitter.Emit(sessionID, ev); err != nil {
		logger.Debug("event dropped", "event", ev.Name(), "error", err)
	}
}

// newBatch filters the resolved entries to the selected source positions.
// The second result reports whether engine-native playlist indices can be
// trusted, i.e. process and source positions coincide.
func newBatch(meta *model.Metadata, indices []int) (*model.Batch, bool) {
	items := meta.Entries
	if !meta.IsCollection && len(items) > 1 {
		items = items[:1]
	}

	if meta.IsCollection && len(indices) > 0 {
		selected := make(map[int]struct{}, len(indices))
		for _, idx := range indices {
			selected[idx] = struct{}{}
		}
		filtered := make([]model.Item, 0, len(indices))
		for _, it := range items {
			if _, ok := selected[it.SourceIndex]; ok {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	batch := model.NewBatch(meta.Title, meta.ThumbnailURL, items)
	native := meta.IsCollection
	for _, it := range batch.Items {
		if it.SourceIndex != it.ProcessIndex {
			native = false
			break
		}
	}
	return batch, native
}

func directURL(item model.Item) string {
	if item.URL != "" {
		return item.URL
	}
	if item.ID != "" {
		return fmt.Sprintf(engine.YouTubeVideoURLTemplate, item.ID)
	}
	return ""
}

func outputTemplate(folder string, batch *model.Batch, item model.Item) string {
	if !batch.IsCollection() {
		return filepath.Join(folder, titleTemplate)
	}
	return filepath.Join(folder, fmt.Sprintf("%02d - ", item.SequenceNumber())+titleTemplate)
}
