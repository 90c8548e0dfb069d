// Package enginetest provides a scripted engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ytget/yt-downloader-web/internal/engine"
)

// DownloadCall records one Download invocation
type DownloadCall struct {
	URL     string
	Options engine.DownloadOptions
}

// Fake is an in-memory engine.Engine. Unknown URLs fail.
type Fake struct {
	mu sync.Mutex

	flat        map[string]*engine.FlatInfo
	flatErr     map[string]error
	full        map[string]*engine.FullInfo
	fullErr     map[string]error
	downloadErr map[string]error
	scripts     map[string][]engine.Progress

	// Gate, when set, blocks every Download until it is closed or the context ends.
	Gate chan struct{}

	downloads []DownloadCall
	fullCalls []string
}

var _ engine.Engine = (*Fake)(nil)

// New creates an empty fake
func New() *Fake {
	return &Fake{
		flat:        make(map[string]*engine.FlatInfo),
		flatErr:     make(map[string]error),
		full:        make(map[string]*engine.FullInfo),
		fullErr:     make(map[string]error),
		downloadErr: make(map[string]error),
		scripts:     make(map[string][]engine.Progress),
	}
}

// SetFlat scripts the flat extraction of url
func (f *Fake) SetFlat(url string, info *engine.FlatInfo) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flat[url] = info
	return f
}

// SetFlatError makes the flat extraction of url fail
func (f *Fake) SetFlatError(url string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flatErr[url] = err
	return f
}

// SetFull scripts the full extraction of url
func (f *Fake) SetFull(url string, info *engine.FullInfo) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full[url] = info
	return f
}

// SetFullError makes the full extraction of url fail
func (f *Fake) SetFullError(url string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullErr[url] = err
	return f
}

// SetDownloadError makes the download of url fail after its script played
func (f *Fake) SetDownloadError(url string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadErr[url] = err
	return f
}

// SetScript sets the progress events replayed when url is downloaded.
// Without a script a download reports a single finished event.
func (f *Fake) SetScript(url string, events ...engine.Progress) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[url] = events
	return f
}

// ExtractFlat implements engine.Engine
func (f *Fake) ExtractFlat(ctx context.Context, url string) (*engine.FlatInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.flatErr[url]; ok {
		return nil, err
	}
	if info, ok := f.flat[url]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("ERROR: [generic] Unsupported URL: %s", url)
}

// ExtractFull implements engine.Engine
func (f *Fake) ExtractFull(ctx context.Context, url string) (*engine.FullInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullCalls = append(f.fullCalls, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fullErr[url]; ok {
		return nil, err
	}
	if info, ok := f.full[url]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("ERROR: [generic] Unsupported URL: %s", url)
}

// Download implements engine.Engine. Progress is replayed on the calling goroutine.
func (f *Fake) Download(ctx context.Context, url string, opts engine.DownloadOptions) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, DownloadCall{URL: url, Options: opts})
	script, scripted := f.scripts[url]
	downloadErr := f.downloadErr[url]
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !scripted && downloadErr == nil {
		script = []engine.Progress{{Status: engine.StatusFinished}}
	}
	for _, p := range script {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.Progress != nil {
			opts.Progress(p)
		}
	}
	return downloadErr
}

// Downloads returns the recorded Download calls in order
func (f *Fake) Downloads() []DownloadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DownloadCall, len(f.downloads))
	copy(out, f.downloads)
	return out
}

// FullCalls returns the URLs passed to ExtractFull in order
func (f *Fake) FullCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.fullCalls))
	copy(out, f.fullCalls)
	return out
}

// Video builds a full extraction result with one video format per height
// plus an audio-only format
func Video(id, title string, heights ...int) *engine.FullInfo {
	info := &engine.FullInfo{ID: id, Title: title}
	info.Formats = append(info.Formats, engine.Format{FormatID: "audio", VCodec: "none"})
	for _, h := range heights {
		h := h
		info.Formats = append(info.Formats, engine.Format{
			FormatID: fmt.Sprintf("v%d", h),
			Height:   &h,
			VCodec:   "avc1",
		})
	}
	return info
}

// Playlist builds a flat collection result; nil entries stand for members
// that failed to resolve
func Playlist(title string, entries ...*engine.FlatEntry) *engine.FlatInfo {
	if entries == nil {
		entries = []*engine.FlatEntry{}
	}
	return &engine.FlatInfo{Title: title, Entries: &entries}
}
