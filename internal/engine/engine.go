package engine

import (
	"context"

	"github.com/ytget/yt-downloader-web/internal/model"
)

// Raw progress statuses reported by yt-dlp
const (
	StatusDownloading = "downloading"
	StatusFinished    = "finished"
	StatusError       = "error"
)

// Engine is the extraction/download capability consumed by the orchestrator.
type Engine interface {
	// ExtractFlat enumerates a URL without fetching media. Collection members
	// that fail to resolve are dropped, not reported.
	ExtractFlat(ctx context.Context, url string) (*FlatInfo, error)

	// ExtractFull fetches the full metadata of a single item, formats included.
	ExtractFull(ctx context.Context, url string) (*FullInfo, error)

	// Download performs the transfer. opts.Progress is invoked synchronously
	// on the calling goroutine.
	Download(ctx context.Context, url string, opts DownloadOptions) error
}

// PlaylistLister enumerates playlist members by other means than the engine.
type PlaylistLister interface {
	ListPlaylist(ctx context.Context, url string) (*FlatInfo, error)
}

// DownloadOptions configures one download run
type DownloadOptions struct {
	OutputTemplate string
	FormatSpec     string
	MergeFormat    string
	Progress       func(Progress)
}

// Progress is one low-level progress callback
type Progress struct {
	Status             string
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate float64
	PlaylistIndex      int // 0 when the engine did not report one
	Title              string
	Thumbnail          string
}

// Total returns the exact size when known, the estimate otherwise
func (p Progress) Total() float64 {
	if p.TotalBytes > 0 {
		return float64(p.TotalBytes)
	}
	if p.TotalBytesEstimate > 0 {
		return p.TotalBytesEstimate
	}
	return 0
}

// Thumbnail is one entry of a thumbnails list
type Thumbnail struct {
	URL string `json:"url"`
}

// FlatEntry is a lightweight collection member
type FlatEntry struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
}

// DirectURL returns the explicit URL reported by the source, if any
func (e *FlatEntry) DirectURL() string {
	if e.URL != "" {
		return e.URL
	}
	return e.WebpageURL
}

// ThumbnailURL returns the thumbnail, falling back to the last (largest) listed one
func (e *FlatEntry) ThumbnailURL() string {
	return pickThumbnail(e.Thumbnail, e.Thumbnails)
}

// FlatInfo is the result of a flat extraction
type FlatInfo struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	// nil when the URL is a single item; nil members are entries that failed to resolve
	Entries *[]*FlatEntry `json:"entries"`
}

// IsCollection reports whether the extraction returned an entries list
func (f *FlatInfo) IsCollection() bool {
	return f.Entries != nil
}

// ThumbnailURL returns the best known thumbnail
func (f *FlatInfo) ThumbnailURL() string {
	return pickThumbnail(f.Thumbnail, f.Thumbnails)
}

// Format is one entry of the formats list of a full extraction
type Format struct {
	FormatID string `json:"format_id"`
	Height   *int   `json:"height"`
	VCodec   string `json:"vcodec"`
}

// FullInfo is the result of a full single-item extraction
type FullInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Formats   []Format `json:"formats"`
}

// Variants converts the formats list into stream variants
func (f *FullInfo) Variants() []model.StreamVariant {
	variants := make([]model.StreamVariant, 0, len(f.Formats))
	for _, fm := range f.Formats {
		variants = append(variants, model.StreamVariant{
			FormatID: fm.FormatID,
			Height:   fm.Height,
			HasVideo: fm.VCodec != "none",
		})
	}
	return variants
}

func pickThumbnail(direct string, list []Thumbnail) string {
	if direct != "" {
		return direct
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].URL != "" {
			return list[i].URL
		}
	}
	return ""
}
