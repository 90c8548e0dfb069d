package download

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/engine"
	"github.com/ytget/yt-downloader-web/internal/model"
)

// Default titles for sources that report none
const (
	DefaultCollectionTitle = "Playlist"
	DefaultItemTitle       = "Video"
)

// Resolver turns a URL into Metadata without fetching media
type Resolver struct {
	engine engine.Engine
	lister engine.PlaylistLister
	logger hclog.Logger
}

// NewResolver creates a resolver. lister may be nil; when set it is tried for
// playlist URLs the engine could not enumerate.
func NewResolver(eng engine.Engine, lister engine.PlaylistLister, logger hclog.Logger) *Resolver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Resolver{
		engine: eng,
		lister: lister,
		logger: logger,
	}
}

// Resolve enumerates url. Members that fail to resolve are dropped but keep
// their slot, so SourceIndex always matches the position in the source.
func (r *Resolver) Resolve(ctx context.Context, url string) (*model.Metadata, error) {
	info, err := r.engine.ExtractFlat(ctx, url)
	if err != nil {
		info, err = r.fallback(ctx, url, err)
		if err != nil {
			return nil, &ResolutionError{URL: url, Err: err}
		}
	}
	return toMetadata(info, url), nil
}

func (r *Resolver) fallback(ctx context.Context, url string, cause error) (*engine.FlatInfo, error) {
	if r.lister == nil || ctx.Err() != nil || !engine.IsPlaylistURL(url) {
		return nil, cause
	}

	r.logger.Warn("flat extraction failed, listing playlist natively", "url", url, "error", cause)
	info, err := r.lister.ListPlaylist(ctx, url)
	if err != nil {
		r.logger.Debug("native playlist listing failed", "url", url, "error", err)
		return nil, cause
	}
	return info, nil
}

func toMetadata(info *engine.FlatInfo, url string) *model.Metadata {
	if !info.IsCollection() {
		title := orDefault(info.Title, DefaultItemTitle)
		pageURL := orDefault(info.WebpageURL, url)
		return &model.Metadata{
			Title:        title,
			ThumbnailURL: info.ThumbnailURL(),
			Entries: []model.Item{{
				SourceIndex:  1,
				ID:           info.ID,
				Title:        title,
				ThumbnailURL: info.ThumbnailURL(),
				URL:          pageURL,
			}},
		}
	}

	raw := *info.Entries
	items := make([]model.Item, 0, len(raw))
	for i, e := range raw {
		if e == nil {
			continue
		}
		items = append(items, model.Item{
			SourceIndex:  i + 1,
			ID:           e.ID,
			Title:        orDefault(e.Title, fmt.Sprintf("%s %d", DefaultItemTitle, i+1)),
			ThumbnailURL: e.ThumbnailURL(),
			URL:          e.DirectURL(),
		})
	}

	thumbnail := info.ThumbnailURL()
	if thumbnail == "" && len(items) > 0 {
		thumbnail = items[0].ThumbnailURL
	}
	return &model.Metadata{
		IsCollection: true,
		Title:        orDefault(info.Title, DefaultCollectionTitle),
		ThumbnailURL: thumbnail,
		Entries:      items,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
