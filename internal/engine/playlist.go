package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultParseTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Playlist title constants
const (
	DefaultPlaylistName = "Playlist"
	MinPrefixLength     = 10
	PlaylistSuffix      = " Playlist"
)

// NativePlaylist lists YouTube playlist members through the ytdlp library,
// without the yt-dlp executable.
type NativePlaylist struct {
	timeout time.Duration
}

// NewNativePlaylist creates a lister with the default timeout
func NewNativePlaylist() *NativePlaylist {
	return &NativePlaylist{
		timeout: DefaultParseTimeout,
	}
}

// SetTimeout sets the timeout for listing operations
func (n *NativePlaylist) SetTimeout(timeout time.Duration) {
	n.timeout = timeout
}

// ListPlaylist returns the playlist as a flat extraction result
func (n *NativePlaylist) ListPlaylist(ctx context.Context, url string) (*FlatInfo, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", url)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]*FlatEntry, 0, len(items))
	titles := make([]string, 0, len(items))
	for _, it := range items {
		entries = append(entries, &FlatEntry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
		titles = append(titles, it.Title)
	}

	return &FlatInfo{
		ID:         playlistID,
		Title:      playlistTitle(titles),
		WebpageURL: url,
		Entries:    &entries,
	}, nil
}

// IsPlaylistURL checks if the URL carries a playlist parameter
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// ExtractPlaylistID extracts the playlist ID from various URL formats
func ExtractPlaylistID(url string) string {
	if !strings.Contains(url, PlaylistParam) {
		return ""
	}
	parts := strings.Split(url, PlaylistParam)
	if len(parts) < 2 {
		return ""
	}
	playlistPart := parts[1]
	if strings.Contains(playlistPart, ParamSeparator) {
		playlistPart = strings.Split(playlistPart, ParamSeparator)[0]
	}
	return playlistPart
}

// playlistTitle derives a title from the member titles; the library does not
// report the playlist's own name
func playlistTitle(titles []string) string {
	if len(titles) == 0 {
		return DefaultPlaylistName
	}
	if len(titles) > 1 {
		commonPrefix := findCommonPrefix(titles[0], titles[1])
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}
	return titles[0] + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings. It only
// cuts on rune boundaries.
func findCommonPrefix(s1, s2 string) string {
	i := 0
	for i < len(s1) {
		_, n := utf8.DecodeRuneInString(s1[i:])
		if i+n > len(s2) || s1[i:i+n] != s2[i:i+n] {
			break
		}
		i += n
	}
	return s1[:i]
}
