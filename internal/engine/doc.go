package engine

// Package engine wraps the external extraction/download capability. The CLI
// implementation drives the yt-dlp binary through github.com/lrstanley/go-ytdlp;
// NativePlaylist enumerates YouTube playlists through github.com/ytget/ytdlp
// when the binary cannot.
